package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/backend-service-lab3/internal/model"
)

func newBinder(t *testing.T) *Binder {
	t.Helper()
	b, err := NewBinder()
	require.NoError(t, err)
	return b
}

func decode(t *testing.T, body string) (model.Item, error) {
	t.Helper()
	var it model.Item
	err := newBinder(t).DecodeItem(strings.NewReader(body), &it)
	return it, err
}

func requireValidationError(t *testing.T, err error) *Error {
	t.Helper()
	require.Error(t, err)
	verr, ok := err.(*Error)
	require.True(t, ok, "expected *validation.Error, got %T", err)
	require.NotEmpty(t, verr.Detail)
	return verr
}

func TestDecodeItem_FullPayload(t *testing.T) {
	it, err := decode(t, `{"name":"Laptop","description":"14 inch","price":999.99,"tax":20.5}`)
	require.NoError(t, err)

	assert.Equal(t, "Laptop", it.Name)
	require.NotNil(t, it.Description)
	assert.Equal(t, "14 inch", *it.Description)
	assert.Equal(t, 999.99, it.Price)
	require.NotNil(t, it.Tax)
	assert.Equal(t, 20.5, *it.Tax)
}

func TestDecodeItem_OptionalFieldsAbsentOrNull(t *testing.T) {
	for _, body := range []string{
		`{"name":"Pen","price":1}`,
		`{"name":"Pen","price":1,"description":null,"tax":null}`,
	} {
		it, err := decode(t, body)
		require.NoError(t, err, body)
		assert.Equal(t, "Pen", it.Name)
		assert.Equal(t, float64(1), it.Price)
		assert.Nil(t, it.Description)
		assert.Nil(t, it.Tax)
	}
}

func TestDecodeItem_UnknownFieldsIgnored(t *testing.T) {
	it, err := decode(t, `{"name":"Pen","price":2,"colour":"blue"}`)
	require.NoError(t, err)
	assert.Equal(t, model.Item{Name: "Pen", Price: 2}, it)
}

func TestDecodeItem_MissingRequiredFields(t *testing.T) {
	for _, body := range []string{
		`{"price":1}`,
		`{"name":"Pen"}`,
		`{}`,
	} {
		_, err := decode(t, body)
		verr := requireValidationError(t, err)
		for _, d := range verr.Detail {
			assert.Equal(t, "body", d.Loc[0], body)
			assert.Equal(t, "value_error.missing", d.Type, body)
		}
	}
}

func TestDecodeItem_WrongTypes(t *testing.T) {
	cases := map[string]string{
		"name":        `{"name":123,"price":1}`,
		"price":       `{"name":"Pen","price":"cheap"}`,
		"description": `{"name":"Pen","price":1,"description":5}`,
		"tax":         `{"name":"Pen","price":1,"tax":"high"}`,
	}
	for field, body := range cases {
		_, err := decode(t, body)
		verr := requireValidationError(t, err)
		require.Len(t, verr.Detail, 1, field)
		assert.Equal(t, []string{"body", field}, verr.Detail[0].Loc, field)
		assert.Equal(t, "type_error", verr.Detail[0].Type, field)
	}
}

func TestDecodeItem_NumericStringsNotCoerced(t *testing.T) {
	for field, body := range map[string]string{
		"price": `{"name":"Pen","price":"1.5"}`,
		"tax":   `{"name":"Pen","price":1,"tax":"0.2"}`,
	} {
		_, err := decode(t, body)
		verr := requireValidationError(t, err)
		require.Len(t, verr.Detail, 1, field)
		assert.Equal(t, []string{"body", field}, verr.Detail[0].Loc, field)
		assert.Equal(t, "type_error", verr.Detail[0].Type, field)
	}
}

func TestDecodeItem_MalformedJSON(t *testing.T) {
	for _, body := range []string{`{"name":`, ``, `not json`} {
		_, err := decode(t, body)
		verr := requireValidationError(t, err)
		assert.Equal(t, []string{"body"}, verr.Detail[0].Loc)
		assert.Equal(t, "value_error.jsondecode", verr.Detail[0].Type)
	}
}

func TestDecodeItem_NonObjectRejected(t *testing.T) {
	_, err := decode(t, `["name","price"]`)
	verr := requireValidationError(t, err)
	assert.Equal(t, []string{"body"}, verr.Detail[0].Loc)
}

func TestDecodeItem_LeavesTargetUntouchedOnError(t *testing.T) {
	it := model.Item{Name: "keep", Price: 7}
	err := newBinder(t).DecodeItem(strings.NewReader(`{"name":1}`), &it)
	require.Error(t, err)
	assert.Equal(t, model.Item{Name: "keep", Price: 7}, it)
}

func TestBind_FallsBackForOtherTargets(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"q":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var target struct {
		Q string `json:"q"`
	}
	require.NoError(t, newBinder(t).Bind(&target, c))
	assert.Equal(t, "x", target.Q)
}

func TestMissingFields(t *testing.T) {
	assert.Equal(t, []string{"name"}, missingFields(`missing properties: 'name'`))
	assert.Equal(t, []string{"name", "price"}, missingFields(`missing properties: "name", "price"`))
	assert.Nil(t, missingFields(`expected string, but got number`))
}

func TestPointerSegments(t *testing.T) {
	assert.Nil(t, pointerSegments(""))
	assert.Equal(t, []string{"tax"}, pointerSegments("/tax"))
	assert.Equal(t, []string{"a/b", "c~d"}, pointerSegments("/a~1b/c~0d"))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Detail: []FieldError{{Loc: []string{"body", "name"}, Msg: "field required"}}}
	assert.Equal(t, "validation failed: body.name: field required", err.Error())
}
