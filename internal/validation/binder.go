package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/iliyamo/backend-service-lab3/internal/model"
)

//go:embed item.schema.json
var itemSchemaJSON []byte

const itemSchemaURL = "item.schema.json"

// Binder is an echo.Binder that validates item payloads against the item
// schema.  Any other target falls through to echo's default binder.
type Binder struct {
	item     *jsonschema.Schema
	fallback echo.DefaultBinder
}

// NewBinder compiles the embedded item schema.
func NewBinder() (*Binder, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(itemSchemaURL, bytes.NewReader(itemSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add item schema: %w", err)
	}
	schema, err := compiler.Compile(itemSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile item schema: %w", err)
	}
	return &Binder{item: schema}, nil
}

// Bind implements echo.Binder.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	item, ok := i.(*model.Item)
	if !ok {
		return b.fallback.Bind(i, c)
	}
	return b.DecodeItem(c.Request().Body, item)
}

// DecodeItem reads a JSON document from r, validates it and decodes it into
// item.  item is left untouched when an error is returned.
func (b *Binder) DecodeItem(r io.Reader, item *model.Item) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &Error{Detail: []FieldError{{
			Loc:  []string{"body"},
			Msg:  "JSON decode error: " + err.Error(),
			Type: "value_error.jsondecode",
		}}}
	}

	if err := b.item.Validate(doc); err != nil {
		verr := &Error{}
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			collect(ve, verr)
		}
		if len(verr.Detail) == 0 {
			verr.add(FieldError{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"})
		}
		return verr
	}

	var decoded model.Item
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &Error{Detail: []FieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}}
	}
	*item = decoded
	return nil
}

// collect flattens the leaves of a schema error tree into out.
func collect(ve *jsonschema.ValidationError, out *Error) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collect(cause, out)
		}
		return
	}

	loc := append([]string{"body"}, pointerSegments(ve.InstanceLocation)...)
	switch keyword(ve.KeywordLocation) {
	case "required":
		fields := missingFields(ve.Message)
		if len(fields) == 0 {
			out.add(FieldError{Loc: loc, Msg: "field required", Type: "value_error.missing"})
			return
		}
		for _, f := range fields {
			out.add(FieldError{Loc: append(append([]string(nil), loc...), f), Msg: "field required", Type: "value_error.missing"})
		}
	case "type":
		out.add(FieldError{Loc: loc, Msg: ve.Message, Type: "type_error"})
	default:
		out.add(FieldError{Loc: loc, Msg: ve.Message, Type: "value_error"})
	}
}

// pointerSegments splits a JSON pointer such as "/tax" into its tokens.
func pointerSegments(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	segs := strings.Split(ptr, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		segs[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return segs
}

func keyword(keywordLocation string) string {
	if i := strings.LastIndex(keywordLocation, "/"); i >= 0 {
		return keywordLocation[i+1:]
	}
	return keywordLocation
}

// missingFields extracts property names from "missing properties: 'a', 'b'".
func missingFields(msg string) []string {
	const prefix = "missing properties: "
	if !strings.HasPrefix(msg, prefix) {
		return nil
	}
	var out []string
	for _, p := range strings.Split(strings.TrimPrefix(msg, prefix), ",") {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
