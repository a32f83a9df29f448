package validation

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// PathInt parses the named path parameter as a base-10 integer.  Negative
// values are accepted; range checks belong to the caller.  Integers too
// large for int are clamped to the nearest bound rather than rejected.
func PathInt(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if errors.Is(err, strconv.ErrRange) {
		return n, nil
	}
	if err != nil {
		return 0, &Error{Detail: []FieldError{{
			Loc:  []string{"path", name},
			Msg:  "value is not a valid integer",
			Type: "type_error.integer",
		}}}
	}
	return n, nil
}
