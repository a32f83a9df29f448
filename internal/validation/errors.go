// Package validation is the input-parsing layer of the API.  Request
// bodies are checked against an embedded JSON Schema before they are
// decoded, and path parameters are parsed into their declared types.
// Failures are reported as *Error values which the HTTP error handler
// renders as 422 responses.
package validation

import "strings"

// FieldError describes one offending input.  Loc is the path to the value,
// starting with its location ("body" or "path").
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Error collects every FieldError found in a request.
type Error struct {
	Detail []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Detail))
	for _, d := range e.Detail {
		parts = append(parts, strings.Join(d.Loc, ".")+": "+d.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) add(fe FieldError) {
	e.Detail = append(e.Detail, fe)
}
