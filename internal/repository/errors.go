// Package repository holds the process-local item store.  Errors that
// handlers need to tell apart are exported as sentinel values.
package repository

import "errors"

// ErrItemNotFound is returned when a position lies outside the store.
// Handlers translate it into the {"error": "Item not found"} body.
var ErrItemNotFound = errors.New("item not found")
