package letters

import "errors"

// Error taxonomy for store operations. Callers match with errors.Is and map
// to their own surface (HTTP status codes, notifications).
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
)
