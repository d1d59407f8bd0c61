package nn

import "errors"

// Error classes returned by layer construction and application.
// Wrapped errors carry the detail; match the class with errors.Is.
var (
	// ErrInvalidConfig reports a configuration rejected at construction time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidShape reports an input tensor incompatible with the layer.
	ErrInvalidShape = errors.New("invalid input shape")
)
