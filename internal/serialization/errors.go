package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTooManyTensors     = errors.New("too many tensors in file")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // e.g. "invalid_name", "shape_mismatch"
	Tensor  string // Tensor name involved, if any
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
