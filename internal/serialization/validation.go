package serialization

import (
	"fmt"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxFileSize      = 256 * 1024 * 1024 // 256MB - maximum state file size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// ValidateTensorName rejects empty names, overlong names, path-like names and null bytes.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains '..'"}
	}
	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains path separator (/ or \\)"}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}

// ValidateRecord checks that a record's dtype is known, its shape has
// positive dimensions, and its data length matches the shape.
func ValidateRecord(name string, rec TensorRecord) error {
	if _, ok := stringToDtype(rec.DType); !ok {
		return &ValidationError{Type: "unknown_dtype", Tensor: name, Details: fmt.Sprintf("dtype %q", rec.DType)}
	}
	n := 1
	for _, dim := range rec.Shape {
		if dim <= 0 {
			return &ValidationError{Type: "invalid_shape", Tensor: name, Details: fmt.Sprintf("shape %v has non-positive dimension", rec.Shape)}
		}
		n *= dim
		if n > MaxFileSize {
			return &ValidationError{Type: "invalid_shape", Tensor: name, Details: fmt.Sprintf("shape %v is too large", rec.Shape)}
		}
	}
	if len(rec.Data) != n {
		return &ValidationError{
			Type:    "shape_mismatch",
			Tensor:  name,
			Details: fmt.Sprintf("shape %v requires %d values, got %d", rec.Shape, n, len(rec.Data)),
		}
	}
	return nil
}

// ValidateDocument checks the header fields and every tensor record.
func ValidateDocument(doc *Document) error {
	if doc.Format != FormatName {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Format)
	}
	if doc.Version != FormatVersion {
		return fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedVersion, doc.Version, FormatVersion)
	}
	if len(doc.Tensors) > MaxTensorCount {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(doc.Tensors), MaxTensorCount)
	}
	for name, rec := range doc.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		if err := ValidateRecord(name, rec); err != nil {
			return err
		}
	}
	return nil
}
