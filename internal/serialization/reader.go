package serialization

import (
	"fmt"
	"io"
	"maps"
	"os"

	json "github.com/goccy/go-json"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// Decode validates doc and converts its records into raw tensors on device.
// The checksum is verified last, over the decoded tensors.
func Decode(doc *Document, device tensor.Device) (*StateFile, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(doc.Tensors))
	for name, rec := range doc.Tensors {
		dtype, _ := stringToDtype(rec.DType)
		raw, err := tensor.NewRaw(tensor.Shape(rec.Shape).Clone(), dtype, device)
		if err != nil {
			return nil, &ValidationError{Type: "invalid_shape", Tensor: name, Details: err.Error()}
		}
		switch dtype {
		case tensor.Float32:
			dst := raw.AsFloat32()
			for i, v := range rec.Data {
				dst[i] = float32(v)
			}
		case tensor.Float64:
			copy(raw.AsFloat64(), rec.Data)
		}
		tensors[name] = raw
	}

	if err := ValidateChecksum(tensors, doc.Checksum); err != nil {
		return nil, err
	}

	return &StateFile{
		Tensors:   tensors,
		Metadata:  maps.Clone(doc.Metadata),
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Read decodes and verifies a state file from r.
func Read(r io.Reader, device tensor.Device) (*StateFile, error) {
	var doc Document
	dec := json.NewDecoder(io.LimitReader(r, MaxFileSize))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	return Decode(&doc, device)
}

// ReadFile decodes and verifies the state file at path.
func ReadFile(path string, device tensor.Device) (*StateFile, error) {
	//nolint:gosec // G304: path comes from the caller, which is expected for model loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Read(f, device)
}
