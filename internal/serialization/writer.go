package serialization

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// Encode builds the Document for stateDict.
func Encode(stateDict map[string]*tensor.RawTensor, metadata map[string]string) (*Document, error) {
	if len(stateDict) > MaxTensorCount {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(stateDict), MaxTensorCount)
	}

	doc := &Document{
		Format:    FormatName,
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Tensors:   make(map[string]TensorRecord, len(stateDict)),
		Metadata:  maps.Clone(metadata),
		Checksum:  ChecksumHex(stateDict),
	}

	for name, raw := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return nil, err
		}
		rec := TensorRecord{
			DType: dtypeToString(raw.DType()),
			Shape: []int(raw.Shape().Clone()),
			Data:  make([]float64, raw.NumElements()),
		}
		switch raw.DType() {
		case tensor.Float32:
			for i, v := range raw.AsFloat32() {
				rec.Data[i] = float64(v)
			}
		case tensor.Float64:
			copy(rec.Data, raw.AsFloat64())
		default:
			return nil, &ValidationError{Type: "unknown_dtype", Tensor: name, Details: raw.DType().String()}
		}
		doc.Tensors[name] = rec
	}
	return doc, nil
}

// Write encodes stateDict as an indented JSON state file to w.
func Write(w io.Writer, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	doc, err := Encode(stateDict, metadata)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state file: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// WriteFile writes a state file to path.
// The file is written to a temporary sibling first and renamed into place.
func WriteFile(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := Write(tmp, stateDict, metadata); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move state file into place: %w", err)
	}
	return nil
}
