package serialization

import (
	"time"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// Format constants.
const (
	FormatName    = "stochnorm.state"
	FormatVersion = 1
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// Document is the on-disk JSON layout of a state file.
type Document struct {
	Format    string                  `json:"format"`
	Version   int                     `json:"version"`
	CreatedAt time.Time               `json:"created_at"`
	Tensors   map[string]TensorRecord `json:"tensors"`
	Metadata  map[string]string       `json:"metadata,omitempty"`
	Checksum  string                  `json:"checksum"`
}

// TensorRecord is one serialized tensor. Values are stored as float64,
// which represents every float32 exactly.
type TensorRecord struct {
	DType string    `json:"dtype"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// StateFile is a decoded and verified state file.
type StateFile struct {
	Tensors   map[string]*tensor.RawTensor
	Metadata  map[string]string
	CreatedAt time.Time
}

// dtypeToString converts tensor.DataType to its string representation.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	default:
		return "unknown"
	}
}

// stringToDtype converts a string representation to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	default:
		return 0, false
	}
}
