package nn

import (
	"math"

	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Values are drawn from src uniformly in
// [-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))].
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, src rng.Source, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros[float32](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = float32((src.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones creates a float32 tensor filled with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}
