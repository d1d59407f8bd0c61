package cpu

import (
	"testing"

	"github.com/born-ml/stochnorm/internal/tensor"
	"github.com/stretchr/testify/assert"
)

func TestSumDim(t *testing.T) {
	backend := New()
	// [[1, 2, 3], [4, 5, 6]]
	x := raw32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	tests := []struct {
		name     string
		dim      int
		keepDim  bool
		shape    tensor.Shape
		expected []float32
	}{
		{"rows keepdim", 0, true, tensor.Shape{1, 3}, []float32{5, 7, 9}},
		{"rows", 0, false, tensor.Shape{3}, []float32{5, 7, 9}},
		{"cols keepdim", 1, true, tensor.Shape{2, 1}, []float32{6, 15}},
		{"negative dim", -1, false, tensor.Shape{2}, []float32{6, 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := backend.SumDim(x, tt.dim, tt.keepDim)
			assert.Equal(t, tt.shape, out.Shape())
			assert.Equal(t, tt.expected, out.AsFloat32())
		})
	}
}

func TestMeanDim(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2, 2)

	out := backend.MeanDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1, 2}, out.Shape())
	assert.Equal(t, []float32{2, 3, 6, 7}, out.AsFloat32())

	scalar := backend.MeanDim(raw32(t, []float32{2, 4}, 2), 0, false)
	assert.Equal(t, 0, len(scalar.Shape()))
	assert.Equal(t, []float32{3}, scalar.AsFloat32())
}

func TestMeanDim_Float64(t *testing.T) {
	backend := New()
	x, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	copy(x.AsFloat64(), []float64{1, 2, 3, 5})

	out := backend.MeanDim(x, 0, false)
	assert.Equal(t, []float64{2, 3.5}, out.AsFloat64())
}

func TestReduceDim_OutOfRangePanics(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{1, 2}, 2)

	assert.Panics(t, func() { backend.SumDim(x, 1, false) })
	assert.Panics(t, func() { backend.MeanDim(x, -2, false) })
}
