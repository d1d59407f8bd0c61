package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stochnorm/internal/backend/cpu"
	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

func TestLinearData(t *testing.T) {
	backend := cpu.New()
	weights := []float32{2, -3.4}

	x, y, err := LinearData(500, weights, 4.2, 0, rng.New(0, "data"), backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{500, 2}, x.Shape())
	assert.Equal(t, tensor.Shape{500, 1}, y.Shape())

	for i := range 500 {
		want := 2*x.At(i, 0) - 3.4*x.At(i, 1) + 4.2
		assert.InDelta(t, want, y.At(i, 0), 1e-4)
	}
}

func TestLinearData_Deterministic(t *testing.T) {
	backend := cpu.New()
	_, a, err := LinearData(10, []float32{1}, 0, 0.1, rng.New(3, "data"), backend)
	require.NoError(t, err)
	_, b, err := LinearData(10, []float32{1}, 0, 0.1, rng.New(3, "data"), backend)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func TestLinearData_Invalid(t *testing.T) {
	backend := cpu.New()
	src := rng.New(0, "data")

	_, _, err := LinearData(0, []float32{1}, 0, 0, src, backend)
	assert.Error(t, err)
	_, _, err = LinearData(5, nil, 0, 0, src, backend)
	assert.Error(t, err)
	_, _, err = LinearData(5, []float32{1}, 0, -1, src, backend)
	assert.Error(t, err)
}

func TestGaussianClasses(t *testing.T) {
	backend := cpu.New()
	x, labels, err := GaussianClasses(2000, 3, 6, rng.New(0, "classes"), backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2000, 3}, x.Shape())
	require.Len(t, labels, 2000)

	var sums [2]float64
	var counts [2]int
	for i, label := range labels {
		assert.Equal(t, i%2, label)
		sums[label] += float64(x.At(i, 0))
		counts[label]++
	}
	assert.InDelta(t, -3.0, sums[0]/float64(counts[0]), 0.15)
	assert.InDelta(t, 3.0, sums[1]/float64(counts[1]), 0.15)

	_, _, err = GaussianClasses(0, 3, 1, rng.New(0, "classes"), backend)
	assert.Error(t, err)
}
