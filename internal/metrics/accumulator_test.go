package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_MeanVariance(t *testing.T) {
	acc := NewAccumulator(2)

	require.NoError(t, acc.Add([]float32{1, 10}))
	require.NoError(t, acc.Add([]float32{2, 10}))
	require.NoError(t, acc.Add([]float32{3, 10}))

	assert.Equal(t, 3, acc.Count())
	assert.Equal(t, 2, acc.Size())
	assert.InDeltaSlice(t, []float64{2, 10}, acc.Mean(), 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, acc.Variance(), 1e-12)
	assert.InDelta(t, 6.0, acc.GrandMean(), 1e-12)
	assert.InDelta(t, 1.0, acc.MaxAbsDeviation([]float32{1, 10}), 1e-12)
}

func TestAccumulator_SizeMismatch(t *testing.T) {
	acc := NewAccumulator(3)
	assert.Error(t, acc.Add([]float32{1}))
	assert.Equal(t, 0, acc.Count())
}

func TestAccumulator_VarianceNeedsTwo(t *testing.T) {
	acc := NewAccumulator(1)
	require.NoError(t, acc.Add([]float32{5}))
	assert.Equal(t, []float64{0}, acc.Variance())
}

func TestAccumulator_MeanIsCopy(t *testing.T) {
	acc := NewAccumulator(1)
	require.NoError(t, acc.Add([]float32{5}))

	m := acc.Mean()
	m[0] = 0
	assert.Equal(t, []float64{5}, acc.Mean())
}
