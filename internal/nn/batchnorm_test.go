package nn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stochnorm/internal/backend/cpu"
	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// columnStats returns per-column mean and biased variance of a [n, d] slice.
func columnStats(data []float32, n, d int) (mean, variance []float64) {
	mean = make([]float64, d)
	variance = make([]float64, d)
	for i := range n {
		for j := range d {
			mean[j] += float64(data[i*d+j])
		}
	}
	for j := range d {
		mean[j] /= float64(n)
	}
	for i := range n {
		for j := range d {
			diff := float64(data[i*d+j]) - mean[j]
			variance[j] += diff * diff
		}
	}
	for j := range d {
		variance[j] /= float64(n)
	}
	return mean, variance
}

func newBatchNorm(t *testing.T, cfg nn.BatchNormConfig) *nn.BatchNorm[backendT] {
	t.Helper()
	bn, err := nn.NewBatchNorm(cfg, cpu.New())
	require.NoError(t, err)
	return bn
}

func TestBatchNorm_Defaults(t *testing.T) {
	cfg := nn.DefaultBatchNormConfig(3)
	assert.Equal(t, tensor.Shape{3}, cfg.FeatureShape)
	assert.Equal(t, []int{-1}, cfg.FeatureAxes)
	assert.Equal(t, 0.99, cfg.Momentum)
	assert.Equal(t, 1e-5, cfg.Epsilon)
	assert.Equal(t, nn.BiasedVariance, cfg.Variance)

	bn := newBatchNorm(t, cfg)
	assert.Equal(t, nn.Training, bn.Mode())
	assert.Equal(t, []float32{0, 0, 0}, bn.RunningMean().Data())
	assert.Equal(t, []float32{1, 1, 1}, bn.RunningVar().Data())
	assert.Equal(t, []float32{1, 1, 1}, bn.Scale.Tensor().Data())
	assert.Equal(t, []float32{0, 0, 0}, bn.Bias.Tensor().Data())
	assert.Len(t, bn.Parameters(), 2)
}

func TestBatchNorm_TrainingNormalizes(t *testing.T) {
	backend := cpu.New()
	bn := newBatchNorm(t, nn.DefaultBatchNormConfig(3))
	x := tensor.Randn[float32](tensor.Shape{32, 3}, rng.New(0, "x"), backend).MulScalar(4).AddScalar(7)

	y, err := bn.Forward(x)
	require.NoError(t, err)

	mean, variance := columnStats(y.Data(), 32, 3)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, mean, 1e-4)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, variance, 1e-3)
}

func TestBatchNorm_RunningStatsAfterOneStep(t *testing.T) {
	backend := cpu.New()
	cfg := nn.DefaultBatchNormConfig(2)
	cfg.Momentum = 0.9
	bn := newBatchNorm(t, cfg)

	x, err := tensor.FromSlice([]float32{1, 10, 3, 20, 5, 30, 7, 40}, tensor.Shape{4, 2}, backend)
	require.NoError(t, err)
	batchMean, batchVar := columnStats(x.Data(), 4, 2)

	_, err = bn.Forward(x)
	require.NoError(t, err)

	wantMean := []float64{0.1 * batchMean[0], 0.1 * batchMean[1]}
	wantVar := []float64{0.9 + 0.1*batchVar[0], 0.9 + 0.1*batchVar[1]}
	assert.InDeltaSlice(t, wantMean, toFloat64(bn.RunningMean().Data()), 1e-4)
	assert.InDeltaSlice(t, wantVar, toFloat64(bn.RunningVar().Data()), 1e-3)

	nn.SetEvaluationMode[backendT](bn)
	y, err := bn.Forward(x)
	require.NoError(t, err)

	for i := range 4 {
		for j := range 2 {
			want := (float64(x.At(i, j)) - wantMean[j]) / math.Sqrt(wantVar[j]+1e-5)
			assert.InDelta(t, want, float64(y.At(i, j)), 1e-3, "y[%d][%d]", i, j)
		}
	}
	assert.InDeltaSlice(t, wantMean, toFloat64(bn.RunningMean().Data()), 1e-4, "evaluation must not update running stats")
}

func TestBatchNorm_MomentumExtremes(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4, 1}, backend)
	require.NoError(t, err)

	frozen := nn.DefaultBatchNormConfig(1)
	frozen.Momentum = 1
	bnFrozen := newBatchNorm(t, frozen)
	_, err = bnFrozen.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, bnFrozen.RunningMean().Data())
	assert.Equal(t, []float32{1}, bnFrozen.RunningVar().Data())

	replace := nn.DefaultBatchNormConfig(1)
	replace.Momentum = 0
	bnReplace := newBatchNorm(t, replace)
	_, err = bnReplace.Forward(x)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, bnReplace.RunningMean().Data()[0], 1e-6)
	assert.InDelta(t, 1.25, bnReplace.RunningVar().Data()[0], 1e-6)
}

func TestBatchNorm_UnbiasedVariance(t *testing.T) {
	backend := cpu.New()
	cfg := nn.DefaultBatchNormConfig(1)
	cfg.Momentum = 0
	cfg.Variance = nn.UnbiasedVariance
	bn := newBatchNorm(t, cfg)

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4, 1}, backend)
	require.NoError(t, err)
	_, err = bn.Forward(x)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/3.0, bn.RunningVar().Data()[0], 1e-5)

	single := tensor.Ones[float32](tensor.Shape{1, 1}, backend)
	_, err = bn.Forward(single)
	assert.ErrorIs(t, err, nn.ErrInvalidShape)
	assert.InDelta(t, 5.0/3.0, bn.RunningVar().Data()[0], 1e-5, "failed call must not touch running stats")

	nn.SetEvaluationMode[backendT](bn)
	_, err = bn.Forward(single)
	assert.NoError(t, err, "evaluation does not estimate batch variance")
}

func TestBatchNorm_AffineIdentityRecovery(t *testing.T) {
	backend := cpu.New()
	bn := newBatchNorm(t, nn.DefaultBatchNormConfig(3))
	x := tensor.Randn[float32](tensor.Shape{16, 3}, rng.New(1, "x"), backend).MulScalar(2).AddScalar(-1)

	mean, variance := columnStats(x.Data(), 16, 3)
	for j := range 3 {
		bn.Scale.Tensor().Data()[j] = float32(math.Sqrt(variance[j] + 1e-5))
		bn.Bias.Tensor().Data()[j] = float32(mean[j])
	}

	y, err := bn.Forward(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, x.Data(), y.Data(), 1e-4)
}

func TestBatchNorm_MultiAxisFeatures(t *testing.T) {
	backend := cpu.New()
	bn := newBatchNorm(t, nn.BatchNormConfig{
		FeatureShape: tensor.Shape{2, 3},
		FeatureAxes:  []int{1, 2},
		Momentum:     0,
		Epsilon:      1e-5,
	})
	x := tensor.Randn[float32](tensor.Shape{8, 2, 3}, rng.New(2, "x"), backend)

	y, err := bn.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, x.Shape(), y.Shape())

	mean, _ := columnStats(x.Data(), 8, 6)
	assert.Equal(t, tensor.Shape{2, 3}, bn.RunningMean().Shape())
	assert.InDeltaSlice(t, mean, toFloat64(bn.RunningMean().Data()), 1e-5)
}

func TestBatchNorm_ChannelsLast(t *testing.T) {
	backend := cpu.New()
	cfg := nn.DefaultBatchNormConfig(3)
	cfg.Momentum = 0
	bn := newBatchNorm(t, cfg)
	x := tensor.Randn[float32](tensor.Shape{2, 4, 4, 3}, rng.New(3, "x"), backend)

	y, err := bn.Forward(x)
	require.NoError(t, err)

	// Reducing over batch and both spatial axes equals column stats of [32, 3].
	mean, variance := columnStats(x.Data(), 32, 3)
	assert.InDeltaSlice(t, mean, toFloat64(bn.RunningMean().Data()), 1e-5)
	assert.InDeltaSlice(t, variance, toFloat64(bn.RunningVar().Data()), 1e-4)

	yMean, _ := columnStats(y.Data(), 32, 3)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, yMean, 1e-4)
}

func TestBatchNorm_ShapeErrorsLeaveStateUntouched(t *testing.T) {
	backend := cpu.New()
	bn := newBatchNorm(t, nn.DefaultBatchNormConfig(3))
	onAxis0 := newBatchNorm(t, nn.BatchNormConfig{
		FeatureShape: tensor.Shape{4}, FeatureAxes: []int{0}, Momentum: 0.9, Epsilon: 1e-5,
	})
	decreasing := newBatchNorm(t, nn.BatchNormConfig{
		FeatureShape: tensor.Shape{3, 2}, FeatureAxes: []int{2, 1}, Momentum: 0.9, Epsilon: 1e-5,
	})

	tests := []struct {
		name  string
		bn    *nn.BatchNorm[backendT]
		shape tensor.Shape
	}{
		{"rank 1", bn, tensor.Shape{3}},
		{"feature size", bn, tensor.Shape{4, 5}},
		{"batch axis", onAxis0, tensor.Shape{4, 3}},
		{"axes not increasing", decreasing, tensor.Shape{4, 2, 3}},
		{"rank 0", onAxis0, tensor.Shape{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.bn.StateDict()
			_, err := tt.bn.Forward(tensor.Ones[float32](tt.shape, backend))
			assert.ErrorIs(t, err, nn.ErrInvalidShape)
			assert.Equal(t, before, tt.bn.StateDict())
		})
	}
}

func TestBatchNorm_InvalidConfig(t *testing.T) {
	base := nn.DefaultBatchNormConfig(3)

	tests := []struct {
		name   string
		mutate func(c *nn.BatchNormConfig)
	}{
		{"empty feature shape", func(c *nn.BatchNormConfig) { c.FeatureShape = nil; c.FeatureAxes = nil }},
		{"zero feature", func(c *nn.BatchNormConfig) { c.FeatureShape = tensor.Shape{0} }},
		{"axes count", func(c *nn.BatchNormConfig) { c.FeatureAxes = []int{1, 2} }},
		{"duplicate axes", func(c *nn.BatchNormConfig) {
			c.FeatureShape = tensor.Shape{3, 3}
			c.FeatureAxes = []int{1, 1}
		}},
		{"momentum above 1", func(c *nn.BatchNormConfig) { c.Momentum = 1.01 }},
		{"negative momentum", func(c *nn.BatchNormConfig) { c.Momentum = -0.1 }},
		{"NaN momentum", func(c *nn.BatchNormConfig) { c.Momentum = math.NaN() }},
		{"zero epsilon", func(c *nn.BatchNormConfig) { c.Epsilon = 0 }},
		{"unknown estimator", func(c *nn.BatchNormConfig) { c.Variance = nn.VarianceEstimator(7) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.FeatureShape = base.FeatureShape.Clone()
			cfg.FeatureAxes = append([]int(nil), base.FeatureAxes...)
			tt.mutate(&cfg)

			_, err := nn.NewBatchNorm(cfg, cpu.New())
			assert.ErrorIs(t, err, nn.ErrInvalidConfig)
		})
	}
}

func TestBatchNorm_RunningStatsAreCopies(t *testing.T) {
	bn := newBatchNorm(t, nn.DefaultBatchNormConfig(2))

	rm := bn.RunningMean()
	rm.Data()[0] = 99
	sd := bn.StateDict()
	sd["running_var"].AsFloat32()[0] = 99

	assert.Equal(t, []float32{0, 0}, bn.RunningMean().Data())
	assert.Equal(t, []float32{1, 1}, bn.RunningVar().Data())
}

func TestBatchNorm_StateDictAndReset(t *testing.T) {
	backend := cpu.New()
	cfg := nn.DefaultBatchNormConfig(2)
	cfg.Momentum = 0.5
	bn := newBatchNorm(t, cfg)
	x := tensor.Randn[float32](tensor.Shape{8, 2}, rng.New(4, "x"), backend).AddScalar(3)
	_, err := bn.Forward(x)
	require.NoError(t, err)

	state := bn.StateDict()
	assert.ElementsMatch(t, []string{"scale", "bias", "running_mean", "running_var"}, keys(state))

	restored, err := nn.NewBatchNormFromState(cfg, state, backend)
	require.NoError(t, err)
	assert.Equal(t, bn.RunningMean().Data(), restored.RunningMean().Data())
	assert.Equal(t, bn.RunningVar().Data(), restored.RunningVar().Data())

	bn.ResetRunningStats()
	assert.Equal(t, []float32{0, 0}, bn.RunningMean().Data())
	assert.Equal(t, []float32{1, 1}, bn.RunningVar().Data())
}

func TestBatchNorm_LoadStateDictIsAtomic(t *testing.T) {
	backend := cpu.New()
	bn := newBatchNorm(t, nn.DefaultBatchNormConfig(2))

	state := bn.StateDict()
	state["scale"].AsFloat32()[0] = 5
	bad, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	state["running_var"] = bad

	err = bn.LoadStateDict(state)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	assert.Equal(t, []float32{1, 1}, bn.Scale.Tensor().Data(), "no entry may be copied after a failed load")

	delete(state, "running_var")
	assert.ErrorIs(t, bn.LoadStateDict(state), nn.ErrInvalidConfig)

	_, err = nn.NewBatchNormFromState(nn.DefaultBatchNormConfig(2), state, backend)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
}

func TestBatchNorm_ConfigIsCopy(t *testing.T) {
	cfg := nn.DefaultBatchNormConfig(2)
	bn := newBatchNorm(t, cfg)

	cfg.FeatureAxes[0] = 0
	got := bn.Config()
	got.FeatureShape[0] = 9

	assert.Equal(t, []int{-1}, bn.Config().FeatureAxes)
	assert.Equal(t, tensor.Shape{2}, bn.Config().FeatureShape)
}

func toFloat64(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
