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

func TestParameter(t *testing.T) {
	backend := cpu.New()
	data, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	param := nn.NewParameter("test_param", data)
	assert.Equal(t, "test_param", param.Name())
	assert.Same(t, data, param.Tensor())
	assert.Nil(t, param.Grad())

	grad := nn.Zeros(tensor.Shape{3}, backend)
	param.SetGrad(grad)
	assert.Same(t, grad, param.Grad())
	param.ZeroGrad()
	assert.Nil(t, param.Grad())
}

func TestXavier_BoundAndDeterminism(t *testing.T) {
	backend := cpu.New()
	bound := math.Sqrt(6.0 / float64(20+30))

	a := nn.Xavier(20, 30, tensor.Shape{30, 20}, rng.New(0, "init"), backend)
	b := nn.Xavier(20, 30, tensor.Shape{30, 20}, rng.New(0, "init"), backend)

	assert.Equal(t, a.Data(), b.Data())
	for _, v := range a.Data() {
		assert.LessOrEqual(t, math.Abs(float64(v)), bound)
	}
}

func TestLinear_Forward(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(2, 3, rng.New(0, "init"), backend)

	copy(layer.Weight().Tensor().Data(), []float32{1, 0, 0, 1, 1, 1})
	copy(layer.Bias().Tensor().Data(), []float32{0.5, -0.5, 0})

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	y, err := layer.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, y.Shape())
	assert.Equal(t, []float32{1.5, 1.5, 3, 3.5, 3.5, 7}, y.Data())

	assert.Equal(t, 2, layer.InFeatures())
	assert.Equal(t, 3, layer.OutFeatures())
	assert.Len(t, layer.Parameters(), 2)
}

func TestLinear_ShapeErrors(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(2, 3, rng.New(0, "init"), backend)

	_, err := layer.Forward(tensor.Ones[float32](tensor.Shape{4}, backend))
	assert.ErrorIs(t, err, nn.ErrInvalidShape)
	_, err = layer.Forward(tensor.Ones[float32](tensor.Shape{4, 3}, backend))
	assert.ErrorIs(t, err, nn.ErrInvalidShape)

	assert.Panics(t, func() { nn.NewLinear(0, 3, rng.New(0, "init"), backend) })
}

func TestLinear_StateDict(t *testing.T) {
	backend := cpu.New()
	src := nn.NewLinear(2, 3, rng.New(0, "a"), backend)
	dst := nn.NewLinear(2, 3, rng.New(0, "b"), backend)
	require.NotEqual(t, src.Weight().Tensor().Data(), dst.Weight().Tensor().Data())

	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	assert.Equal(t, src.Weight().Tensor().Data(), dst.Weight().Tensor().Data())

	wrong := nn.NewLinear(3, 3, rng.New(0, "c"), backend)
	assert.ErrorIs(t, wrong.LoadStateDict(src.StateDict()), nn.ErrInvalidConfig)
}

func TestActivations(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	relu, err := nn.NewReLU[backendT]().Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 2}, relu.Data())

	sig, err := nn.NewSigmoid[backendT]().Apply(x, nn.Evaluation)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.26894142, 0.5, 0.8807971}, sig.Data(), 1e-6)

	tanh := nn.NewTanh[backendT]()
	out, err := tanh.Forward(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{-0.7615942, 0, 0.9640276}, out.Data(), 1e-6)
	assert.Empty(t, tanh.Parameters())
	assert.Empty(t, tanh.StateDict())
}

func TestSequential_StateDict(t *testing.T) {
	backend := cpu.New()
	build := func(seed uint64) *nn.Sequential[backendT] {
		bn, err := nn.NewBatchNorm(nn.DefaultBatchNormConfig(3), backend)
		require.NoError(t, err)
		return nn.NewSequential[backendT](
			nn.NewLinear(2, 3, rng.New(seed, "init"), backend),
			nn.NewSequential[backendT](bn, nn.NewReLU[backendT]()),
		)
	}

	src := build(1)
	_, err := src.Forward(tensor.Randn[float32](tensor.Shape{5, 2}, rng.New(0, "x"), backend))
	require.NoError(t, err)

	state := src.StateDict()
	assert.ElementsMatch(t, []string{
		"0.weight", "0.bias",
		"1.0.scale", "1.0.bias", "1.0.running_mean", "1.0.running_var",
	}, keys(state))

	dst := build(2)
	require.NoError(t, dst.LoadStateDict(state))
	assert.Equal(t, state, dst.StateDict())
	assert.Len(t, dst.Parameters(), 4)
	assert.Len(t, dst.Children(), 2)

	delete(state, "1.0.running_var")
	err = build(3).LoadStateDict(state)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "1.0.running_var")
}

func TestSequential_LoadStateDictIsAtomic(t *testing.T) {
	backend := cpu.New()
	newBN := func() *nn.BatchNorm[backendT] {
		bn, err := nn.NewBatchNorm(nn.DefaultBatchNormConfig(2), backend)
		require.NoError(t, err)
		return bn
	}
	bn0, bn1 := newBN(), newBN()
	model := nn.NewSequential[backendT](bn0, bn1)

	state := model.StateDict()
	copy(state["0.running_mean"].AsFloat32(), []float32{7, 7})
	bad, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	state["1.running_var"] = bad

	err = model.LoadStateDict(state)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "1.running_var")
	assert.Equal(t, []float32{0, 0}, bn0.RunningMean().Data(), "earlier modules must not be loaded after a failure")
}

func TestSequential_LoadStateDictRequiresExactKeys(t *testing.T) {
	backend := cpu.New()
	bn, err := nn.NewBatchNorm(nn.DefaultBatchNormConfig(2), backend)
	require.NoError(t, err)
	model := nn.NewSequential[backendT](nn.NewReLU[backendT](), bn)

	err = model.LoadStateDict(map[string]*tensor.RawTensor{})
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "1.scale")

	state := model.StateDict()
	state["2.weight"] = state["1.scale"]
	err = model.LoadStateDict(state)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "2.weight")

	delete(state, "2.weight")
	state["0.scale"] = state["1.scale"]
	assert.ErrorIs(t, model.LoadStateDict(state), nn.ErrInvalidConfig, "activations take no state")

	delete(state, "0.scale")
	assert.NoError(t, model.LoadStateDict(state))
}
