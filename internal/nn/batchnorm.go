package nn

import (
	"fmt"
	"math"
	"slices"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// VarianceEstimator selects how batch variance is estimated.
type VarianceEstimator int

const (
	// BiasedVariance divides the squared deviations by m.
	BiasedVariance VarianceEstimator = iota
	// UnbiasedVariance divides by m-1 and needs at least two samples per feature.
	UnbiasedVariance
)

// String returns "biased" or "unbiased".
func (v VarianceEstimator) String() string {
	switch v {
	case BiasedVariance:
		return "biased"
	case UnbiasedVariance:
		return "unbiased"
	default:
		return fmt.Sprintf("VarianceEstimator(%d)", int(v))
	}
}

// BatchNormConfig configures a BatchNorm layer.
type BatchNormConfig struct {
	// FeatureShape is the shape of the per-feature statistics and parameters.
	FeatureShape tensor.Shape

	// FeatureAxes are the input axes holding FeatureShape, in increasing order.
	// Negative axes count from the end. Every other axis is reduced over.
	FeatureAxes []int

	// Momentum is the running-statistics decay α:
	// running = α*running + (1-α)*batch.
	Momentum float64

	// Epsilon is added to the variance before taking the reciprocal square root.
	Epsilon float64

	// Variance selects the batch variance estimator.
	Variance VarianceEstimator
}

// DefaultBatchNormConfig returns the configuration for numFeatures features
// on the last axis: momentum 0.99, epsilon 1e-5, biased variance.
func DefaultBatchNormConfig(numFeatures int) BatchNormConfig {
	return BatchNormConfig{
		FeatureShape: tensor.Shape{numFeatures},
		FeatureAxes:  []int{-1},
		Momentum:     0.99,
		Epsilon:      1e-5,
		Variance:     BiasedVariance,
	}
}

// Validate reports whether the configuration is usable.
func (c BatchNormConfig) Validate() error {
	if len(c.FeatureShape) == 0 {
		return fmt.Errorf("%w: batchnorm feature shape is empty", ErrInvalidConfig)
	}
	if err := c.FeatureShape.Validate(); err != nil {
		return fmt.Errorf("%w: batchnorm feature shape: %w", ErrInvalidConfig, err)
	}
	if len(c.FeatureAxes) != len(c.FeatureShape) {
		return fmt.Errorf("%w: %d feature axes for feature shape %v", ErrInvalidConfig, len(c.FeatureAxes), c.FeatureShape)
	}
	for i, ax := range c.FeatureAxes {
		if slices.Contains(c.FeatureAxes[i+1:], ax) {
			return fmt.Errorf("%w: duplicate feature axis %d", ErrInvalidConfig, ax)
		}
	}
	if math.IsNaN(c.Momentum) || c.Momentum < 0 || c.Momentum > 1 {
		return fmt.Errorf("%w: momentum %g outside [0, 1]", ErrInvalidConfig, c.Momentum)
	}
	if math.IsNaN(c.Epsilon) || c.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidConfig, c.Epsilon)
	}
	if c.Variance != BiasedVariance && c.Variance != UnbiasedVariance {
		return fmt.Errorf("%w: unknown variance estimator %s", ErrInvalidConfig, c.Variance)
	}
	return nil
}

// BatchNorm normalizes inputs per feature and applies a learned affine map.
//
// Training mode normalizes with the statistics of the current batch and
// folds them into the running statistics:
//
//	y = scale * (x - mean) / sqrt(var + eps) + bias
//	running_mean = α*running_mean + (1-α)*mean
//	running_var  = α*running_var  + (1-α)*var
//
// Evaluation mode normalizes with the running statistics and mutates nothing.
// Running statistics start at mean 0, variance 1.
//
// Example:
//
//	bn, err := nn.NewBatchNorm(nn.DefaultBatchNormConfig(64), backend)
//	y, err := bn.Forward(x) // x: [batch, 64]
type BatchNorm[B tensor.Backend] struct {
	modeState
	cfg BatchNormConfig

	Scale *Parameter[B] // γ, FeatureShape, initialized to ones
	Bias  *Parameter[B] // β, FeatureShape, initialized to zeros

	runningMean *tensor.Tensor[float32, B]
	runningVar  *tensor.Tensor[float32, B]
	backend     B
}

// NewBatchNorm creates a BatchNorm layer with identity affine parameters.
func NewBatchNorm[B tensor.Backend](cfg BatchNormConfig, backend B) (*BatchNorm[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.FeatureShape = cfg.FeatureShape.Clone()
	cfg.FeatureAxes = slices.Clone(cfg.FeatureAxes)

	return &BatchNorm[B]{
		cfg:         cfg,
		Scale:       NewParameter("scale", Ones(cfg.FeatureShape, backend)),
		Bias:        NewParameter("bias", Zeros(cfg.FeatureShape, backend)),
		runningMean: Zeros(cfg.FeatureShape, backend),
		runningVar:  Ones(cfg.FeatureShape, backend),
		backend:     backend,
	}, nil
}

// NewBatchNormFromState creates a BatchNorm layer and restores scale, bias
// and running statistics from stateDict.
func NewBatchNormFromState[B tensor.Backend](cfg BatchNormConfig, stateDict map[string]*tensor.RawTensor, backend B) (*BatchNorm[B], error) {
	bn, err := NewBatchNorm(cfg, backend)
	if err != nil {
		return nil, err
	}
	if err := bn.LoadStateDict(stateDict); err != nil {
		return nil, err
	}
	return bn, nil
}

// Forward normalizes input in the layer's current mode.
func (bn *BatchNorm[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return bn.Apply(input, bn.Mode())
}

// Apply normalizes input in mode.
//
// All shape checks run before any state changes: a failed call leaves the
// running statistics untouched.
func (bn *BatchNorm[B]) Apply(input *tensor.Tensor[float32, B], mode Mode) (*tensor.Tensor[float32, B], error) {
	l, err := bn.layout(input.Shape())
	if err != nil {
		return nil, err
	}
	if mode == Evaluation {
		mean := bn.runningMean.Reshape(l.statShape...)
		variance := bn.runningVar.Reshape(l.statShape...)
		return bn.normalize(input, mean, variance, l), nil
	}

	if bn.cfg.Variance == UnbiasedVariance && l.samples < 2 {
		return nil, fmt.Errorf("%w: unbiased variance needs at least 2 samples per feature, got %d", ErrInvalidShape, l.samples)
	}

	mean := reduceMean(input, l.reduceAxes)
	centered := input.Sub(mean)
	variance := reduceMean(centered.Mul(centered), l.reduceAxes)
	if bn.cfg.Variance == UnbiasedVariance {
		variance = variance.MulScalar(float32(l.samples) / float32(l.samples-1))
	}
	output := bn.normalize(input, mean, variance, l)

	alpha := float32(bn.cfg.Momentum)
	newMean := bn.runningMean.MulScalar(alpha).Add(mean.Reshape(bn.cfg.FeatureShape...).MulScalar(1 - alpha))
	newVar := bn.runningVar.MulScalar(alpha).Add(variance.Reshape(bn.cfg.FeatureShape...).MulScalar(1 - alpha))
	copy(bn.runningMean.Data(), newMean.Data())
	copy(bn.runningVar.Data(), newVar.Data())

	return output, nil
}

// normalize computes scale*(x-mean)*rsqrt(var+eps) + bias, with mean and
// variance already shaped for broadcasting.
func (bn *BatchNorm[B]) normalize(x, mean, variance *tensor.Tensor[float32, B], l bnLayout) *tensor.Tensor[float32, B] {
	inv := variance.AddScalar(float32(bn.cfg.Epsilon)).Rsqrt()
	xhat := x.Sub(mean).Mul(inv)
	scale := bn.Scale.Tensor().Reshape(l.statShape...)
	bias := bn.Bias.Tensor().Reshape(l.statShape...)
	return xhat.Mul(scale).Add(bias)
}

// reduceMean averages over axes, keeping them as size-1 dimensions.
func reduceMean[B tensor.Backend](x *tensor.Tensor[float32, B], axes []int) *tensor.Tensor[float32, B] {
	for _, ax := range axes {
		x = x.MeanDim(ax, true)
	}
	return x
}

// bnLayout describes how an input shape maps onto the feature shape.
type bnLayout struct {
	reduceAxes []int        // every non-feature axis
	statShape  tensor.Shape // input shape with reduced axes set to 1
	samples    int          // elements per feature
}

func (bn *BatchNorm[B]) layout(shape tensor.Shape) (bnLayout, error) {
	if len(shape) < 2 {
		return bnLayout{}, fmt.Errorf("%w: batchnorm expects rank >= 2, got %v", ErrInvalidShape, shape)
	}

	isFeature := make([]bool, len(shape))
	prev := -1
	for i, dim := range bn.cfg.FeatureAxes {
		ax, err := shape.NormalizeAxis(dim)
		if err != nil {
			return bnLayout{}, fmt.Errorf("%w: feature axis %d for input shape %v", ErrInvalidShape, dim, shape)
		}
		if ax == 0 {
			return bnLayout{}, fmt.Errorf("%w: feature axis %d resolves to the batch axis of %v", ErrInvalidShape, dim, shape)
		}
		if ax <= prev {
			return bnLayout{}, fmt.Errorf("%w: feature axes %v are not increasing for input shape %v", ErrInvalidShape, bn.cfg.FeatureAxes, shape)
		}
		if shape[ax] != bn.cfg.FeatureShape[i] {
			return bnLayout{}, fmt.Errorf("%w: input shape %v has size %d at axis %d, want %d",
				ErrInvalidShape, shape, shape[ax], ax, bn.cfg.FeatureShape[i])
		}
		isFeature[ax] = true
		prev = ax
	}

	l := bnLayout{statShape: make(tensor.Shape, len(shape)), samples: 1}
	for ax, size := range shape {
		if isFeature[ax] {
			l.statShape[ax] = size
			continue
		}
		l.statShape[ax] = 1
		l.reduceAxes = append(l.reduceAxes, ax)
		l.samples *= size
	}
	return l, nil
}

// Config returns a copy of the layer configuration.
func (bn *BatchNorm[B]) Config() BatchNormConfig {
	cfg := bn.cfg
	cfg.FeatureShape = cfg.FeatureShape.Clone()
	cfg.FeatureAxes = slices.Clone(cfg.FeatureAxes)
	return cfg
}

// RunningMean returns a copy of the running mean.
func (bn *BatchNorm[B]) RunningMean() *tensor.Tensor[float32, B] {
	return bn.runningMean.Clone()
}

// RunningVar returns a copy of the running variance.
func (bn *BatchNorm[B]) RunningVar() *tensor.Tensor[float32, B] {
	return bn.runningVar.Clone()
}

// ResetRunningStats resets the running mean to 0 and the running variance to 1.
func (bn *BatchNorm[B]) ResetRunningStats() {
	clear(bn.runningMean.Data())
	for i := range bn.runningVar.Data() {
		bn.runningVar.Data()[i] = 1
	}
}

// Parameters returns [scale, bias].
func (bn *BatchNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Scale, bn.Bias}
}

// StateDict returns copies of scale, bias, running_mean and running_var.
func (bn *BatchNorm[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"scale":        bn.Scale.Tensor().Raw().Clone(),
		"bias":         bn.Bias.Tensor().Raw().Clone(),
		"running_mean": bn.runningMean.Raw().Clone(),
		"running_var":  bn.runningVar.Raw().Clone(),
	}
}

// LoadStateDict restores all four tensors. Nothing is copied unless every
// entry is present with the feature shape and no other key is given.
func (bn *BatchNorm[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadState(stateDict, bn.stateTargets())
}

func (bn *BatchNorm[B]) stateTargets() []stateTarget[B] {
	return []stateTarget[B]{
		{"scale", bn.Scale.Tensor()},
		{"bias", bn.Bias.Tensor()},
		{"running_mean", bn.runningMean},
		{"running_var", bn.runningVar},
	}
}
