package nn

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
//   - x has shape [batch_size, in_features]
//   - W has shape [out_features, in_features]
//   - b has shape [out_features]
//
// Weights use Xavier initialization from an explicit source; biases start at zero.
// Linear behaves the same in both modes.
//
// Example:
//
//	backend := cpu.New()
//	init := rng.New(0, "init")
//	layer := nn.NewLinear(784, 128, init, backend)
//	output, err := layer.Forward(input) // [32, 784] -> [32, 128]
type Linear[B tensor.Backend] struct {
	modeState
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a new Linear layer, drawing initial weights from src.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, src rng.Source, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("NewLinear: feature counts must be positive, got %d and %d", inFeatures, outFeatures))
	}
	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, src, backend)
	bias := Zeros(tensor.Shape{outFeatures}, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		backend:     backend,
	}
}

// Forward computes x @ W.T + b.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return l.Apply(input, l.Mode())
}

// Apply computes x @ W.T + b. The mode has no effect.
func (l *Linear[B]) Apply(input *tensor.Tensor[float32, B], _ Mode) (*tensor.Tensor[float32, B], error) {
	shape := input.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: linear expects [batch, features], got %v", ErrInvalidShape, shape)
	}
	if shape[1] != l.inFeatures {
		return nil, fmt.Errorf("%w: linear expects %d input features, got %d", ErrInvalidShape, l.inFeatures, shape[1])
	}

	output := input.MatMul(l.weight.Tensor().Transpose())
	return output.Add(l.bias.Tensor().Reshape(1, l.outFeatures)), nil
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns copies of weight and bias.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor().Raw().Clone(),
		"bias":   l.bias.Tensor().Raw().Clone(),
	}
}

// LoadStateDict loads weight and bias. Nothing is copied unless both are valid.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadState(stateDict, l.stateTargets())
}

func (l *Linear[B]) stateTargets() []stateTarget[B] {
	return []stateTarget[B]{
		{"weight", l.weight.Tensor()},
		{"bias", l.bias.Tensor()},
	}
}
