package nn

import (
	"github.com/born-ml/stochnorm/internal/tensor"
)

// activation implements the parameter-free, mode-independent part of Module.
type activation[B tensor.Backend] struct {
	modeState
}

// Parameters returns an empty slice (activations have no parameters).
func (activation[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// StateDict returns an empty map.
func (activation[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dict; there is nothing to load.
func (activation[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadState[B](stateDict, nil)
}

func (activation[B]) stateTargets() []stateTarget[B] {
	return nil
}

// ReLU applies max(0, x) element-wise.
//
// Example:
//
//	relu := nn.NewReLU[B]()
//	output, _ := relu.Forward(input)
type ReLU[B tensor.Backend] struct {
	activation[B]
}

// NewReLU creates a new ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return r.Apply(input, r.Mode())
}

// Apply applies ReLU. The mode has no effect.
func (r *ReLU[B]) Apply(input *tensor.Tensor[float32, B], _ Mode) (*tensor.Tensor[float32, B], error) {
	return input.ReLU(), nil
}

// Sigmoid applies 1/(1+exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] struct {
	activation[B]
}

// NewSigmoid creates a new Sigmoid activation.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies Sigmoid.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return s.Apply(input, s.Mode())
}

// Apply applies Sigmoid. The mode has no effect.
func (s *Sigmoid[B]) Apply(input *tensor.Tensor[float32, B], _ Mode) (*tensor.Tensor[float32, B], error) {
	return input.Sigmoid(), nil
}

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[B tensor.Backend] struct {
	activation[B]
}

// NewTanh creates a new Tanh activation.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies Tanh.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return t.Apply(input, t.Mode())
}

// Apply applies Tanh. The mode has no effect.
func (t *Tanh[B]) Apply(input *tensor.Tensor[float32, B], _ Mode) (*tensor.Tensor[float32, B], error) {
	return input.Tanh(), nil
}
