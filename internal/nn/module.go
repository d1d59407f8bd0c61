// Package nn implements mode-dependent neural network modules.
//
// The package provides:
//   - Module interface: forward computation, parameters, mode and state
//   - Dropout: inverted dropout driven by an explicit random stream
//   - BatchNorm: batch normalization with running statistics
//   - Linear, activations and Sequential for composing models
//   - Mode propagation: SetTrainingMode / SetEvaluationMode over a whole tree
//
// Every module starts in Training mode. A container owns the mode of the
// modules it holds, so a tree has exactly one mode at any time. Apply takes
// the mode explicitly; Forward is Apply with the tree's mode.
//
// Module has unexported methods: implementations live in this package or
// embed one of its modules.
package nn

import (
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build larger models:
//
//	model := nn.NewSequential[B](
//	    linear,
//	    batchNorm,
//	    dropout,
//	    nn.NewReLU[B](),
//	)
//	nn.SetEvaluationMode[B](model)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output in the module's current mode.
	Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)

	// Apply computes the output in the given mode, ignoring the stored one.
	Apply(input *tensor.Tensor[float32, B], mode Mode) (*tensor.Tensor[float32, B], error)

	// Parameters returns all trainable parameters, including nested ones.
	Parameters() []*Parameter[B]

	// Mode returns the mode of the tree the module belongs to.
	// Switch it with SetMode, SetTrainingMode or SetEvaluationMode.
	Mode() Mode

	// StateDict returns named copies of parameters and buffers.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores parameters and buffers from a state dict.
	// The keys must be exactly those of StateDict; nothing is copied on error.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	modeNode() *modeState
	stateTargets() []stateTarget[B]
}
