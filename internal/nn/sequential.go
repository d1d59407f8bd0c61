package nn

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// Sequential is a container module that chains modules together.
//
// Each module's output becomes the next module's input. The container owns
// the mode of every module it holds, recursively: all of them report the
// container's mode, and Apply runs all of them in the mode it was given.
// A module can belong to one container only.
//
// Example:
//
//	model := nn.NewSequential[B](linear, batchNorm, dropout, nn.NewReLU[B]())
//	output, err := model.Forward(input)
//
//	model.SetEvaluationMode()
//	prediction, err := model.Forward(input) // every child in evaluation mode
type Sequential[B tensor.Backend] struct {
	modeState
	modules []Module[B]
}

// NewSequential creates a new Sequential container in Training mode.
//
// Panics if a module already belongs to another container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	s := &Sequential[B]{}
	for _, module := range modules {
		s.Add(module)
	}
	return s
}

// Forward applies all modules in sequence in the container's mode.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return s.Apply(input, s.Mode())
}

// Apply applies all modules in sequence, each in mode.
// The first failing module's error is returned, prefixed with its index.
func (s *Sequential[B]) Apply(input *tensor.Tensor[float32, B], mode Mode) (*tensor.Tensor[float32, B], error) {
	output := input
	for i, module := range s.modules {
		var err error
		output, err = module.Apply(output, mode)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
	}
	return output, nil
}

// SetTrainingMode switches the whole tree to Training.
func (s *Sequential[B]) SetTrainingMode() {
	SetTrainingMode[B](s)
}

// SetEvaluationMode switches the whole tree to Evaluation.
func (s *Sequential[B]) SetEvaluationMode() {
	SetEvaluationMode[B](s)
}

// Children returns the contained modules.
func (s *Sequential[B]) Children() []Module[B] {
	out := make([]Module[B], len(s.modules))
	copy(out, s.modules)
	return out
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module. From then on it reports the container's mode.
//
//	model := nn.NewSequential[B]()
//	model.Add(linear)
//	model.Add(nn.NewReLU[B]())
//
// Panics if module already belongs to a container or contains s.
func (s *Sequential[B]) Add(module Module[B]) {
	s.adopt(module.modeNode())
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// StateDict returns the state of every module, keyed "<index>.<name>".
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, module := range s.modules {
		for name, raw := range module.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = raw
		}
	}
	return stateDict
}

// LoadStateDict loads "<index>.<name>" keyed state into every module.
// The whole tree is validated before anything is copied: each key of
// StateDict must be present with its shape and no other key may appear.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadState(stateDict, s.stateTargets())
}

func (s *Sequential[B]) stateTargets() []stateTarget[B] {
	var targets []stateTarget[B]
	for i, module := range s.modules {
		for _, t := range module.stateTargets() {
			targets = append(targets, stateTarget[B]{name: fmt.Sprintf("%d.%s", i, t.name), dst: t.dst})
		}
	}
	return targets
}
