package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Mode selects training or evaluation behavior of a module.
//
// The zero value is Training, so every module starts in training mode.
type Mode int

// Module modes.
const (
	Training Mode = iota
	Evaluation
)

// String returns "training" or "evaluation".
func (m Mode) String() string {
	switch m {
	case Training:
		return "training"
	case Evaluation:
		return "evaluation"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "training"/"train" and "evaluation"/"eval", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "training", "train":
		return Training, nil
	case "evaluation", "eval":
		return Evaluation, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want training or evaluation)", s)
	}
}

// modeState stores a module's mode. Embedded by every module.
//
// A module adopted by a container hands its mode to the container: Mode
// reads the root of the tree, so every module in a tree reports the same
// mode and switching any of them switches all of them.
type modeState struct {
	mode  Mode
	owner *modeState
}

// Mode returns the mode of the tree the module belongs to.
func (s *modeState) Mode() Mode {
	return s.root().mode
}

func (s *modeState) modeNode() *modeState {
	return s
}

func (s *modeState) root() *modeState {
	for s.owner != nil {
		s = s.owner
	}
	return s
}

// adopt makes child part of the tree rooted at s's root.
// It panics if child already belongs to a container or would create a cycle.
func (s *modeState) adopt(child *modeState) {
	if child.owner != nil {
		panic("nn: module already belongs to a container")
	}
	if s.root() == child {
		panic("nn: module cannot contain itself")
	}
	child.owner = s
}

// Container is implemented by modules that hold sub-modules.
type Container[B tensor.Backend] interface {
	Children() []Module[B]
}

// Stochastic is implemented by modules that draw random numbers on each
// training call.
type Stochastic interface {
	Stream() *rng.Stream
}

// SetMode switches the whole tree containing m to mode.
// For a module nested in a container this switches the outermost container.
func SetMode[B tensor.Backend](m Module[B], mode Mode) {
	m.modeNode().root().mode = mode
}

// SetTrainingMode switches the whole tree containing m to Training.
func SetTrainingMode[B tensor.Backend](m Module[B]) {
	SetMode(m, Training)
}

// SetEvaluationMode switches the whole tree containing m to Evaluation.
func SetEvaluationMode[B tensor.Backend](m Module[B]) {
	SetMode(m, Evaluation)
}

// Walk calls fn for m and then, depth-first, for every module nested in it.
func Walk[B tensor.Backend](m Module[B], fn func(Module[B])) {
	fn(m)
	if c, ok := m.(Container[B]); ok {
		for _, child := range c.Children() {
			Walk(child, fn)
		}
	}
}

// Modes returns the distinct modes reported anywhere in the tree rooted at m.
// Every module in a tree shares one mode, so the result has one element.
func Modes[B tensor.Backend](m Module[B]) []Mode {
	var seen [2]bool
	var modes []Mode
	Walk(m, func(sub Module[B]) {
		mode := sub.Mode()
		if mode >= 0 && int(mode) < len(seen) {
			if seen[mode] {
				return
			}
			seen[mode] = true
		}
		modes = append(modes, mode)
	})
	return modes
}
