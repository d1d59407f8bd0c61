package nn

import (
	"fmt"
	"slices"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// stateEntry looks up name in stateDict and checks it against shape.
// A missing entry, dtype mismatch or shape mismatch is ErrInvalidConfig.
func stateEntry(stateDict map[string]*tensor.RawTensor, name string, shape tensor.Shape) (*tensor.RawTensor, error) {
	raw, ok := stateDict[name]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: missing %q in state dict", ErrInvalidConfig, name)
	}
	if raw.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%w: %s dtype mismatch: expected float32, got %s", ErrInvalidConfig, name, raw.DType())
	}
	if !raw.Shape().Equal(shape) {
		return nil, fmt.Errorf("%w: %s shape mismatch: expected %v, got %v", ErrInvalidConfig, name, shape, raw.Shape())
	}
	return raw, nil
}

// stateTarget pairs a destination tensor with its state dict key.
type stateTarget[B tensor.Backend] struct {
	name string
	dst  *tensor.Tensor[float32, B]
}

// loadState validates stateDict against targets before copying any of them.
// Every target must be present with its shape and no other key may appear,
// so a failed load leaves all destinations untouched.
func loadState[B tensor.Backend](stateDict map[string]*tensor.RawTensor, targets []stateTarget[B]) error {
	known := make(map[string]bool, len(targets))
	for _, t := range targets {
		known[t.name] = true
	}
	var unknown []string
	for name := range stateDict {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("%w: unexpected keys in state dict: %v", ErrInvalidConfig, unknown)
	}

	sources := make([]*tensor.RawTensor, len(targets))
	for i, t := range targets {
		raw, err := stateEntry(stateDict, t.name, t.dst.Shape())
		if err != nil {
			return err
		}
		sources[i] = raw
	}
	for i, t := range targets {
		copy(t.dst.Data(), sources[i].AsFloat32())
	}
	return nil
}
