package nn

import (
	"fmt"
	"math"
	"slices"

	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// DropoutConfig configures a Dropout layer.
type DropoutConfig struct {
	// P is the probability of zeroing an element, in [0, 1).
	P float64

	// BroadcastDims lists axes along which one keep/drop decision is shared.
	// Negative axes count from the end. Checked against the input rank per call.
	BroadcastDims []int
}

// Validate reports whether the configuration is usable.
func (c DropoutConfig) Validate() error {
	switch {
	case math.IsNaN(c.P):
		return fmt.Errorf("%w: dropout probability is NaN", ErrInvalidConfig)
	case c.P < 0 || c.P > 1:
		return fmt.Errorf("%w: dropout probability %g outside [0, 1]", ErrInvalidConfig, c.P)
	case c.P == 1:
		return fmt.Errorf("%w: dropout probability 1 drops every element", ErrInvalidConfig)
	}
	return nil
}

// Dropout randomly zeroes elements during training and rescales the rest.
//
// In Training mode each element is kept with probability 1-p and kept
// elements are multiplied by 1/(1-p), so the expected output equals the
// input. In Evaluation mode the input is returned unchanged.
//
// Every training call forks a fresh sub-stream from the layer's stream, so
// successive calls draw different masks while the whole sequence stays
// reproducible from the stream's seed.
//
// Example:
//
//	stream := rng.New(0, "dropout")
//	drop, err := nn.NewDropout(nn.DropoutConfig{P: 0.5}, stream, backend)
//	y, err := drop.Forward(x)  // training: masked and scaled
//	nn.SetEvaluationMode[B](drop)
//	y, err = drop.Forward(x)   // evaluation: y == x
type Dropout[B tensor.Backend] struct {
	modeState
	p             float64
	broadcastDims []int
	stream        *rng.Stream
	backend       B
}

// NewDropout creates a Dropout layer drawing its masks from stream.
// A nil stream is accepted only when P is 0.
func NewDropout[B tensor.Backend](cfg DropoutConfig, stream *rng.Stream, backend B) (*Dropout[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stream == nil && cfg.P > 0 {
		return nil, fmt.Errorf("%w: dropout with p=%g needs a random stream", ErrInvalidConfig, cfg.P)
	}
	return &Dropout[B]{
		p:             cfg.P,
		broadcastDims: slices.Clone(cfg.BroadcastDims),
		stream:        stream,
		backend:       backend,
	}, nil
}

// Forward applies dropout in the layer's current mode.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return d.Apply(input, d.Mode())
}

// Apply applies dropout in mode.
//
// Evaluation returns input itself without touching the stream. Training
// validates BroadcastDims against the input rank (ErrInvalidShape, stream
// untouched), then advances the stream exactly once.
func (d *Dropout[B]) Apply(input *tensor.Tensor[float32, B], mode Mode) (*tensor.Tensor[float32, B], error) {
	if mode == Evaluation {
		return input, nil
	}

	maskShape, err := d.maskShape(input.Shape())
	if err != nil {
		return nil, err
	}

	var step *rng.Stream
	if d.stream != nil {
		step = d.stream.Fork()
	}
	if d.p == 0 {
		return input, nil
	}

	keep := 1 - d.p
	scale := float32(1 / keep)
	mask := tensor.Zeros[float32](maskShape, d.backend)
	data := mask.Data()
	for i := range data {
		if step.Bernoulli(keep) {
			data[i] = scale
		}
	}
	return input.Mul(mask), nil
}

// maskShape returns shape with every broadcast axis collapsed to 1.
func (d *Dropout[B]) maskShape(shape tensor.Shape) (tensor.Shape, error) {
	out := shape.Clone()
	for _, dim := range d.broadcastDims {
		ax, err := shape.NormalizeAxis(dim)
		if err != nil {
			return nil, fmt.Errorf("%w: dropout broadcast dim %d for input shape %v", ErrInvalidShape, dim, shape)
		}
		out[ax] = 1
	}
	return out, nil
}

// P returns the drop probability.
func (d *Dropout[B]) P() float64 {
	return d.p
}

// BroadcastDims returns a copy of the shared-decision axes.
func (d *Dropout[B]) BroadcastDims() []int {
	return slices.Clone(d.broadcastDims)
}

// Stream returns the layer's random stream (nil for a p=0 layer built without one).
func (d *Dropout[B]) Stream() *rng.Stream {
	return d.stream
}

// Parameters returns an empty slice (Dropout has no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// StateDict returns an empty map.
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dict; there is nothing to load.
func (d *Dropout[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadState(stateDict, d.stateTargets())
}

func (d *Dropout[B]) stateTargets() []stateTarget[B] {
	return nil
}
