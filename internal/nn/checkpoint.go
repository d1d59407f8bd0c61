package nn

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/serialization"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Checkpoint is a snapshot of a module's parameters and buffers.
//
// The module mode is recorded in the metadata under "mode" and restored on load,
// so a model saved in evaluation mode comes back in evaluation mode. The fork
// counter of every stochastic module is recorded under "stream.<key>", so
// training resumes with the masks that would have come next.
//
// Example:
//
//	ckpt := &nn.Checkpoint[B]{Model: model, Metadata: map[string]string{"run": "demo"}}
//	err := ckpt.Save("model.json")
//
//	ckpt, err := nn.LoadCheckpoint[B]("model.json", model)
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]
	Metadata  map[string]string
	CreatedAt time.Time
}

const (
	modeMetadataKey      = "mode"
	streamMetadataPrefix = "stream."
)

// Save writes the model state dict and metadata to path.
func (c *Checkpoint[B]) Save(path string) error {
	if c.Model == nil {
		return fmt.Errorf("checkpoint model is nil")
	}
	meta := maps.Clone(c.Metadata)
	if meta == nil {
		meta = make(map[string]string)
	}
	meta[modeMetadataKey] = c.Model.Mode().String()
	for _, st := range streams(c.Model) {
		meta[streamMetadataPrefix+st.Key().String()] = strconv.FormatUint(st.Counter(), 10)
	}

	if err := serialization.WriteFile(path, c.Model.StateDict(), meta); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores model from the state file at path.
//
// The state dict must match the model exactly (see Module.LoadStateDict).
// Stream counters are restored for the model's streams whose keys were
// saved; streams built from a different seed keep their counters. Nothing
// in model changes if the file or its metadata is invalid.
func LoadCheckpoint[B tensor.Backend](path string, model Module[B]) (*Checkpoint[B], error) {
	state, err := serialization.ReadFile(path, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	meta := state.Metadata
	mode := model.Mode()
	if s, ok := meta[modeMetadataKey]; ok {
		if mode, err = ParseMode(s); err != nil {
			return nil, fmt.Errorf("%w: checkpoint %v", ErrInvalidConfig, err)
		}
		delete(meta, modeMetadataKey)
	}
	counters := make(map[string]uint64)
	for key, value := range meta {
		id, ok := strings.CutPrefix(key, streamMetadataPrefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: checkpoint stream %s counter %q", ErrInvalidConfig, id, value)
		}
		counters[id] = n
		delete(meta, key)
	}

	if err := model.LoadStateDict(state.Tensors); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	SetMode(model, mode)
	for _, st := range streams(model) {
		if n, ok := counters[st.Key().String()]; ok {
			st.Seek(n)
		}
	}

	return &Checkpoint[B]{
		Model:     model,
		Metadata:  meta,
		CreatedAt: state.CreatedAt,
	}, nil
}

// streams returns the random streams of every stochastic module in m.
func streams[B tensor.Backend](m Module[B]) []*rng.Stream {
	var out []*rng.Stream
	Walk(m, func(sub Module[B]) {
		if st, ok := sub.(Stochastic); ok && st.Stream() != nil {
			out = append(out, st.Stream())
		}
	})
	return out
}
