package nn_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stochnorm/internal/backend/cpu"
	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/serialization"
	"github.com/born-ml/stochnorm/internal/tensor"
)

func TestCheckpoint_SaveLoad(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.json")

	model, _, _ := nestedModel(t)
	x := tensor.Randn[float32](tensor.Shape{8, 3}, rng.New(0, "x"), backend)
	_, err := model.Forward(x)
	require.NoError(t, err)
	model.SetEvaluationMode()

	ckpt := &nn.Checkpoint[backendT]{Model: model, Metadata: map[string]string{"run": "test"}}
	require.NoError(t, ckpt.Save(path))

	restored, _, _ := nestedModel(t)
	loaded, err := nn.LoadCheckpoint[backendT](path, restored)
	require.NoError(t, err)

	assert.Equal(t, "test", loaded.Metadata["run"])
	assert.NotContains(t, loaded.Metadata, "mode")
	assert.Equal(t, []nn.Mode{nn.Evaluation}, nn.Modes[backendT](restored))
	assert.Equal(t, model.StateDict(), restored.StateDict())

	want, err := model.Forward(x)
	require.NoError(t, err)
	got, err := restored.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())
}

func TestCheckpoint_Errors(t *testing.T) {
	assert.Error(t, (&nn.Checkpoint[backendT]{}).Save(filepath.Join(t.TempDir(), "x.json")))

	model, _, _ := nestedModel(t)
	_, err := nn.LoadCheckpoint[backendT](filepath.Join(t.TempDir(), "missing.json"), model)
	assert.Error(t, err)
}

func TestCheckpoint_ResumesDropoutStreams(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.json")
	x := tensor.Randn[float32](tensor.Shape{8, 3}, rng.New(0, "x"), backend)

	model, inner, outer := nestedModel(t)
	for range 3 {
		_, err := model.Forward(x)
		require.NoError(t, err)
	}
	require.NoError(t, (&nn.Checkpoint[backendT]{Model: model}).Save(path))

	restored, restoredInner, restoredOuter := nestedModel(t)
	loaded, err := nn.LoadCheckpoint[backendT](path, restored)
	require.NoError(t, err)
	assert.Empty(t, loaded.Metadata, "mode and stream entries are consumed")
	assert.Equal(t, uint64(3), restoredInner.Stream().Counter())
	assert.Equal(t, outer.Stream().Counter(), restoredOuter.Stream().Counter())

	// Both models are in training mode and draw the same next masks.
	want, err := model.Forward(x)
	require.NoError(t, err)
	got, err := restored.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())
	assert.Equal(t, inner.Stream().Counter(), restoredInner.Stream().Counter())
}

func TestCheckpoint_InvalidMetadataLeavesModelUntouched(t *testing.T) {
	model, inner, _ := nestedModel(t)
	before := model.StateDict()

	for name, meta := range map[string]map[string]string{
		"mode":    {"mode": "inference"},
		"counter": {"stream." + inner.Stream().Key().String(): "-1"},
	} {
		t.Run(name, func(t *testing.T) {
			src, _, _ := nestedModel(t)
			_, err := src.Forward(tensor.Ones[float32](tensor.Shape{2, 3}, cpu.New()))
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "model.json")
			require.NoError(t, serialization.WriteFile(path, src.StateDict(), meta))

			_, err = nn.LoadCheckpoint[backendT](path, model)
			assert.ErrorIs(t, err, nn.ErrInvalidConfig)
			assert.Equal(t, before, model.StateDict())
			assert.Equal(t, uint64(0), inner.Stream().Counter())
		})
	}
}

func TestCheckpoint_RejectsForeignState(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.json")
	bn, err := nn.NewBatchNorm(nn.DefaultBatchNormConfig(4), backend)
	require.NoError(t, err)
	require.NoError(t, (&nn.Checkpoint[backendT]{Model: nn.NewSequential[backendT](bn)}).Save(path))

	model, _, _ := nestedModel(t)
	_, err = nn.LoadCheckpoint[backendT](path, model)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
}
