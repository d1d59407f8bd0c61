package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/serialization"
	"github.com/born-ml/stochnorm/internal/tensor"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(context.Background(), append([]string{"stochnorm", "--log-level", "error"}, args...))
	return buf.String(), err
}

func TestParseDims(t *testing.T) {
	dims, err := parseDims(" 0, -1 ")
	require.NoError(t, err)
	assert.Equal(t, []int{0, -1}, dims)

	dims, err = parseDims("")
	require.NoError(t, err)
	assert.Nil(t, dims)

	_, err = parseDims("0,x")
	assert.Error(t, err)
}

func TestDropoutCommand(t *testing.T) {
	out, err := run(t, "dropout", "--p", "0.5", "--n", "4", "--trials", "2000", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "training call 1:")
	assert.Contains(t, out, "training call 2:")
	assert.Contains(t, out, "identity: true")
	assert.Contains(t, out, "mean over 2000 training calls")
}

func TestDropoutCommand_Errors(t *testing.T) {
	_, err := run(t, "dropout", "--p", "1")
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)

	_, err = run(t, "dropout", "--broadcast-dims", "5")
	assert.ErrorIs(t, err, nn.ErrInvalidShape)

	_, err = run(t, "dropout", "--seed", "-1")
	assert.Error(t, err)
}

func TestBatchnormCommand(t *testing.T) {
	out, err := run(t, "batchnorm", "--features", "2", "--steps", "20", "--momentum", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "running mean:")
	assert.Contains(t, out, "evaluation output mean:")

	_, err = run(t, "batchnorm", "--momentum", "2")
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
}

func TestMLPCommand_SavesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("model:\n  hidden: 6\ntrain:\n  steps: 3\n  batch_size: 8\n"), 0o600))
	savePath := filepath.Join(dir, "model.json")

	out, err := run(t, "mlp", "--config", cfgPath, "--p", "0.25", "--save", savePath)
	require.NoError(t, err)
	assert.Contains(t, out, "training: 3 steps, modes [training]")
	assert.Contains(t, out, "evaluation: modes [evaluation], deterministic true")

	state, err := serialization.ReadFile(savePath, tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, "evaluation", state.Metadata["mode"])
	require.Contains(t, state.Tensors, "1.running_mean")
	assert.Equal(t, tensor.Shape{6}, state.Tensors["1.running_mean"].Shape())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("model:\n  dropout:\n    p: 0.9\n"), 0o600))

	_, err := run(t, "mlp", "--config", cfgPath, "--p", "1.5")
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)

	_, err = run(t, "mlp", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version:")
}
