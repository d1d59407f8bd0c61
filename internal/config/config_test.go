package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stochnorm/internal/nn"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse_MergesOverDefault(t *testing.T) {
	cfg, err := Parse([]byte(`
seed: 7
model:
  hidden: 32
  dropout:
    p: 0.2
    broadcast_dims: [0]
  batchnorm:
    unbiased: true
server:
  read_timeout: 5s
`))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 32, cfg.Model.Hidden)
	assert.Equal(t, 8, cfg.Model.Inputs, "unset fields keep their defaults")
	assert.Equal(t, 0.99, cfg.Model.BatchNorm.Momentum)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)

	drop := cfg.DropoutConfig()
	assert.Equal(t, 0.2, drop.P)
	assert.Equal(t, []int{0}, drop.BroadcastDims)

	bn := cfg.BatchNormConfig(32)
	assert.Equal(t, nn.UnbiasedVariance, bn.Variance)
	assert.Equal(t, []int{-1}, bn.FeatureAxes)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("modle:\n  hidden: 3\n"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Model.Dropout.P = 1
	cfg.Model.BatchNorm.Epsilon = 0
	cfg.Train.Steps = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	for _, want := range []string{"model.dropout", "model.batchnorm", "train.steps", "loud"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_UnbiasedNeedsTwoSamples(t *testing.T) {
	cfg := Default()
	cfg.Model.BatchNorm.Unbiased = true
	cfg.Train.BatchSize = 1
	assert.ErrorContains(t, cfg.Validate(), "batch_size")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("train:\n  steps: 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Train.Steps)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	p := 0.1
	steps := 5
	unbiased := true

	cfg, err := Default().ApplyOverrides(Overrides{
		DropoutP:      &p,
		Steps:         &steps,
		Unbiased:      &unbiased,
		BroadcastDims: []int{1},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Model.Dropout.P)
	assert.Equal(t, 5, cfg.Train.Steps)
	assert.True(t, cfg.Model.BatchNorm.Unbiased)
	assert.Equal(t, []int{1}, cfg.Model.Dropout.BroadcastDims)
	assert.Equal(t, 32, cfg.Train.BatchSize, "unset overrides leave values alone")

	bad := -0.5
	_, err = Default().ApplyOverrides(Overrides{DropoutP: &bad})
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
}
