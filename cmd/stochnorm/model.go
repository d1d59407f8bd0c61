package main

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/backend/cpu"
	"github.com/born-ml/stochnorm/internal/config"
	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/synth"
	"github.com/born-ml/stochnorm/internal/tensor"
)

type backendT = *cpu.CPUBackend

// mlp is linear -> batchnorm -> dropout -> relu -> linear with its data source.
type mlp struct {
	model   *nn.Sequential[backendT]
	bn      *nn.BatchNorm[backendT]
	dropout *nn.Dropout[backendT]
	loss    *nn.MSELoss[backendT]
	backend backendT
	cfg     config.Config
	data    *rng.Stream
	weights []float32
}

func buildMLP(cfg config.Config) (*mlp, error) {
	backend := cpu.New()
	streams := rng.NewRegistry(cfg.Seed)

	bn, err := nn.NewBatchNorm(cfg.BatchNormConfig(cfg.Model.Hidden), backend)
	if err != nil {
		return nil, fmt.Errorf("batchnorm: %w", err)
	}
	drop, err := nn.NewDropout(cfg.DropoutConfig(), streams.Stream("dropout"), backend)
	if err != nil {
		return nil, fmt.Errorf("dropout: %w", err)
	}
	model := nn.NewSequential[backendT](
		nn.NewLinear(cfg.Model.Inputs, cfg.Model.Hidden, streams.Stream("init.0"), backend),
		bn,
		drop,
		nn.NewReLU[backendT](),
		nn.NewLinear(cfg.Model.Hidden, cfg.Model.Outputs, streams.Stream("init.4"), backend),
	)

	truth := streams.Stream("truth")
	weights := make([]float32, cfg.Model.Inputs)
	for i := range weights {
		weights[i] = float32(truth.NormFloat64())
	}

	return &mlp{
		model:   model,
		bn:      bn,
		dropout: drop,
		loss:    nn.NewMSELoss(backend),
		backend: backend,
		cfg:     cfg,
		data:    streams.Stream("data"),
		weights: weights,
	}, nil
}

// batch draws one synthetic regression batch.
func (m *mlp) batch() (*tensor.Tensor[float32, backendT], *tensor.Tensor[float32, backendT], error) {
	return synth.LinearData(m.cfg.Train.BatchSize, m.weights, 0.5, m.cfg.Data.Noise, m.data, m.backend)
}

// mse returns the mean squared error between prediction and target.
func (m *mlp) mse(pred, target *tensor.Tensor[float32, backendT]) (float64, error) {
	loss, err := m.loss.Forward(pred, target)
	if err != nil {
		return 0, err
	}
	return float64(loss.Data()[0]), nil
}

func modeNames(modes []nn.Mode) []string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return names
}
