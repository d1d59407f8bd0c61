package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/stochnorm/internal/backend/cpu"
	"github.com/born-ml/stochnorm/internal/logger"
	"github.com/born-ml/stochnorm/internal/metrics"
	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

func batchnormCmd() *cli.Command {
	return &cli.Command{
		Name:  "batchnorm",
		Usage: "Accumulate running statistics on synthetic data, then normalize in evaluation mode",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "features", Usage: "number of features", Value: 3},
			&cli.IntFlag{Name: "batch", Usage: "batch size", Value: 32},
			&cli.IntFlag{Name: "steps", Usage: "training-mode calls", Value: 200},
			&cli.FloatFlag{Name: "momentum", Usage: "running statistics decay α", Value: 0.99},
			&cli.FloatFlag{Name: "epsilon", Usage: "variance offset", Value: 1e-5},
			&cli.BoolFlag{Name: "unbiased", Usage: "use the m-1 variance estimator"},
			seedFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx).With("command", "batchnorm")
			out := stdout(cmd)

			seed, err := seedValue(cmd)
			if err != nil {
				return err
			}
			features, batch, steps := int(cmd.Int("features")), int(cmd.Int("batch")), int(cmd.Int("steps"))
			if features <= 0 || batch <= 0 || steps <= 0 {
				return fmt.Errorf("--features, --batch and --steps must be positive")
			}

			cfg := nn.DefaultBatchNormConfig(features)
			cfg.Momentum = cmd.Float("momentum")
			cfg.Epsilon = cmd.Float("epsilon")
			if cmd.Bool("unbiased") {
				cfg.Variance = nn.UnbiasedVariance
			}

			backend := cpu.New()
			bn, err := nn.NewBatchNorm(cfg, backend)
			if err != nil {
				return err
			}

			// Feature j has mean j and standard deviation j+1.
			data := rng.NewRegistry(seed).Stream("data")
			shift := tensor.Zeros[float32](tensor.Shape{1, features}, backend)
			scale := tensor.Zeros[float32](tensor.Shape{1, features}, backend)
			for j := range features {
				shift.Data()[j] = float32(j)
				scale.Data()[j] = float32(j + 1)
			}
			sample := func() *tensor.Tensor[float32, *cpu.CPUBackend] {
				return tensor.Randn[float32](tensor.Shape{batch, features}, data, backend).Mul(scale).Add(shift)
			}

			for step := range steps {
				if _, err := bn.Forward(sample()); err != nil {
					return err
				}
				if (step+1)%50 == 0 {
					log.Debug("step", "step", step+1, "running_mean", bn.RunningMean().Data())
				}
			}
			_, _ = fmt.Fprintf(out, "running mean: %s\n", formatValues(bn.RunningMean().Data()))
			_, _ = fmt.Fprintf(out, "running var:  %s\n", formatValues(bn.RunningVar().Data()))

			nn.SetEvaluationMode[*cpu.CPUBackend](bn)
			x := sample()
			y, err := bn.Forward(x)
			if err != nil {
				return err
			}
			acc := metrics.NewAccumulator(features)
			for i := range batch {
				if err := acc.Add(y.Data()[i*features : (i+1)*features]); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(out, "evaluation output mean: %s\n", formatFloat64(acc.Mean()))
			_, _ = fmt.Fprintf(out, "evaluation output var:  %s\n", formatFloat64(acc.Variance()))
			return nil
		},
	}
}

func formatFloat64(data []float64) string {
	vals := make([]float32, len(data))
	for i, v := range data {
		vals[i] = float32(v)
	}
	return formatValues(vals)
}
