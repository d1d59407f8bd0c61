package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/stochnorm/internal/nn"
)

func mlpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mlp",
		Usage: "Run a linear/batchnorm/dropout/relu/linear model in training, then evaluation mode",
		Flags: append(configFlags(),
			&cli.StringFlag{Name: "save", Usage: "write a checkpoint of the final model to this path"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := stdout(cmd)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := configLogger(cmd, cfg)
			if err != nil {
				return err
			}
			log = log.With("command", "mlp")
			m, err := buildMLP(cfg)
			if err != nil {
				return err
			}

			for step := 1; step <= cfg.Train.Steps; step++ {
				x, y, err := m.batch()
				if err != nil {
					return err
				}
				pred, err := m.model.Forward(x)
				if err != nil {
					return err
				}
				loss, err := m.mse(pred, y)
				if err != nil {
					return err
				}
				log.Debug("training step", "step", step, "mse", loss, "dropout_forks", m.dropout.Stream().Counter())
			}
			_, _ = fmt.Fprintf(out, "training: %d steps, modes %v\n", cfg.Train.Steps, modeNames(nn.Modes[backendT](m.model)))
			_, _ = fmt.Fprintf(out, "running mean: %s\n", formatValues(m.bn.RunningMean().Data()))

			m.model.SetEvaluationMode()
			x, y, err := m.batch()
			if err != nil {
				return err
			}
			first, err := m.model.Forward(x)
			if err != nil {
				return err
			}
			second, err := m.model.Forward(x)
			if err != nil {
				return err
			}
			loss, err := m.mse(first, y)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "evaluation: modes %v, deterministic %t, mse %.4f\n",
				modeNames(nn.Modes[backendT](m.model)), slices.Equal(first.Data(), second.Data()), loss)

			if path := cmd.String("save"); path != "" {
				ckpt := &nn.Checkpoint[backendT]{
					Model:    m.model,
					Metadata: map[string]string{"model": "mlp", "seed": fmt.Sprint(cfg.Seed)},
				}
				if err := ckpt.Save(path); err != nil {
					return err
				}
				log.Info("checkpoint saved", "path", path)
			}
			return nil
		},
	}
}
