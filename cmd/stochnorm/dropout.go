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

func dropoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "dropout",
		Usage: "Apply dropout to a tensor of ones in both modes",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "p", Usage: "drop probability in [0, 1)", Value: 0.5},
			&cli.IntFlag{Name: "batch", Usage: "rows of the input", Value: 2},
			&cli.IntFlag{Name: "n", Usage: "columns of the input", Value: 8},
			&cli.IntFlag{Name: "trials", Usage: "training calls averaged for the expectation check", Value: 1000},
			&cli.StringFlag{Name: "broadcast-dims", Usage: "comma-separated axes that share one keep/drop decision"},
			seedFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx).With("command", "dropout")
			out := stdout(cmd)

			seed, err := seedValue(cmd)
			if err != nil {
				return err
			}
			dims, err := parseDims(cmd.String("broadcast-dims"))
			if err != nil {
				return err
			}
			rows, cols, trials := int(cmd.Int("batch")), int(cmd.Int("n")), int(cmd.Int("trials"))
			if rows <= 0 || cols <= 0 || trials <= 0 {
				return fmt.Errorf("--batch, --n and --trials must be positive")
			}

			backend := cpu.New()
			streams := rng.NewRegistry(seed)
			drop, err := nn.NewDropout(nn.DropoutConfig{P: cmd.Float("p"), BroadcastDims: dims}, streams.Stream("dropout"), backend)
			if err != nil {
				return err
			}
			x := tensor.Ones[float32](tensor.Shape{rows, cols}, backend)

			for call := 1; call <= 2; call++ {
				y, err := drop.Forward(x)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "training call %d: %s\n", call, formatValues(y.Data()))
			}

			y, err := drop.Apply(x, nn.Evaluation)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "evaluation:      %s (identity: %t)\n", formatValues(y.Data()), y == x)

			acc := metrics.NewAccumulator(x.NumElements())
			for range trials {
				y, err := drop.Forward(x)
				if err != nil {
					return err
				}
				if err := acc.Add(y.Data()); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(out, "mean over %d training calls: %.4f (expected 1)\n", trials, acc.GrandMean())
			log.Debug("done", "p", drop.P(), "forks", drop.Stream().Counter())
			return nil
		},
	}
}
