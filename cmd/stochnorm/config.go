package main

import (
	"github.com/urfave/cli/v3"

	"github.com/born-ml/stochnorm/internal/config"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML run configuration"},
		seedFlag(),
		&cli.IntFlag{Name: "hidden", Usage: "hidden layer width"},
		&cli.FloatFlag{Name: "p", Usage: "dropout probability"},
		&cli.StringFlag{Name: "broadcast-dims", Usage: "comma-separated dropout broadcast axes"},
		&cli.FloatFlag{Name: "momentum", Usage: "batch norm running statistics decay"},
		&cli.FloatFlag{Name: "epsilon", Usage: "batch norm variance offset"},
		&cli.BoolFlag{Name: "unbiased", Usage: "use the m-1 variance estimator"},
		&cli.IntFlag{Name: "steps", Usage: "training-mode forward passes"},
		&cli.IntFlag{Name: "batch-size", Usage: "samples per forward pass"},
	}
}

// loadConfig reads --config (or the defaults) and applies every flag the
// user set explicitly on top of it.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	var o config.Overrides
	if cmd.IsSet("seed") {
		seed, err := seedValue(cmd)
		if err != nil {
			return config.Config{}, err
		}
		o.Seed = &seed
	}
	if cmd.IsSet("log-level") {
		o.LogLevel = ptr(cmd.String("log-level"))
	}
	if cmd.IsSet("log-format") {
		o.LogFormat = ptr(cmd.String("log-format"))
	}
	if cmd.IsSet("hidden") {
		o.Hidden = ptr(int(cmd.Int("hidden")))
	}
	if cmd.IsSet("p") {
		o.DropoutP = ptr(cmd.Float("p"))
	}
	if cmd.IsSet("broadcast-dims") {
		dims, err := parseDims(cmd.String("broadcast-dims"))
		if err != nil {
			return config.Config{}, err
		}
		o.BroadcastDims = append([]int{}, dims...)
	}
	if cmd.IsSet("momentum") {
		o.Momentum = ptr(cmd.Float("momentum"))
	}
	if cmd.IsSet("epsilon") {
		o.Epsilon = ptr(cmd.Float("epsilon"))
	}
	if cmd.IsSet("unbiased") {
		o.Unbiased = ptr(cmd.Bool("unbiased"))
	}
	if cmd.IsSet("steps") {
		o.Steps = ptr(int(cmd.Int("steps")))
	}
	if cmd.IsSet("batch-size") {
		o.BatchSize = ptr(int(cmd.Int("batch-size")))
	}
	if cmd.IsSet("addr") {
		o.Address = ptr(cmd.String("addr"))
	}
	if cmd.IsSet("read-timeout") {
		o.ReadTimeout = ptr(cmd.Duration("read-timeout"))
	}
	return cfg.ApplyOverrides(o)
}

func ptr[T any](v T) *T {
	return &v
}
