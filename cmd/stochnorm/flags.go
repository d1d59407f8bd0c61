package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/stochnorm/internal/config"
	"github.com/born-ml/stochnorm/internal/logger"
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (text, json)",
			Value: logger.FormatText,
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging (shorthand for --log-level=debug)",
		},
	}
}

func seedFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "seed",
		Usage: "root seed for every random stream",
		Value: 0,
	}
}

// setupLogger installs the logger selected by the logging flags into ctx.
func setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	levelName := cmd.String("log-level")
	if cmd.Bool("debug") {
		levelName = "debug"
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return ctx, err
	}
	log, err := logger.NewWithFormat(os.Stderr, cmd.String("log-format"), level)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// configLogger builds the logger for a loaded configuration. Flags were
// already folded into cfg, so the file decides only what the user left unset.
func configLogger(cmd *cli.Command, cfg config.Config) (logger.Logger, error) {
	levelName := cfg.LogLevel
	if cmd.Bool("debug") {
		levelName = "debug"
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return logger.NewWithFormat(os.Stderr, cfg.LogFormat, level)
}

// seedValue reads the --seed flag, rejecting negative values.
func seedValue(cmd *cli.Command) (uint64, error) {
	seed := int64(cmd.Int("seed"))
	if seed < 0 {
		return 0, fmt.Errorf("--seed must be non-negative, got %d", seed)
	}
	return uint64(seed), nil
}

// parseDims parses a comma-separated list of axes such as "0,-1".
func parseDims(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	dims := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid axis %q in %q", p, s)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func formatValues(data []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', 4, 32))
	}
	b.WriteByte(']')
	return b.String()
}
