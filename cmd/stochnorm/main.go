// Command stochnorm demonstrates and serves the dropout and batch
// normalization layers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "stochnorm",
		Usage:  "Dropout and batch normalization with explicit training/evaluation modes",
		Flags:  loggingFlags(),
		Before: setupLogger,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			dropoutCmd(),
			batchnormCmd(),
			mlpCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}
