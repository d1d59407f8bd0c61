package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the mode/forward/state HTTP API over the mlp model",
		Flags: append(configFlags(),
			&cli.StringFlag{Name: "addr", Usage: "listen address", Value: "127.0.0.1:8080"},
			&cli.DurationFlag{Name: "read-timeout", Usage: "read header timeout", Value: 30 * time.Second},
			&cli.StringFlag{Name: "load", Usage: "restore the model from a checkpoint"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := configLogger(cmd, cfg)
			if err != nil {
				return err
			}
			log = log.With("command", "serve")
			m, err := buildMLP(cfg)
			if err != nil {
				return err
			}
			if path := cmd.String("load"); path != "" {
				if _, err := nn.LoadCheckpoint[backendT](path, m.model); err != nil {
					return err
				}
				log.Info("checkpoint loaded", "path", path, "mode", m.model.Mode().String())
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.New[backendT](m.model, m.backend, log).Register(e)

			log.Info("starting server", "address", cfg.Server.Address)
			sc := echo.StartConfig{
				Address: cfg.Server.Address,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = cfg.Server.ReadTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
