package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/beam/internal/api"
	"github.com/samcharles93/beam/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		readTimeout   time.Duration
		maxConcurrent int64
		storeCapacity int64
		noWebUI       bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the decode REST API",
		Flags: append(engineFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-concurrent",
				Usage:       "searches allowed to run at once (0 = unbounded)",
				Value:       4,
				Destination: &maxConcurrent,
			},
			&cli.Int64Flag{
				Name:        "store-capacity",
				Usage:       "decode results kept for GET /v1/decode/:id",
				Value:       api.DefaultStoreCapacity,
				Destination: &storeCapacity,
			},
			&cli.BoolFlag{
				Name:        "no-webui",
				Usage:       "do not serve the decode page at /",
				Destination: &noWebUI,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &addr, &readTimeout, &maxConcurrent, &storeCapacity)

			loader, err := newLoader()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loaded, err := loader.Load()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load engine: %v", err), 1)
			}
			cfg := loaded.Engine.Config()
			log.Info("engine ready",
				"models", loaded.Engine.Models(), "vocab_size", loaded.Vocab.Len(),
				"beam_size", cfg.BeamSize, "top_beams", cfg.TopBeams,
				"decode_alpha", cfg.Alpha, "decode_length", cfg.DecodeLength)

			opts := []api.ServerOption{api.WithMaxConcurrent(int(maxConcurrent))}
			if !noWebUI {
				opts = append(opts, api.WithWebUI())
			}
			server := api.NewServer(api.NewDecodeStore(int(storeCapacity)), loaded.Engine, opts...)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(withLogger(log))
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// withLogger puts the command logger on every request context so the
// engine logs through it.
func withLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))
			return next(c)
		}
	}
}
