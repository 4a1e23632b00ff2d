package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/api"
	"github.com/samcharles93/fitskit/internal/docstore"
	"github.com/samcharles93/fitskit/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr         string
		readTimeout  time.Duration
		loadTimeout  time.Duration
		maxDocuments int
		previewWidth int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve decoded FITS documents over a JSON API",
		Flags: append(decodeFlags(),
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
			&cli.DurationFlag{
				Name:        "load-timeout",
				Usage:       "how long a request waits for a document to decode",
				Value:       time.Minute,
				Destination: &loadTimeout,
			},
			&cli.IntFlag{
				Name:        "max-documents",
				Usage:       "open documents kept before the least recently used is closed",
				Value:       docstore.DefaultMaxDocuments,
				Destination: &maxDocuments,
			},
			&cli.IntFlag{
				Name:        "preview-width",
				Usage:       "default preview width in pixels",
				Value:       api.DefaultPreviewWidth,
				Destination: &previewWidth,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, LoadConfig(), &addr, &maxDocuments, &previewWidth)

			store := docstore.New(docstore.Config{
				MaxDocuments:  maxDocuments,
				DecodeOptions: decodeOptions(log),
				Logger:        log.WithGroup("docstore"),
			})
			defer func() {
				if err := store.CloseAll(); err != nil {
					log.Warn("close documents", "error", err)
				}
			}()

			server := api.NewServer(store, api.ServerConfig{
				PreviewWidth: previewWidth,
				LoadTimeout:  loadTimeout,
				Logger:       log.WithGroup("api"),
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "max_documents", maxDocuments)
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
