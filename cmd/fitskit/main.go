package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:   "fitskit",
		Usage:  "Decode, inspect and serve FITS files",
		Flags:  loggingFlags(),
		Before: setupLogging,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			dumpCmd(),
			previewCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the process logger into the command context.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := LoadConfig()
	applyLoggingConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log := logger.ForFormat(logFormat, os.Stderr, level)
	return logger.WithContext(ctx, log), nil
}
