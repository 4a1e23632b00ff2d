package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/logger"
)

var (
	logLevel        string
	logFormat       string
	debug           bool
	maxExtensions   int
	maxHeaderCards  int
	imageExtensions bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func decodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-extensions",
			Usage:       "stop after this many extension HDUs",
			Value:       fits.DefaultMaxExtensions,
			Destination: &maxExtensions,
		},
		&cli.IntFlag{
			Name:        "max-header-cards",
			Usage:       "reject headers with more cards than this",
			Value:       fits.DefaultMaxHeaderCards,
			Destination: &maxHeaderCards,
		},
		&cli.BoolFlag{
			Name:        "image-extensions",
			Usage:       "decode pixel data of IMAGE extensions",
			Destination: &imageExtensions,
		},
	}
}

func decodeOptions(log logger.Logger) fits.Options {
	return fits.Options{
		MaxExtensions:         maxExtensions,
		MaxHeaderCards:        maxHeaderCards,
		DecodeImageExtensions: imageExtensions,
		Logger:                log.WithGroup("fits"),
	}
}

// fileArg takes the FITS path from --file or the first positional argument.
func fileArg(cmd *cli.Command, flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue, nil
	}
	if p := strings.TrimSpace(cmd.Args().First()); p != "" {
		return p, nil
	}
	return "", cli.Exit("error: a FITS file is required (--file or first argument)", 1)
}

func fileFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to a FITS file",
		Destination: dest,
	}
}
