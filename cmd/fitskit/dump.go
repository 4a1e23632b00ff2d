package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/fitskit/internal/api"
	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/logger"
)

type hduDump struct {
	Header api.HeaderResp  `json:"header" yaml:"header"`
	Data   *api.DataWindow `json:"data,omitempty" yaml:"data,omitempty"`
}

func dumpCmd() *cli.Command {
	var (
		path   string
		hdu    int
		format string
		offset int
		limit  int
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Print a document summary, or one HDU's header and data, as JSON or YAML",
		ArgsUsage: "<file>",
		Flags: append(decodeFlags(),
			fileFlag(&path),
			&cli.IntFlag{Name: "hdu", Usage: "HDU index to dump (-1 = document summary)", Value: -1, Destination: &hdu},
			&cli.StringFlag{Name: "format", Usage: "output format (json, yaml)", Value: "json", Destination: &format},
			&cli.IntFlag{Name: "offset", Usage: "first table row or pixel", Destination: &offset},
			&cli.IntFlag{Name: "limit", Usage: "number of rows or pixels", Value: api.DefaultDataLimit, Destination: &limit},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyDecodeConfig(cmd, LoadConfig())

			p, err := fileArg(cmd, path)
			if err != nil {
				return err
			}
			f, err := fits.Open(p, decodeOptions(log))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", p, err), 1)
			}
			defer func() { _ = f.Close() }()

			v, err := buildDump(p, f.Document, hdu, offset, limit)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := writeDump(os.Stdout, format, v); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

func buildDump(path string, doc *fits.Document, index, offset, limit int) (any, error) {
	if index < 0 {
		return api.NewDocumentSummary("", path, time.Time{}, doc), nil
	}
	hdu, ok := doc.HDU(index)
	if !ok {
		return nil, fmt.Errorf("hdu %d out of range (document has %d)", index, doc.HDUCount())
	}
	out := hduDump{Header: api.NewHeaderResp(index, hdu)}
	window, err := api.NewDataWindow(index, hdu, offset, limit)
	switch {
	case err == nil:
		out.Data = &window
	case !errors.Is(err, api.ErrNoData):
		return nil, err
	}
	return out, nil
}

func writeDump(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
