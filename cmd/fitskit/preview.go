package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/internal/preview"
)

func previewCmd() *cli.Command {
	var (
		path  string
		out   string
		hdu   int
		width int
		plane int
	)

	return &cli.Command{
		Name:      "preview",
		Usage:     "Render an image HDU to a grayscale PNG",
		ArgsUsage: "<file>",
		Flags: append(decodeFlags(),
			fileFlag(&path),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output PNG path", Required: true, Destination: &out},
			&cli.IntFlag{Name: "hdu", Usage: "HDU index", Destination: &hdu},
			&cli.IntFlag{Name: "width", Usage: "output width in pixels (0 = native)", Destination: &width},
			&cli.IntFlag{Name: "plane", Usage: "cube plane to render", Destination: &plane},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := LoadConfig()
			applyDecodeConfig(cmd, cfg)
			if cfg.PreviewWidth != nil && !cmd.IsSet("width") {
				width = *cfg.PreviewWidth
			}

			p, err := fileArg(cmd, path)
			if err != nil {
				return err
			}
			opts := decodeOptions(log)
			if hdu > 0 {
				opts.DecodeImageExtensions = true
			}
			f, err := fits.Open(p, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", p, err), 1)
			}
			defer func() { _ = f.Close() }()

			if err := writePreview(f.Document, hdu, out, preview.Options{Width: width, Plane: plane}); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("preview written", "out", out, "hdu", hdu, "width", width, "plane", plane)
			return nil
		},
	}
}

func writePreview(doc *fits.Document, index int, out string, opts preview.Options) (err error) {
	hdu, ok := doc.HDU(index)
	if !ok {
		return fmt.Errorf("hdu %d out of range (document has %d)", index, doc.HDUCount())
	}
	img, ok := hdu.Image()
	if !ok {
		return fmt.Errorf("hdu %d is a %s HDU without pixel data", index, hdu.Type)
	}
	gray, err := preview.Render(img, opts)
	if err != nil {
		return err
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return preview.EncodePNG(file, gray)
}
