package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/logger"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type inspectOptions struct {
	headers bool
	columns bool
	hdu     int
}

func inspectCmd() *cli.Command {
	var (
		path string
		opts inspectOptions
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarise the HDUs of a FITS file",
		ArgsUsage: "<file>",
		Flags: append(decodeFlags(),
			fileFlag(&path),
			&cli.BoolFlag{Name: "headers", Usage: "print header cards", Destination: &opts.headers},
			&cli.BoolFlag{Name: "columns", Usage: "print table column descriptors", Destination: &opts.columns},
			&cli.IntFlag{Name: "hdu", Usage: "restrict --headers/--columns to one HDU (-1 = all)", Value: -1, Destination: &opts.hdu},
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

			renderInspect(os.Stdout, p, f.Document, opts)
			return nil
		},
	}
}

func renderInspect(w io.Writer, path string, doc *fits.Document, opts inspectOptions) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(path))
	_, _ = fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d bytes, %d HDUs", doc.Size(), doc.HDUCount())))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%-4s %-9s %-10s %6s %10s %10s %12s  %s",
		"#", "KIND", "XTENSION", "CARDS", "HEADER", "DATA", "DATA BYTES", "PAYLOAD")))
	for i, hdu := range doc.HDUs() {
		p := hdu.Provenance
		_, _ = fmt.Fprintf(w, "%-4d %-9s %-10s %6d %10d %10d %12d  %s\n",
			i, hdu.Type, orDash(hdu.Extension), hdu.Header.Len(),
			p.HeaderStart, p.DataStart, p.DataLength, describePayload(hdu))
	}
	if doc.Truncation != nil {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, warnStyle.Render("truncated: ")+doc.Truncation.Error())
	}

	for i, hdu := range doc.HDUs() {
		if opts.hdu >= 0 && opts.hdu != i {
			continue
		}
		if opts.headers {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("HDU %d header", i)))
			for _, c := range hdu.Header.Cards {
				line := fmt.Sprintf("%-8s = %-20s", c.Key, c.Value.String())
				if c.Comment != "" {
					line += dimStyle.Render(" / " + c.Comment)
				}
				_, _ = fmt.Fprintln(w, line)
			}
			for _, text := range hdu.Header.Commentary {
				_, _ = fmt.Fprintln(w, dimStyle.Render(text))
			}
		}
		if t, ok := hdu.Table(); ok && opts.columns {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("HDU %d columns", i)))
			for _, col := range t.Columns() {
				d := col.Descriptor()
				_, _ = fmt.Fprintf(w, "%-16s %-10s %-12s %6d  %s\n", d.Name, d.Format, d.Type, d.Repeat, d.Unit)
			}
		}
	}
}

func describePayload(hdu *fits.HDU) string {
	switch p := hdu.Payload.(type) {
	case *fits.Image:
		axes := make([]string, len(p.Axes))
		for i, a := range p.Axes {
			axes[i] = fmt.Sprint(a)
		}
		return fmt.Sprintf("image %s BITPIX=%d", strings.Join(axes, "x"), p.BitPix)
	case *fits.Table:
		kind := "binary"
		if p.ASCII {
			kind = "ascii"
		}
		return fmt.Sprintf("%s table %d rows x %d columns", kind, p.Rows, p.NumColumns())
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
