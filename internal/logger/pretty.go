package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// PrettyHandler is a slog.Handler that formats logs with colors for CLI
// output. Colors are dropped when NO_COLOR is set.
type PrettyHandler struct {
	opts    slog.HandlerOptions
	w       io.Writer
	mu      *sync.Mutex
	group   string
	attrs   []slog.Attr
	noColor bool
}

// NewPrettyHandler creates a new PrettyHandler.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{
		opts:    *opts,
		w:       w,
		mu:      &sync.Mutex{},
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle writes: [TIME] LEVEL message key=value ... (file:line)
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)

	buf = h.color(buf, colorGray)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, time.DateTime)
	buf = append(buf, ']')
	buf = h.color(buf, colorReset)
	buf = append(buf, ' ')

	buf = h.color(buf, levelColor(r.Level))
	buf = h.color(buf, colorBold)
	buf = append(buf, padLevel(r.Level.String())...)
	buf = h.color(buf, colorReset)
	buf = append(buf, ' ')

	buf = append(buf, r.Message...)

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		buf = append(buf, ' ')
		buf = h.color(buf, colorCyan)
		first := true
		for _, attr := range h.attrs {
			buf = appendSeparated(buf, attr, "", &first)
		}
		r.Attrs(func(a slog.Attr) bool {
			buf = appendSeparated(buf, a, h.group, &first)
			return true
		})
		buf = h.color(buf, colorReset)
	}

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		if f.File != "" {
			buf = append(buf, ' ')
			buf = h.color(buf, colorGray)
			buf = fmt.Appendf(buf, "(%s:%d)", filepath.Base(f.File), f.Line)
			buf = h.color(buf, colorReset)
		}
	}

	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs returns a new handler with additional attributes. The attributes
// are qualified by the groups open at the time of the call.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		newAttrs = append(newAttrs, a)
	}

	clone := *h
	clone.attrs = newAttrs
	return &clone
}

// WithGroup returns a new handler with a group name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = name
	if h.group != "" {
		clone.group = h.group + "." + name
	}
	return &clone
}

func (h *PrettyHandler) color(buf []byte, code string) []byte {
	if h.noColor {
		return buf
	}
	return append(buf, code...)
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorBlue
	default:
		return colorGray
	}
}

// padLevel pads to 5 characters for alignment.
func padLevel(level string) string {
	if len(level) == 4 {
		return level + " "
	}
	return level
}

func appendSeparated(buf []byte, attr slog.Attr, group string, first *bool) []byte {
	if attr.Equal(slog.Attr{}) {
		return buf
	}
	if !*first {
		buf = append(buf, ' ')
	}
	*first = false
	return appendAttr(buf, attr, group)
}

func appendAttr(buf []byte, attr slog.Attr, group string) []byte {
	attr.Value = attr.Value.Resolve()
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}

	buf = append(buf, key...)
	buf = append(buf, '=')

	switch attr.Value.Kind() {
	case slog.KindString:
		s := attr.Value.String()
		if needsQuoting(s) {
			buf = append(buf, '"')
			buf = append(buf, s...)
			buf = append(buf, '"')
		} else {
			buf = append(buf, s...)
		}
	case slog.KindTime:
		buf = attr.Value.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindDuration:
		buf = append(buf, roundDuration(attr.Value.Duration()).String()...)
	case slog.KindGroup:
		buf = append(buf, '{')
		for i, a := range attr.Value.Group() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendAttr(buf, a, "")
		}
		buf = append(buf, '}')
	default:
		buf = append(buf, fmt.Sprint(attr.Value.Any())...)
	}

	return buf
}

// roundDuration drops sub-microsecond noise, and sub-millisecond noise once
// a duration reaches one second.
func roundDuration(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Microsecond)
}

func needsQuoting(s string) bool {
	for _, c := range s {
		if c == ' ' || c == '\t' || c == '\n' || c == '"' {
			return true
		}
	}
	return false
}
