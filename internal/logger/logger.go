// Package logger builds the slog loggers used by the factextract CLI.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options configures New.
type Options struct {
	Writer io.Writer
	Debug  bool
	JSON   bool
}

// Option mutates Options.
type Option func(*Options)

func WithWriter(w io.Writer) Option { return func(o *Options) { o.Writer = w } }

func WithDebug(debug bool) Option { return func(o *Options) { o.Debug = debug } }

func WithJSON(json bool) Option { return func(o *Options) { o.JSON = json } }

// New returns a tinted text logger on stderr, or a JSON logger when asked to.
// Color is disabled when the writer is not a terminal.
func New(opts ...Option) *slog.Logger {
	o := Options{Writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	level := slog.LevelInfo
	if o.Debug {
		level = slog.LevelDebug
	}

	if o.JSON {
		return slog.New(slog.NewJSONHandler(o.Writer, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(o.Writer, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(o.Writer),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
