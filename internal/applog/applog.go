// Package applog builds the zerolog.Logger the rest of the module takes as
// a dependency (internal/engine.WithLogger, internal/process.WithLogger):
// JSON to a plain pipe, a colorized human-readable console writer when
// stdout is a TTY.
package applog

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Level mirrors the handful of zerolog levels callers pick between on the
// command line; kept narrow rather than exposing zerolog.Level directly so
// callers outside this package don't need the zerolog import just to set
// a level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Options configures New.
type Options struct {
	Level   Level
	Service string
	Pretty  bool
	Out     io.Writer
}

// New builds a zerolog.Logger per Options. When Out is nil it defaults to
// os.Stdout; when Pretty is unset it auto-detects by checking whether Out
// (or os.Stdout when Out is nil) is a terminal, matching the
// zerolog.ConsoleWriter-when-TTY convention the ecosystem uses.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	pretty := opts.Pretty
	if f, ok := out.(*os.File); ok && !opts.Pretty {
		pretty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	var w io.Writer = out
	if pretty {
		if f, ok := out.(*os.File); ok {
			out = colorable.NewColorable(f)
		}
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).Level(opts.Level.zerolog()).With().Timestamp().Logger()
	if opts.Service != "" {
		logger = logger.With().Str("service", opts.Service).Logger()
	}
	return logger
}
