// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ParseLevel maps a level name to a slog level. Unknown names mean warn,
// which keeps normal command output free of log lines.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New returns a tint handler writing to w. Color is used only when w is a
// terminal and NO_COLOR is unset.
func New(level slog.Level, w io.Writer) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Zero values add noise to one-line request logs.
			switch v := a.Value.Any().(type) {
			case string:
				if v == "" {
					return slog.Attr{}
				}
			case time.Duration:
				if v == 0 {
					return slog.Attr{}
				}
			case nil:
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Init installs New(level, w) as the default logger.
func Init(level slog.Level, w io.Writer) {
	slog.SetDefault(New(level, w))
}
