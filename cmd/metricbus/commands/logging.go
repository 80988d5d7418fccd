package commands

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"git.home.luguber.info/inful/metricbus/internal/config"
	"git.home.luguber.info/inful/metricbus/internal/observability"
)

// NewLogHandler picks the slog handler for format and wraps it so records
// logged with a context carry the publish identity. Auto uses a colored
// handler when w is a terminal and plain text otherwise.
func NewLogHandler(w io.Writer, level slog.Level, format config.LogFormat) slog.Handler {
	return observability.NewHandler(formatHandler(w, level, format))
}

func formatHandler(w io.Writer, level slog.Level, format config.LogFormat) slog.Handler {
	switch format {
	case config.LogFormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case config.LogFormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	if isTerminal(w) {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			AddSource:  level <= slog.LevelDebug,
		})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
