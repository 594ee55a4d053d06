package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a JSON logger on stdout as the process default. Extra
// handlers (the PG sink) receive every record the stdout handler does, each
// filtering by its own level.
func Setup(production bool, extra ...slog.Handler) *slog.Logger {
	return setup(os.Stdout, production, extra...)
}

func setup(w io.Writer, production bool, extra ...slog.Handler) *slog.Logger {
	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
