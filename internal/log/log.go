// Package log builds the loggers injected throughout the application.
//
// Loggers are passed by dependency injection, never pulled from globals:
// each component receives one via its constructor and may narrow it with
// logger.With("component", ...). Tests use NewNop or NewWithWriter with a
// buffer.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger, keeping full compatibility with
// the slog ecosystem without a wrapper interface.
type Logger = *slog.Logger

// Config defines logger options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON output. Default: false (text)
	JSON bool

	// AddSource adds source file positions to entries. Default: false
	AddSource bool
}

// New creates a logger writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w, mainly for tests.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards everything. Test use only;
// production code keeps its logs.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
