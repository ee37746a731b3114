/*
logging.go - Structured logging

PURPOSE:
  Thin wrapper over log/slog so the rest of the codebase carries a single
  logger type. Levels come from configuration as plain strings.

SEE ALSO:
  - config: LOG_LEVEL parsing happens here, not there
*/
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps a slog.Logger. The zero value is not usable; construct with
// New or Nop.
type Logger struct {
	s *slog.Logger
}

// New builds a text logger on stderr at the given level. Unknown level
// strings fall back to info.
func New(level string) *Logger {
	return &Logger{s: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))}
}

// Nop returns a logger that discards everything. Used in tests and as the
// default when a component is handed a nil logger.
func Nop() *Logger {
	return &Logger{s: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps a configuration string to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger carrying the given attributes on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{s: l.s.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.s.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.s.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.s.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.s.Error(msg, args...) }
