package engine

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.DiscardHandler))
}

// SetLogger sets the process-wide logger used by loaders created without WithLogger.
// A nil logger restores the silent default.
//
// Parameters:
//   - l: the logger
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}

// Logger returns the process-wide logger.
//
// Returns:
//   - *slog.Logger: the logger, never nil
func Logger() *slog.Logger {
	return logger.Load()
}
