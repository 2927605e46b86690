package vulkaninja

import (
	"os"
	"sync/atomic"

	"golang.org/x/exp/slog"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Logger returns the package wide logger used when a Context has none.
func Logger() *slog.Logger {
	return defaultLogger.Load()
}

// SetLogger replaces the package wide logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}
