// Package logging provides a process-wide structured logger for kizuna.
//
// The package wraps [log/slog] and exposes a single global logger instance,
// initialized lazily and retrieved via GetLogger. Subsystems obtain a
// logger through this package's With* helpers rather than constructing
// their own slog.Logger, so log level and output destination stay
// controlled from one place.
package logging

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	once   sync.Once
	logger atomic.Pointer[slog.Logger]
)

// Init configures the global logger. Safe to call once at process startup;
// subsequent calls are ignored. If never called, GetLogger lazily installs
// a default logger at LevelWarn writing to stderr.
func Init(level slog.Level, w *os.File) {
	once.Do(func() {
		install(level, w)
	})
}

func install(level slog.Level, w *os.File) {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger.Store(slog.New(handler))
}

// GetLogger returns the process-wide logger, installing a quiet default if
// Init was never called.
func GetLogger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	once.Do(func() {
		install(slog.LevelWarn, os.Stderr)
	})
	return logger.Load()
}

// WithComponent creates a logger scoped to a named subsystem, e.g.
// "catalog", "bufferpool", "ddl", "dml".
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithTable creates a logger with table context, for catalog/heap/index
// operations.
func WithTable(tableName string) *slog.Logger {
	return GetLogger().With("table", tableName)
}

// WithIndex creates a logger with index context.
func WithIndex(indexName string) *slog.Logger {
	return GetLogger().With("index", indexName)
}

// WithPage creates a logger with page context, for buffer pool activity.
func WithPage(pageID uint32) *slog.Logger {
	return GetLogger().With("page_id", pageID)
}

// WithError creates a logger with error context, formatting err as a
// structured field rather than interpolating it into the message.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
