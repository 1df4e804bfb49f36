// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip attribute formatting entirely,
// which matters on the per-frame validation path.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can race with frame validation on any display goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for hwc and all its sub-packages.
// By default, hwc produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by hwc:
//   - [slog.LevelDebug]: per-frame decisions (client range, plane plan)
//   - [slog.LevelInfo]: lifecycle events (backend selected, device opened)
//   - [slog.LevelWarn]: absorbed per-frame failures (dropped layers,
//     rejected test commits)
//   - [slog.LevelError]: kernel calls that failed
//
// Example:
//
//	hwc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by hwc.
// Sub-packages call this instead of keeping their own copy so that a
// SetLogger call reaches every display at once.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
