// Package logging holds the shared slog logger for Vantage library code.
//
// By default nothing is logged. Binaries call SetLogger once at startup;
// library packages call Logger() at the point of use so that a later
// SetLogger takes effect everywhere.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled returns false so callers
// skip building attributes entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger installs l as the logger for all Vantage packages.
// Pass nil to restore the silent default.
//
// Levels used:
//   - Debug: skipped or degraded document fragments, per-frame details
//   - Info: lifecycle (hub start/stop/dispose, document load)
//   - Warn: recovered integration errors
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// For returns the current logger tagged with a component name.
func For(component string) *slog.Logger {
	return Logger().With(slog.String("component", component))
}
