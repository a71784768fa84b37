// Package testutil holds helpers shared by the package test suites.
package testutil

import (
	"log/slog"
	"testing"
)

// NewLogger returns a debug-level slog logger routed through t.Log, so
// engine and runner output shows up interleaved with the test's own
// logging and only on failure or -v.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testWriter adapts testing.TB to io.Writer for the slog handler.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
