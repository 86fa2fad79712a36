package storage_test

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type logWriter struct{ t testing.TB }

func (w *logWriter) Write(buf []byte) (int, error) {
	n := len(buf)
	w.t.Log(strings.TrimSuffix(string(buf), "\n"))
	return n, nil
}

// fakeClock is an atomically-stored, deterministic clock injected via
// Options.Now so tests control commit timestamps exactly.
type fakeClock struct {
	ms atomic.Int64
}

func newClock() *fakeClock {
	c := &fakeClock{}
	c.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.UnixMilli(c.ms.Load()).UTC()
}

func (c *fakeClock) Set(t time.Time) {
	c.ms.Store(t.UnixMilli())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.ms.Add(d.Milliseconds())
}

func ok(t testing.TB, cond bool, msg string) {
	if !cond {
		t.Helper()
		t.Fatalf("** condition failed: %s", msg)
	}
}

func eq[T comparable](t testing.TB, got, want T) {
	if got != want {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", got, want)
	}
}

func success(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** failed: %v", err)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
