package testutil

import (
	"context"
	"testing"

	"github.com/joeycumines/replay-inspector/internal/loop"
)

// NewLoop starts a loop that is closed when the test ends.
func NewLoop(t testing.TB, opts ...loop.Option) *loop.Loop {
	t.Helper()
	l, err := loop.New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("failed to start loop: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// OnLoop runs fn on l and waits for it, failing the test if the loop is
// unavailable.
func OnLoop(t testing.TB, l *loop.Loop, fn func()) {
	t.Helper()
	if err := l.Sync(func() error {
		fn()
		return nil
	}); err != nil {
		t.Fatalf("loop sync failed: %v", err)
	}
}

// Read evaluates get on l and returns its value.
func Read[T any](t testing.TB, l *loop.Loop, get func() T) T {
	t.Helper()
	var v T
	OnLoop(t, l, func() { v = get() })
	return v
}

// Eventually polls cond on l until it holds or DefaultTimeout elapses.
func Eventually(t testing.TB, l *loop.Loop, cond func() bool) {
	t.Helper()
	err := Poll(context.Background(), func() bool {
		var ok bool
		if err := l.Sync(func() error {
			ok = cond()
			return nil
		}); err != nil {
			return false
		}
		return ok
	}, DefaultTimeout, DefaultInterval)
	if err != nil {
		t.Fatalf("condition not met on loop: %v", err)
	}
}
