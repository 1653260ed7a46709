// Package testutil holds helpers for tests that wait on the event loop.
package testutil

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultTimeout bounds waits on loop-driven state in tests.
	DefaultTimeout = 5 * time.Second
	// DefaultInterval is the polling interval used with DefaultTimeout.
	DefaultInterval = 5 * time.Millisecond
)

// Poll calls condition every interval until it reports true, ctx is done,
// or timeout elapses.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !condition() {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("condition not met within %v", timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// WaitForState polls getter until predicate accepts its value. On failure
// the last value seen is returned with the error.
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	var last T
	err := Poll(ctx, func() bool {
		last = getter()
		return predicate(last)
	}, timeout, interval)
	if err != nil {
		return last, fmt.Errorf("last state %+v: %w", last, err)
	}
	return last, nil
}
