// Package future implements loop-settled futures: promise-like values that
// settle exactly once and deliver their result on an Executor.
//
// Continuations never run synchronously, not even when the future has
// already settled. They are posted to the executor, in the order they were
// registered.
package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotSettled is returned by Result when the future is still pending.
var ErrNotSettled = errors.New("future: not settled")

// Executor runs callbacks on the owning event loop.
type Executor interface {
	Post(fn func()) bool
}

// Result is the outcome of a settled future.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result carries a value rather than an error.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Future is a single-assignment result container.
type Future[T any] struct {
	exec Executor

	mu        sync.Mutex
	settled   bool
	result    Result[T]
	callbacks []func(Result[T])
	done      chan struct{}
}

// New returns a pending future whose continuations run on exec.
func New[T any](exec Executor) *Future[T] {
	return &Future[T]{exec: exec, done: make(chan struct{})}
}

// Resolved returns a future already settled with v.
func Resolved[T any](exec Executor, v T) *Future[T] {
	f := New[T](exec)
	f.Resolve(v)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](exec Executor, err error) *Future[T] {
	f := New[T](exec)
	f.Reject(err)
	return f
}

// Go runs fn on its own goroutine and settles the returned future on exec.
// It is the suspension point for every blocking runtime call.
func Go[T any](ctx context.Context, exec Executor, fn func(context.Context) (T, error)) *Future[T] {
	f := New[T](exec)
	go func() {
		v, err := fn(ctx)
		r := Result[T]{Value: v, Err: err}
		if !exec.Post(func() { f.Complete(r) }) {
			// the loop is gone; settle anyway so blocking waiters wake
			f.Complete(Result[T]{Err: fmt.Errorf("future: executor stopped: %w", errors.Join(err, context.Canceled))})
		}
	}()
	return f
}

// Resolve settles the future with v. It returns false if already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.Complete(Result[T]{Value: v})
}

// Reject settles the future with err. It returns false if already settled.
func (f *Future[T]) Reject(err error) bool {
	return f.Complete(Result[T]{Err: err})
}

// Complete settles the future with r. It returns false if already settled.
func (f *Future[T]) Complete(r Result[T]) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.result = r
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	if len(callbacks) > 0 {
		f.exec.Post(func() {
			for _, cb := range callbacks {
				cb(r)
			}
		})
	}
	// waiters wake only after the continuations are queued, so work they
	// post lands behind them
	close(f.done)
	return true
}

// Then registers fn to run on the executor once the future settles.
func (f *Future[T]) Then(fn func(Result[T])) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	r := f.result
	f.mu.Unlock()
	f.exec.Post(func() { fn(r) })
}

// Settled reports whether the future has a result.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled result, or ErrNotSettled.
func (f *Future[T]) Result() (Result[T], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		return Result[T]{}, ErrNotSettled
	}
	return f.result, nil
}

// Settle returns a future that resolves once f settles, whatever the outcome.
// The source error is discarded.
func (f *Future[T]) Settle() *Future[struct{}] {
	out := New[struct{}](f.exec)
	f.Then(func(Result[T]) { out.Resolve(struct{}{}) })
	return out
}

// Wait blocks until the future settles or ctx is done. It must not be called
// from the executor's goroutine.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		r := f.result
		f.mu.Unlock()
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Map returns a future settled with fn applied to f's value. Errors from f
// propagate without calling fn.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U](f.exec)
	f.Then(func(r Result[T]) {
		if r.Err != nil {
			out.Reject(r.Err)
			return
		}
		v, err := fn(r.Value)
		out.Complete(Result[U]{Value: v, Err: err})
	})
	return out
}
