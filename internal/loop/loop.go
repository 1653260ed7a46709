// Package loop provides the single event-loop goroutine that every inspector
// component is confined to.
//
// All domain state (replay state machine, store caches, overview tree, hover
// state) is owned by the loop goroutine. Other goroutines hand work to it with
// Post, RunOnLoop or Sync, and never touch domain state directly.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
)

// DefaultSyncTimeout is the maximum duration to wait for RunOnLoopSync operations.
const DefaultSyncTimeout = 5 * time.Second

var (
	// ErrNotRunning is returned when work is submitted to a stopped loop.
	ErrNotRunning = errors.New("event loop not running")
	// ErrStopped is returned when the loop stops before submitted work completes.
	ErrStopped = errors.New("event loop stopped before completion")
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the callback if it has not run yet.
	Stop()
}

// Timers schedules callbacks on the loop after a delay.
type Timers interface {
	SetTimeout(fn func(), d time.Duration) Timer
}

// Loop wraps a goja_nodejs event loop. The goja.Runtime it carries is used
// for scenario scripts; Go components only use it as an executor.
type Loop struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
	logger   *slog.Logger

	// timeout bounds RunOnLoopSync. Zero disables it.
	timeout time.Duration

	// goroutineID is captured once, on the loop goroutine, at startup.
	goroutineID atomic.Int64

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Loop.
type Option func(*Loop)

// WithRegistry shares an existing require.Registry with the loop.
func WithRegistry(registry *require.Registry) Option {
	return func(l *Loop) { l.registry = registry }
}

// WithSyncTimeout overrides DefaultSyncTimeout.
func WithSyncTimeout(d time.Duration) Option {
	return func(l *Loop) { l.timeout = d }
}

// WithLogger sets the logger used for loop lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New creates and starts a Loop. The loop stops when ctx is cancelled or
// Close is called, whichever comes first.
func New(ctx context.Context, opts ...Option) (*Loop, error) {
	childCtx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		timeout: DefaultSyncTimeout,
		logger:  slog.Default(),
		ctx:     childCtx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = require.NewRegistry()
	}

	l.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(l.registry),
		eventloop.EnableConsole(true),
	)
	l.loop.Start()
	l.mu.Lock()
	l.started = true
	l.mu.Unlock()

	ready := make(chan struct{})
	if !l.loop.RunOnLoop(func(*goja.Runtime) {
		l.goroutineID.Store(currentGoroutineID())
		close(ready)
	}) {
		cancel()
		return nil, fmt.Errorf("failed to initialize loop: %w", ErrNotRunning)
	}
	<-ready

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() {
			_ = l.Close()
		})
	}

	l.logger.Debug("[Loop] started", "goroutine", l.goroutineID.Load())
	return l, nil
}

// Registry returns the require.Registry used by scripts run on the loop.
func (l *Loop) Registry() *require.Registry {
	return l.registry
}

// Close stops the loop. Safe to call more than once.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()

	l.cancel()
	l.loop.Stop()
	l.logger.Debug("[Loop] stopped")
	return nil
}

// Done is closed once the loop has been stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.ctx.Done()
}

// IsRunning reports whether the loop accepts work.
func (l *Loop) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started && !l.stopped
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (l *Loop) OnLoop() bool {
	id := l.goroutineID.Load()
	return id > 0 && id == currentGoroutineID()
}

// RunOnLoop schedules fn on the loop goroutine. It returns false if the loop
// is not running.
func (l *Loop) RunOnLoop(fn func(*goja.Runtime)) bool {
	if !l.IsRunning() {
		return false
	}
	return l.loop.RunOnLoop(fn)
}

// Post schedules fn on the loop goroutine, in FIFO order with every other
// submission.
func (l *Loop) Post(fn func()) bool {
	return l.RunOnLoop(func(*goja.Runtime) { fn() })
}

// RunOnLoopSync schedules fn and blocks until it returns, the loop stops, or
// the sync timeout elapses. It must not be called from the loop goroutine;
// use Sync when the caller may already be on the loop.
func (l *Loop) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	l.mu.RLock()
	if !l.started || l.stopped {
		l.mu.RUnlock()
		return ErrNotRunning
	}
	timeout := l.timeout
	l.mu.RUnlock()

	errCh := make(chan error, 1)
	if !l.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- fn(vm)
	}) {
		return ErrNotRunning
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case err := <-errCh:
		return err
	case <-l.Done():
		return ErrStopped
	case <-expired:
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// Sync runs fn on the loop and waits for it. When the caller is already on
// the loop, fn is invoked directly.
func (l *Loop) Sync(fn func() error) error {
	if !l.IsRunning() {
		return ErrNotRunning
	}
	if l.OnLoop() {
		return fn()
	}
	return l.RunOnLoopSync(func(*goja.Runtime) error { return fn() })
}

// SetTimeout schedules fn to run on the loop after d.
func (l *Loop) SetTimeout(fn func(), d time.Duration) Timer {
	t := l.loop.SetTimeout(func(*goja.Runtime) { fn() }, d)
	return &loopTimer{loop: l.loop, timer: t}
}

type loopTimer struct {
	loop  *eventloop.EventLoop
	timer *eventloop.Timer
}

func (t *loopTimer) Stop() {
	t.loop.ClearTimeout(t.timer)
}
