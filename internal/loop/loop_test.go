package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

func TestNew(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := New(ctx)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	if !l.IsRunning() {
		t.Error("loop should be running after creation")
	}
	if l.Registry() == nil {
		t.Error("registry should not be nil")
	}
	if l.OnLoop() {
		t.Error("test goroutine must not be reported as the loop goroutine")
	}
}

func TestNew_WithRegistry(t *testing.T) {
	registry := require.NewRegistry()
	l, err := New(context.Background(), WithRegistry(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	if l.Registry() != registry {
		t.Error("should use provided registry")
	}
}

func TestLoop_Close(t *testing.T) {
	l, err := New(context.Background())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if l.IsRunning() {
		t.Error("loop should not be running after close")
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	select {
	case <-l.Done():
	default:
		t.Error("Done channel should be closed after Close")
	}

	if l.Post(func() {}) {
		t.Error("Post should fail after Close")
	}
	if err := l.Sync(func() error { return nil }); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestLoop_ContextCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l, err := New(ctx)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	cancel()

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after context cancellation")
	}
}

func TestLoop_PostIsFIFO(t *testing.T) {
	l, err := New(context.Background())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 50 {
		if !l.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}) {
			t.Fatal("Post failed")
		}
	}
	if err := l.Sync(func() error { return nil }); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 50 {
		t.Fatalf("expected 50 callbacks, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("callback %d ran at position %d", v, i)
		}
	}
}

func TestLoop_SyncOnLoopRunsDirectly(t *testing.T) {
	l, err := New(context.Background())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	var nested bool
	err = l.Sync(func() error {
		if !l.OnLoop() {
			return errors.New("expected to be on loop")
		}
		// would deadlock if Sync posted and waited
		return l.Sync(func() error {
			nested = true
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !nested {
		t.Error("nested Sync did not run")
	}
}

func TestLoop_RunOnLoopSyncTimeout(t *testing.T) {
	l, err := New(context.Background(), WithSyncTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	release := make(chan struct{})
	defer close(release)
	err = l.RunOnLoopSync(func(*goja.Runtime) error {
		<-release
		return nil
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLoop_SetTimeout(t *testing.T) {
	l, err := New(context.Background())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	fired := make(chan bool, 1)
	l.SetTimeout(func() { fired <- l.OnLoop() }, 5*time.Millisecond)

	select {
	case onLoop := <-fired:
		if !onLoop {
			t.Error("timer callback should run on the loop goroutine")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	cancelled := make(chan struct{}, 1)
	timer := l.SetTimeout(func() { cancelled <- struct{}{} }, 20*time.Millisecond)
	timer.Stop()
	select {
	case <-cancelled:
		t.Error("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestParseGoroutineID(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
	}{
		{"goroutine 42 [running]:\nmain.main()", 42},
		{"goroutine 7 [", 7},
		{"goroutine x [running]", 0},
		{"", 0},
		{"thread 1", 0},
	} {
		if got := parseGoroutineID([]byte(tc.in)); got != tc.want {
			t.Errorf("parseGoroutineID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
