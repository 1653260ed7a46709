package testutil

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/joeycumines/replay-inspector/internal/loop"
)

// FakeTimers is a manually advanced loop.Timers. Callbacks run on the
// goroutine calling Advance, in due-time order.
type FakeTimers struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	owner   *FakeTimers
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() {
	t.owner.mu.Lock()
	t.stopped = true
	t.owner.mu.Unlock()
}

// SetTimeout implements loop.Timers.
func (f *FakeTimers) SetTimeout(fn func(), d time.Duration) loop.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{owner: f, due: f.now + d, seq: f.seq, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Now returns the elapsed fake time.
func (f *FakeTimers) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Pending returns the number of scheduled, unstopped timers.
func (f *FakeTimers) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves fake time forward by d, firing every timer that falls due,
// including timers scheduled by callbacks within the window.
func (f *FakeTimers) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()
	for {
		f.mu.Lock()
		f.timers = slices.DeleteFunc(f.timers, func(t *fakeTimer) bool { return t.stopped })
		slices.SortFunc(f.timers, func(a, b *fakeTimer) int {
			if c := cmp.Compare(a.due, b.due); c != 0 {
				return c
			}
			return cmp.Compare(a.seq, b.seq)
		})
		if len(f.timers) == 0 || f.timers[0].due > target {
			f.now = target
			f.mu.Unlock()
			return
		}
		next := f.timers[0]
		f.timers = f.timers[1:]
		f.now = next.due
		f.mu.Unlock()
		next.fn()
	}
}
