package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queue is a manually drained Executor.
type queue struct {
	mu   sync.Mutex
	jobs []func()
}

func (q *queue) Post(fn func()) bool {
	q.mu.Lock()
	q.jobs = append(q.jobs, fn)
	q.mu.Unlock()
	return true
}

func (q *queue) drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return n
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		job()
		n++
	}
}

func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func TestFuture_ThenNeverRunsSynchronously(t *testing.T) {
	q := &queue{}
	f := Resolved(q, 42)

	var got int
	f.Then(func(r Result[int]) { got = r.Value })
	assert.Zero(t, got, "continuation ran synchronously")

	q.drain()
	assert.Equal(t, 42, got)
}

func TestFuture_CallbacksRunInRegistrationOrder(t *testing.T) {
	q := &queue{}
	f := New[string](q)

	var order []int
	for i := range 5 {
		f.Then(func(Result[string]) { order = append(order, i) })
	}
	require.True(t, f.Resolve("x"))
	q.drain()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFuture_SettlesOnce(t *testing.T) {
	q := &queue{}
	f := New[int](q)

	require.True(t, f.Resolve(1))
	assert.False(t, f.Resolve(2))
	assert.False(t, f.Reject(errors.New("late")))

	r, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Value)
	assert.True(t, r.OK())
}

func TestFuture_ResultBeforeSettle(t *testing.T) {
	f := New[int](&queue{})
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrNotSettled)
	assert.False(t, f.Settled())
}

func TestFuture_SettleIgnoresError(t *testing.T) {
	q := &queue{}
	boom := errors.New("boom")
	f := New[int](q)
	settled := f.Settle()

	var done bool
	settled.Then(func(r Result[struct{}]) {
		done = r.OK()
	})
	f.Reject(boom)
	q.drain()

	assert.True(t, done)
}

func TestFuture_SettleRunsAfterEarlierContinuations(t *testing.T) {
	q := &queue{}
	f := New[int](q)

	var order []string
	f.Then(func(Result[int]) { order = append(order, "first") })
	f.Settle().Then(func(Result[struct{}]) { order = append(order, "settle") })
	f.Then(func(Result[int]) { order = append(order, "second") })
	f.Resolve(1)
	q.drain()

	assert.Equal(t, []string{"first", "second", "settle"}, order)
}

func TestMap(t *testing.T) {
	q := &queue{}
	f := New[int](q)
	m := Map(f, func(v int) (string, error) {
		if v < 0 {
			return "", errors.New("negative")
		}
		return "ok", nil
	})
	f.Resolve(3)
	q.drain()

	r, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Value)

	boom := errors.New("boom")
	g := New[int](q)
	mg := Map(g, func(int) (string, error) {
		t.Fatal("map function should not run on error")
		return "", nil
	})
	g.Reject(boom)
	q.drain()

	r, err = mg.Result()
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, boom)
}

func TestGo_SettlesOnExecutor(t *testing.T) {
	q := &queue{}
	release := make(chan struct{})
	f := Go(context.Background(), q, func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})

	assert.False(t, f.Settled())
	close(release)

	require.Eventually(t, func() bool { return q.pending() > 0 }, time.Second, time.Millisecond)
	assert.False(t, f.Settled(), "must settle on the executor, not the worker goroutine")
	q.drain()

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestWait_ContextDone(t *testing.T) {
	f := New[int](&queue{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
