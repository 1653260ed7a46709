package replay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/replay-inspector/internal/loop"
	"github.com/joeycumines/replay-inspector/internal/testutil"
	"github.com/stretchr/testify/require"
)

// fakeAgent is a scriptable Agent. Calls named in gates block until the gate
// is opened.
type fakeAgent struct {
	mu sync.Mutex

	state       State
	stateErr    error
	sessions    []SessionID
	sessionsErr error
	sessionData map[SessionID]SessionPayload
	segmentData map[SegmentID]SegmentPayload
	fetchErr    map[string]error
	commandErr  error

	gates map[string]chan struct{}
	calls []string
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		sessionData: make(map[SessionID]SessionPayload),
		segmentData: make(map[SegmentID]SegmentPayload),
		fetchErr:    make(map[string]error),
		gates:       make(map[string]chan struct{}),
	}
}

// gate makes the named call block until the returned function is called.
func (a *fakeAgent) gate(name string) (open func()) {
	ch := make(chan struct{})
	a.mu.Lock()
	a.gates[name] = ch
	a.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (a *fakeAgent) enter(ctx context.Context, name string) error {
	a.mu.Lock()
	a.calls = append(a.calls, name)
	g := a.gates[name]
	a.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (a *fakeAgent) callLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAgent) CurrentReplayState(ctx context.Context) (State, error) {
	if err := a.enter(ctx, "state"); err != nil {
		return State{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.stateErr
}

func (a *fakeAgent) GetAvailableSessions(ctx context.Context) ([]SessionID, error) {
	if err := a.enter(ctx, "sessions"); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]SessionID(nil), a.sessions...), a.sessionsErr
}

func (a *fakeAgent) GetSessionData(ctx context.Context, id SessionID) (SessionPayload, error) {
	name := fmt.Sprintf("session:%d", id)
	if err := a.enter(ctx, name); err != nil {
		return SessionPayload{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fetchErr[name]; err != nil {
		return SessionPayload{}, err
	}
	if p, ok := a.sessionData[id]; ok {
		return p, nil
	}
	return SessionPayload{ID: id}, nil
}

func (a *fakeAgent) GetSegmentData(ctx context.Context, id SegmentID) (SegmentPayload, error) {
	name := fmt.Sprintf("segment:%d", id)
	if err := a.enter(ctx, name); err != nil {
		return SegmentPayload{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fetchErr[name]; err != nil {
		return SegmentPayload{}, err
	}
	if p, ok := a.segmentData[id]; ok {
		return p, nil
	}
	return SegmentPayload{ID: id}, nil
}

func (a *fakeAgent) command(ctx context.Context, name string) error {
	if err := a.enter(ctx, name); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commandErr
}

func (a *fakeAgent) StartCapturing(ctx context.Context) error { return a.command(ctx, "startCapturing") }
func (a *fakeAgent) StopCapturing(ctx context.Context) error  { return a.command(ctx, "stopCapturing") }
func (a *fakeAgent) ReplayToPosition(ctx context.Context, p Position, ff bool) error {
	return a.command(ctx, fmt.Sprintf("replayToPosition:%s:%t", p, ff))
}
func (a *fakeAgent) ReplayToCompletion(ctx context.Context, ff bool) error {
	return a.command(ctx, fmt.Sprintf("replayToCompletion:%t", ff))
}
func (a *fakeAgent) PausePlayback(ctx context.Context) error { return a.command(ctx, "pausePlayback") }
func (a *fakeAgent) StopPlayback(ctx context.Context) error  { return a.command(ctx, "stopPlayback") }

// recorder collects Manager events on the loop.
type recorder struct {
	events []Event
}

func (r *recorder) attach(m *Manager) {
	for _, kind := range EventTypes {
		m.On(kind, func(ev Event) { r.events = append(r.events, ev) })
	}
}

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) of(kind EventType) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	t        *testing.T
	loop     *loop.Loop
	agent    *fakeAgent
	manager  *Manager
	asserter *LogAsserter
	rec      *recorder
}

// newHarness builds a Manager on a fresh loop. Initialization starts
// immediately; use initialize to wait for it.
func newHarness(t *testing.T, agent *fakeAgent) *harness {
	t.Helper()
	h := &harness{t: t, loop: testutil.NewLoop(t), agent: agent, asserter: NewLogAsserter(nil), rec: &recorder{}}
	testutil.OnLoop(t, h.loop, func() {
		h.manager = NewManager(context.Background(), h.loop, agent, Options{Asserter: h.asserter})
		h.rec.attach(h.manager)
	})
	return h
}

func (h *harness) initialize() {
	h.t.Helper()
	_, err := h.manager.WaitUntilInitialized().Wait(context.Background())
	require.NoError(h.t, err)
	h.settle()
}

// settle lets queued loop work run.
func (h *harness) settle() {
	h.t.Helper()
	for range 3 {
		h.do(func() {})
	}
}

func (h *harness) do(fn func()) {
	h.t.Helper()
	testutil.OnLoop(h.t, h.loop, fn)
}

func (h *harness) eventually(cond func() bool) {
	h.t.Helper()
	testutil.Eventually(h.t, h.loop, cond)
}

func (h *harness) state() State {
	return testutil.Read(h.t, h.loop, h.manager.State)
}

func (h *harness) eventTypes() []EventType {
	return testutil.Read(h.t, h.loop, h.rec.types)
}

func (h *harness) failures() []string {
	return h.asserter.Failures()
}

func readOn[T any](h *harness, get func() T) T {
	h.t.Helper()
	return testutil.Read(h.t, h.loop, get)
}

// manualExec is an Executor the test steps by hand, so work can be posted
// between two specific loop turns.
type manualExec struct {
	mu    sync.Mutex
	queue []func()
}

func (e *manualExec) Post(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, fn)
	return true
}

func (e *manualExec) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// step runs the oldest queued function, if any.
func (e *manualExec) step() bool {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return false
	}
	fn := e.queue[0]
	e.queue = e.queue[1:]
	e.mu.Unlock()
	fn()
	return true
}

// runUntil steps queued work, waiting for more to arrive, until cond holds.
func (e *manualExec) runUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testutil.DefaultTimeout)
	for !cond() {
		if e.step() {
			continue
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}
