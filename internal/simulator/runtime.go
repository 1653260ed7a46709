// Package simulator provides an in-process instrumented runtime that can
// capture sessions and replay them, speaking the replay agent protocol.
package simulator

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joeycumines/replay-inspector/internal/replay"
)

var (
	ErrUnknownSession  = errors.New("simulator: unknown session")
	ErrUnknownSegment  = errors.New("simulator: unknown segment")
	ErrIncomplete      = errors.New("simulator: segment still capturing")
	ErrBusy            = errors.New("simulator: runtime busy")
	ErrNotCapturing    = errors.New("simulator: not capturing")
	ErrNoActiveSession = errors.New("simulator: no active session")
	ErrInvalidPosition = errors.New("simulator: position out of range")
)

// DefaultEventInterval is the delay between dispatched events at real-time
// speed.
const DefaultEventInterval = 5 * time.Millisecond

// Options configures a Runtime.
type Options struct {
	Logger *slog.Logger
	// Latency delays every agent call.
	Latency time.Duration
	// EventInterval paces real-time playback.
	EventInterval time.Duration
	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

type session struct {
	id       replay.SessionID
	segments []replay.SegmentID
	created  time.Time
	label    string
}

type segment struct {
	id        replay.SegmentID
	session   replay.SessionID
	timestamp float64
	events    []json.RawMessage
	times     []float64
	complete  bool
}

type playback struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Runtime implements replay.Agent and pushes notifications to a
// replay.Observer. The observer is called with the runtime's lock held, in
// the order state changes, so it must not block or call back into the
// Runtime; replay.Dispatcher satisfies this.
type Runtime struct {
	logger   *slog.Logger
	latency  time.Duration
	interval time.Duration
	now      func() time.Time
	epoch    time.Time

	// cmdMu serialises commands, mu guards state
	cmdMu sync.Mutex
	mu    sync.Mutex

	observer replay.Observer
	failures map[string][]error
	calls    map[string]int

	sessionState  replay.SessionState
	segmentState  replay.SegmentState
	activeSession replay.SessionID
	activeSegment replay.SegmentID
	position      replay.Position
	cursor        replay.Position

	sessions    map[replay.SessionID]*session
	segments    map[replay.SegmentID]*segment
	lastSession replay.SessionID
	lastSegment replay.SegmentID
	capture     *segment

	playback *playback
}

var _ replay.Agent = (*Runtime)(nil)

// New returns an idle Runtime with no sessions.
func New(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.EventInterval
	if interval <= 0 {
		interval = DefaultEventInterval
	}
	return &Runtime{
		logger:   logger,
		latency:  opts.Latency,
		interval: interval,
		now:      now,
		epoch:    now(),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
		sessions: make(map[replay.SessionID]*session),
		segments: make(map[replay.SegmentID]*segment),
	}
}

// SetObserver sets the notification target. Notifications sent while no
// observer is set are dropped.
func (r *Runtime) SetObserver(o replay.Observer) {
	r.mu.Lock()
	r.observer = o
	r.mu.Unlock()
}

// FailNext makes the next call to method return err. Method names match
// the agent protocol, e.g. "getSessionData".
func (r *Runtime) FailNext(method string, err error) {
	r.mu.Lock()
	r.failures[method] = append(r.failures[method], err)
	r.mu.Unlock()
}

// Calls returns how many times method was called.
func (r *Runtime) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *Runtime) notify(fn func(replay.Observer)) {
	if r.observer != nil {
		fn(r.observer)
	}
}

func (r *Runtime) seconds() float64 {
	return r.now().Sub(r.epoch).Seconds()
}

// enter records the call, applies latency and returns an injected failure.
func (r *Runtime) enter(ctx context.Context, method string) error {
	r.mu.Lock()
	r.calls[method]++
	var err error
	if queue := r.failures[method]; len(queue) > 0 {
		err, r.failures[method] = queue[0], queue[1:]
	}
	r.mu.Unlock()

	if r.latency > 0 {
		t := time.NewTimer(r.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return ctx.Err()
}

func (r *Runtime) CurrentReplayState(ctx context.Context) (replay.State, error) {
	if err := r.enter(ctx, "currentReplayState"); err != nil {
		return replay.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(), nil
}

func (r *Runtime) stateLocked() replay.State {
	return replay.State{
		SessionState: r.sessionState,
		SegmentState: r.segmentState,
		SessionID:    r.activeSession,
		SegmentID:    r.activeSegment,
		Position:     r.position,
	}
}

// State returns the runtime's own view of the replay state.
func (r *Runtime) State() replay.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Runtime) GetAvailableSessions(ctx context.Context) ([]replay.SessionID, error) {
	if err := r.enter(ctx, "getAvailableSessions"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]replay.SessionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Runtime) GetSessionData(ctx context.Context, id replay.SessionID) (replay.SessionPayload, error) {
	if err := r.enter(ctx, "getSessionData"); err != nil {
		return replay.SessionPayload{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return replay.SessionPayload{}, fmt.Errorf("session %d: %w", id, ErrUnknownSession)
	}
	return s.payload(), nil
}

func (s *session) payload() replay.SessionPayload {
	return replay.SessionPayload{
		ID:        s.id,
		Segments:  slices.Clone(s.segments),
		Timestamp: s.created,
		Label:     s.label,
	}
}

func (r *Runtime) GetSegmentData(ctx context.Context, id replay.SegmentID) (replay.SegmentPayload, error) {
	if err := r.enter(ctx, "getSegmentData"); err != nil {
		return replay.SegmentPayload{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	seg, ok := r.segments[id]
	if !ok {
		return replay.SegmentPayload{}, fmt.Errorf("segment %d: %w", id, ErrUnknownSegment)
	}
	if !seg.complete {
		return replay.SegmentPayload{}, fmt.Errorf("segment %d: %w", id, ErrIncomplete)
	}
	return replay.SegmentPayload{
		ID:        seg.id,
		SessionID: seg.session,
		Timestamp: seg.timestamp,
		Events:    slices.Clone(seg.events),
	}, nil
}

// Sessions returns every session's payload in identifier order.
func (r *Runtime) Sessions() []replay.SessionPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]replay.SessionPayload, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.payload())
	}
	slices.SortFunc(out, func(a, b replay.SessionPayload) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
