// Package replay mirrors the recording/playback state of an instrumented
// runtime.
//
// The Manager is a loop-confined state machine driven by runtime
// notifications; the Store caches the sessions and segments those
// notifications refer to. Neither type is safe for use off the loop: deliver
// notifications from other goroutines through a Dispatcher.
package replay

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/joeycumines/replay-inspector/internal/event"
	"github.com/joeycumines/replay-inspector/internal/future"
)

const (
	keepSession SessionState = -1
	keepSegment SegmentState = -1
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionCapturing: {SessionInactive},
	SessionReplaying: {SessionInactive},
	SessionInactive:  {SessionCapturing, SessionReplaying},
}

var segmentTransitions = map[SegmentState][]SegmentState{
	SegmentAppending:   {SegmentUnloaded},
	SegmentUnloaded:    {SegmentAppending, SegmentLoaded},
	SegmentLoaded:      {SegmentUnloaded, SegmentDispatching},
	SegmentDispatching: {SegmentLoaded},
}

// SessionTransitionAllowed reports whether from -> to is a legal session
// state change. Self transitions are never legal.
func SessionTransitionAllowed(from, to SessionState) bool {
	return slices.Contains(sessionTransitions[from], to)
}

// SegmentTransitionAllowed reports whether from -> to is a legal segment
// state change. Self transitions are never legal.
func SegmentTransitionAllowed(from, to SegmentState) bool {
	return slices.Contains(segmentTransitions[from], to)
}

// Options configures a Manager.
type Options struct {
	Logger *slog.Logger
	// Asserter receives invariant violations. Defaults to a LogAsserter.
	Asserter Asserter
	// FetchTimeout bounds each session/segment fetch. Zero means no bound.
	FetchTimeout time.Duration
	// PlaybackSpeed is the initial speed passed to replay commands.
	PlaybackSpeed PlaybackSpeed
}

// Manager tracks session state, segment state, the active session and
// segment, the playback position and playback speed.
type Manager struct {
	ctx    context.Context
	exec   future.Executor
	agent  Agent
	logger *slog.Logger
	assert Asserter

	store  *Store
	events *event.Emitter[EventType, Event]

	init        *future.Future[struct{}]
	initialized bool
	// pending holds operations invoked before initialization, in call order.
	pending []func()

	sessionState  SessionState
	segmentState  SegmentState
	activeSession SessionID
	activeSegment SegmentID
	position      Position
	speed         PlaybackSpeed
}

// NewManager creates a Manager and starts initialization: the replay state
// snapshot is fetched first, then the list of existing sessions. Operations
// invoked before both complete are postponed until they do.
func NewManager(ctx context.Context, exec future.Executor, agent Agent, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	asserter := opts.Asserter
	if asserter == nil {
		asserter = NewLogAsserter(logger)
	}
	m := &Manager{
		ctx:    ctx,
		exec:   exec,
		agent:  agent,
		logger: logger,
		assert: asserter,
		store:  NewStore(ctx, exec, agent, logger, opts.FetchTimeout),
		events: event.NewEmitter[EventType, Event](),
		init:   future.New[struct{}](exec),
		speed:  opts.PlaybackSpeed,
	}
	m.initialize()
	return m
}

func (m *Manager) initialize() {
	snapshot := future.Go(m.ctx, m.exec, m.agent.CurrentReplayState)
	snapshot.Then(func(state future.Result[State]) {
		if state.Err != nil {
			m.logger.Error("[Replay] initialization failed: replay state unavailable", "error", state.Err)
			return
		}
		available := future.Go(m.ctx, m.exec, m.agent.GetAvailableSessions)
		available.Then(func(sessions future.Result[[]SessionID]) {
			if sessions.Err != nil {
				m.logger.Error("[Replay] initialization failed: session list unavailable", "error", sessions.Err)
				return
			}
			m.sessionState = state.Value.SessionState
			m.segmentState = state.Value.SegmentState
			m.activeSession = state.Value.SessionID
			m.activeSegment = state.Value.SegmentID
			m.position = state.Value.Position
			m.initialized = true

			for _, id := range sessions.Value {
				m.SessionCreated(id)
			}
			m.logger.Debug("[Replay] initialized",
				"sessionState", m.sessionState,
				"segmentState", m.segmentState,
				"sessions", len(sessions.Value),
				"postponed", len(m.pending))
			m.emit(Event{Type: EventInitialized})
			// drained in this callback, so nothing posted to the loop in the
			// meantime can overtake a postponed operation
			for len(m.pending) != 0 {
				op := m.pending[0]
				m.pending = m.pending[1:]
				op()
			}
			m.pending = nil
			m.init.Resolve(struct{}{})
		})
	})
}

// postpone queues op when not yet initialized. Queued operations run in
// the order they were postponed, as part of completing initialization.
func (m *Manager) postpone(op func()) bool {
	if m.initialized {
		return false
	}
	m.pending = append(m.pending, op)
	return true
}

// transition validates the requested session and segment changes together
// and applies them only if both are legal.
func (m *Manager) transition(op string, session SessionState, segment SegmentState) bool {
	ok := true
	if session != keepSession && !SessionTransitionAllowed(m.sessionState, session) {
		m.assert.Assert(false, "%s: illegal session state transition %s -> %s", op, m.sessionState, session)
		ok = false
	}
	if segment != keepSegment && !SegmentTransitionAllowed(m.segmentState, segment) {
		m.assert.Assert(false, "%s: illegal segment state transition %s -> %s", op, m.segmentState, segment)
		ok = false
	}
	if !ok {
		return false
	}
	if session != keepSession {
		m.logger.Debug("[Replay] session state", "from", m.sessionState, "to", session, "op", op)
		m.sessionState = session
	}
	if segment != keepSegment {
		m.logger.Debug("[Replay] segment state", "from", m.segmentState, "to", segment, "op", op)
		m.segmentState = segment
	}
	return true
}

func (m *Manager) emit(ev Event) {
	m.events.Emit(ev.Type, ev)
}

// On registers a listener and returns its id.
func (m *Manager) On(kind EventType, fn func(Event)) string {
	return m.events.On(kind, fn)
}

// Off removes a listener registered with On.
func (m *Manager) Off(id string) bool {
	return m.events.Off(id)
}

// Store returns the session/segment store owned by the Manager.
func (m *Manager) Store() *Store { return m.store }

// Initialized reports whether initialization has completed.
func (m *Manager) Initialized() bool { return m.initialized }

// WaitUntilInitialized resolves once initialization completes. It never
// settles if initialization failed.
func (m *Manager) WaitUntilInitialized() *future.Future[struct{}] { return m.init }

// SessionState returns the current session state.
func (m *Manager) SessionState() SessionState { return m.sessionState }

// SegmentState returns the current segment state.
func (m *Manager) SegmentState() SegmentState { return m.segmentState }

// ActiveSessionID returns the loaded session, or NoSession.
func (m *Manager) ActiveSessionID() SessionID { return m.activeSession }

// ActiveSegmentID returns the loaded segment, or NoSegment.
func (m *Manager) ActiveSegmentID() SegmentID { return m.activeSegment }

// CurrentPosition returns the last position playback reached or paused at.
func (m *Manager) CurrentPosition() Position { return m.position }

// PlaybackSpeed returns the speed used by replay commands.
func (m *Manager) PlaybackSpeed() PlaybackSpeed { return m.speed }

// SetPlaybackSpeed changes the speed used by subsequent replay commands.
func (m *Manager) SetPlaybackSpeed(speed PlaybackSpeed) {
	m.speed = speed
}

// State returns the current state as a snapshot.
func (m *Manager) State() State {
	return State{
		SessionState: m.sessionState,
		SegmentState: m.segmentState,
		SessionID:    m.activeSession,
		SegmentID:    m.activeSegment,
		Position:     m.position,
	}
}

// ActiveSession resolves to the active session, or nil if there is none.
func (m *Manager) ActiveSession() *future.Future[*Session] {
	if m.activeSession == NoSession {
		return future.Resolved[*Session](m.exec, nil)
	}
	return m.store.GetSession(m.activeSession)
}

// ActiveSegment resolves to the active segment, or nil if there is none.
func (m *Manager) ActiveSegment() *future.Future[Segment] {
	if m.activeSegment == NoSegment {
		return future.Resolved[Segment](m.exec, nil)
	}
	return m.store.GetSegment(m.activeSegment)
}

// CaptureStarted handles the runtime's capture-started notification.
func (m *Manager) CaptureStarted() {
	if m.postpone(m.CaptureStarted) {
		return
	}
	if !m.transition("captureStarted", SessionCapturing, keepSegment) {
		return
	}
	m.emit(Event{Type: EventCaptureStarted, SessionID: m.activeSession})
}

// CaptureStopped handles the runtime's capture-stopped notification.
func (m *Manager) CaptureStopped() {
	if m.postpone(m.CaptureStopped) {
		return
	}
	segment := keepSegment
	if m.segmentState != SegmentUnloaded {
		segment = SegmentUnloaded
	}
	if !m.transition("captureStopped", SessionInactive, segment) {
		return
	}
	m.emit(Event{Type: EventCaptureStopped, SessionID: m.activeSession})
}

// PlaybackStarted handles the runtime's playback-started notification. It is
// also sent when playback resumes into the next segment, in which case the
// session is already replaying.
func (m *Manager) PlaybackStarted() {
	if m.postpone(m.PlaybackStarted) {
		return
	}
	session := keepSession
	if m.sessionState == SessionInactive {
		session = SessionReplaying
	}
	if !m.transition("playbackStarted", session, SegmentDispatching) {
		return
	}
	m.emit(Event{Type: EventPlaybackStarted, SessionID: m.activeSession, SegmentID: m.activeSegment})
}

// PlaybackHitPosition handles the runtime's progress notification.
func (m *Manager) PlaybackHitPosition(position Position, timestamp float64) {
	if m.postpone(func() { m.PlaybackHitPosition(position, timestamp) }) {
		return
	}
	m.assert.Assert(m.sessionState == SessionReplaying, "playbackHitPosition: session is %s, want replaying", m.sessionState)
	m.assert.Assert(m.segmentState == SegmentDispatching, "playbackHitPosition: segment is %s, want dispatching", m.segmentState)
	m.position = position
	m.emit(Event{
		Type:      EventPlaybackPositionChanged,
		SessionID: m.activeSession,
		SegmentID: m.activeSegment,
		Position:  position,
		Timestamp: timestamp,
	})
}

// PlaybackPaused handles the runtime's playback-paused notification.
func (m *Manager) PlaybackPaused(position Position) {
	if m.postpone(func() { m.PlaybackPaused(position) }) {
		return
	}
	m.assert.Assert(m.sessionState == SessionReplaying, "playbackPaused: session is %s, want replaying", m.sessionState)
	if !m.transition("playbackPaused", keepSession, SegmentLoaded) {
		return
	}
	m.position = position
	m.emit(Event{Type: EventPlaybackPaused, SessionID: m.activeSession, SegmentID: m.activeSegment, Position: position})
}

// PlaybackFinished handles the runtime's playback-finished notification.
func (m *Manager) PlaybackFinished() {
	if m.postpone(m.PlaybackFinished) {
		return
	}
	m.assert.Assert(m.segmentState == SegmentUnloaded, "playbackFinished: segment is %s, want unloaded", m.segmentState)
	if !m.transition("playbackFinished", SessionInactive, keepSegment) {
		return
	}
	m.emit(Event{Type: EventPlaybackFinished, SessionID: m.activeSession, Position: m.position})
}

// SessionCreated starts fetching the new session and announces it.
// SessionAdded is emitted in notification order; listeners pull the session
// itself through the Store.
func (m *Manager) SessionCreated(id SessionID) {
	if m.postpone(func() { m.SessionCreated(id) }) {
		return
	}
	if !m.assert.Assert(!m.store.TracksSession(id), "sessionCreated: duplicate session identifier %d", id) {
		return
	}
	m.store.GetSession(id)
	m.emit(Event{Type: EventSessionAdded, SessionID: id})
}

// SessionModified refreshes the session's segment list.
func (m *Manager) SessionModified(id SessionID) {
	if m.postpone(func() { m.SessionModified(id) }) {
		return
	}
	m.store.RefreshSession(id).Then(func(r future.Result[*Session]) {
		if r.Err != nil {
			return
		}
		m.emit(Event{Type: EventSessionSegmentsChanged, SessionID: id})
	})
}

// SessionRemoved drops the session once any in-flight fetch has settled.
func (m *Manager) SessionRemoved(id SessionID) {
	if m.postpone(func() { m.SessionRemoved(id) }) {
		return
	}
	m.assert.Assert(id != m.activeSession, "sessionRemoved: session %d is active", id)
	m.store.RemoveSession(id).Then(func(future.Result[*Session]) {
		m.emit(Event{Type: EventSessionRemoved, SessionID: id})
	})
}

// SessionLoaded makes id the active session.
func (m *Manager) SessionLoaded(id SessionID) {
	if m.postpone(func() { m.SessionLoaded(id) }) {
		return
	}
	previous := m.activeSession
	m.activeSession = id
	m.emit(Event{Type: EventActiveSessionChanged, SessionID: id, PreviousSessionID: previous})
}

// SegmentCreated records a placeholder for a segment being captured into the
// active session.
func (m *Manager) SegmentCreated(id SegmentID) {
	if m.postpone(func() { m.SegmentCreated(id) }) {
		return
	}
	if !m.assert.Assert(!m.store.TracksSegment(id), "segmentCreated: duplicate segment identifier %d", id) {
		return
	}
	m.store.AddIncompleteSegment(id)
	if m.sessionState == SessionCapturing && m.segmentState != SegmentAppending {
		m.transition("segmentCreated", keepSession, SegmentAppending)
	}
	if session, ok := m.store.Session(m.activeSession); ok && !slices.Contains(session.Segments, id) {
		session.Segments = append(session.Segments, id)
	}
	m.emit(Event{Type: EventSessionSegmentAdded, SessionID: m.activeSession, SegmentID: id})
}

// SegmentCompleted replaces the placeholder with the complete segment.
func (m *Manager) SegmentCompleted(id SegmentID) {
	if m.postpone(func() { m.SegmentCompleted(id) }) {
		return
	}
	placeholder, ok := m.store.Segment(id)
	m.assert.Assert(ok && !placeholder.Complete(), "segmentCompleted: no placeholder for segment %d", id)
	m.store.CompleteSegment(id)
}

// SegmentRemoved drops the segment once any in-flight fetch has settled.
func (m *Manager) SegmentRemoved(id SegmentID) {
	if m.postpone(func() { m.SegmentRemoved(id) }) {
		return
	}
	m.assert.Assert(id != m.activeSegment, "segmentRemoved: segment %d is active", id)
	owner := m.owningSession(id)
	m.store.RemoveSegment(id).Then(func(future.Result[Segment]) {
		if session, ok := m.store.Session(owner); ok {
			session.Segments = slices.DeleteFunc(session.Segments, func(s SegmentID) bool { return s == id })
		}
		m.emit(Event{Type: EventSessionSegmentRemoved, SessionID: owner, SegmentID: id})
	})
}

// SegmentLoaded makes id the active segment.
func (m *Manager) SegmentLoaded(id SegmentID) {
	if m.postpone(func() { m.SegmentLoaded(id) }) {
		return
	}
	if !m.transition("segmentLoaded", keepSession, SegmentLoaded) {
		return
	}
	previous := m.activeSegment
	m.activeSegment = id
	m.emit(Event{Type: EventActiveSegmentChanged, SessionID: m.activeSession, SegmentID: id, PreviousSegmentID: previous})
}

// SegmentUnloaded clears the active segment.
func (m *Manager) SegmentUnloaded() {
	if m.postpone(m.SegmentUnloaded) {
		return
	}
	if !m.transition("segmentUnloaded", keepSession, SegmentUnloaded) {
		return
	}
	previous := m.activeSegment
	m.activeSegment = NoSegment
	m.emit(Event{Type: EventActiveSegmentChanged, SessionID: m.activeSession, PreviousSegmentID: previous})
}

func (m *Manager) owningSession(id SegmentID) SessionID {
	for _, sid := range m.store.SessionIDs() {
		if session, _ := m.store.Session(sid); slices.Contains(session.Segments, id) {
			return sid
		}
	}
	return m.activeSession
}

var _ Observer = (*Manager)(nil)
