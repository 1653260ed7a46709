package simulator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/joeycumines/replay-inspector/internal/replay"
)

// StartCapturing creates a session, makes it active and opens its first
// segment.
func (r *Runtime) StartCapturing(ctx context.Context) error {
	if err := r.enter(ctx, "startCapturing"); err != nil {
		return err
	}
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessionState != replay.SessionInactive {
		return fmt.Errorf("startCapturing: session is %s: %w", r.sessionState, ErrBusy)
	}
	if r.segmentState == replay.SegmentLoaded {
		r.unloadLocked()
	}

	r.lastSession++
	s := &session{id: r.lastSession, created: r.now(), label: "capture-" + uuid.NewString()[:8]}
	r.sessions[s.id] = s
	r.activeSession = s.id
	r.sessionState = replay.SessionCapturing
	r.position, r.cursor = replay.Position{}, replay.Position{}
	r.logger.Debug("[Simulator] capture started", "session", s.id, "label", s.label)

	r.notify(func(o replay.Observer) { o.SessionCreated(s.id) })
	r.notify(func(o replay.Observer) { o.SessionLoaded(s.id) })
	r.notify(func(o replay.Observer) { o.CaptureStarted() })
	r.openSegmentLocked(s)
	return nil
}

func (r *Runtime) openSegmentLocked(s *session) {
	r.lastSegment++
	seg := &segment{id: r.lastSegment, session: s.id, timestamp: r.seconds()}
	r.segments[seg.id] = seg
	s.segments = append(s.segments, seg.id)
	r.capture = seg
	r.segmentState = replay.SegmentAppending
	r.notify(func(o replay.Observer) { o.SegmentCreated(seg.id) })
}

func (r *Runtime) closeSegmentLocked() {
	seg := r.capture
	r.capture = nil
	seg.complete = true
	r.notify(func(o replay.Observer) { o.SegmentCompleted(seg.id) })
}

// Record appends an event to the segment being captured and returns its
// position.
func (r *Runtime) Record(kind string, data any) (replay.Position, error) {
	raw, err := json.Marshal(struct {
		Kind string `json:"kind"`
		Data any    `json:"data,omitempty"`
	}{kind, data})
	if err != nil {
		return replay.Position{}, fmt.Errorf("record %q: %w", kind, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionState != replay.SessionCapturing || r.capture == nil {
		return replay.Position{}, ErrNotCapturing
	}
	seg := r.capture
	seg.events = append(seg.events, raw)
	seg.times = append(seg.times, r.seconds())
	s := r.sessions[seg.session]
	return replay.Position{Segment: len(s.segments) - 1, Event: len(seg.events) - 1}, nil
}

// CutSegment completes the segment being captured and opens the next one.
func (r *Runtime) CutSegment() error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionState != replay.SessionCapturing {
		return ErrNotCapturing
	}
	r.closeSegmentLocked()
	r.openSegmentLocked(r.sessions[r.activeSession])
	return nil
}

// StopCapturing completes the open segment and ends the capture. The
// session stays active.
func (r *Runtime) StopCapturing(ctx context.Context) error {
	if err := r.enter(ctx, "stopCapturing"); err != nil {
		return err
	}
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionState != replay.SessionCapturing {
		return fmt.Errorf("stopCapturing: %w", ErrNotCapturing)
	}
	id := r.activeSession
	r.closeSegmentLocked()
	r.sessionState = replay.SessionInactive
	r.segmentState = replay.SegmentUnloaded
	r.logger.Debug("[Simulator] capture stopped", "session", id)
	r.notify(func(o replay.Observer) { o.CaptureStopped() })
	r.notify(func(o replay.Observer) { o.SessionModified(id) })
	return nil
}

// LoadSession makes id the active session for replay.
func (r *Runtime) LoadSession(id replay.SessionID) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("session %d: %w", id, ErrUnknownSession)
	}
	if r.sessionState != replay.SessionInactive {
		return fmt.Errorf("loadSession: session is %s: %w", r.sessionState, ErrBusy)
	}
	if r.activeSession == id {
		return nil
	}
	if r.segmentState == replay.SegmentLoaded {
		r.unloadLocked()
	}
	r.activeSession = id
	r.position, r.cursor = replay.Position{}, replay.Position{}
	r.notify(func(o replay.Observer) { o.SessionLoaded(id) })
	return nil
}

// DeleteSession removes an inactive session and its segments.
func (r *Runtime) DeleteSession(id replay.SessionID) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %d: %w", id, ErrUnknownSession)
	}
	if r.activeSession == id {
		if r.sessionState != replay.SessionInactive {
			return fmt.Errorf("deleteSession: session is %s: %w", r.sessionState, ErrBusy)
		}
		if r.segmentState == replay.SegmentLoaded {
			r.unloadLocked()
		}
		r.activeSession = replay.NoSession
		r.notify(func(o replay.Observer) { o.SessionLoaded(replay.NoSession) })
	}
	for _, segID := range s.segments {
		delete(r.segments, segID)
		r.notify(func(o replay.Observer) { o.SegmentRemoved(segID) })
	}
	delete(r.sessions, id)
	r.notify(func(o replay.Observer) { o.SessionRemoved(id) })
	return nil
}
