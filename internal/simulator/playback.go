package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/joeycumines/replay-inspector/internal/replay"
)

// ReplayToPosition replays the active session up to and including target,
// then pauses. Replaying to a position behind the last dispatched event
// starts over from the first segment.
func (r *Runtime) ReplayToPosition(ctx context.Context, target replay.Position, fastForward bool) error {
	if err := r.enter(ctx, "replayToPosition"); err != nil {
		return err
	}
	return r.replay(&target, fastForward)
}

// ReplayToCompletion replays the rest of the active session.
func (r *Runtime) ReplayToCompletion(ctx context.Context, fastForward bool) error {
	if err := r.enter(ctx, "replayToCompletion"); err != nil {
		return err
	}
	return r.replay(nil, fastForward)
}

func (r *Runtime) replay(target *replay.Position, fastForward bool) error {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.halt()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionState == replay.SessionCapturing {
		return fmt.Errorf("replay: %w", ErrBusy)
	}
	s, ok := r.sessions[r.activeSession]
	if !ok {
		return ErrNoActiveSession
	}
	if target != nil {
		if target.Segment < 0 || target.Segment >= len(s.segments) {
			return fmt.Errorf("replay to %s: %w", target, ErrInvalidPosition)
		}
		if seg := r.segments[s.segments[target.Segment]]; target.Event < 0 || target.Event >= len(seg.events) {
			return fmt.Errorf("replay to %s: %w", target, ErrInvalidPosition)
		}
		if r.sessionState == replay.SessionReplaying && r.segmentState == replay.SegmentLoaded && *target == r.position {
			return nil
		}
		if target.Compare(r.cursor) < 0 {
			r.pauseLocked()
			if r.segmentState == replay.SegmentLoaded {
				r.unloadLocked()
			}
			r.cursor = replay.Position{}
		}
	}

	pctx, cancel := context.WithCancel(context.Background())
	p := &playback{cancel: cancel, done: make(chan struct{})}
	r.playback = p
	go r.play(pctx, p, target, fastForward)
	return nil
}

func (r *Runtime) play(ctx context.Context, p *playback, target *replay.Position, fastForward bool) {
	defer close(p.done)
	defer p.cancel()
	for {
		r.mu.Lock()
		if ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		dispatched, finished := r.stepLocked(target)
		if finished && r.playback == p {
			r.playback = nil
		}
		r.mu.Unlock()
		if finished {
			return
		}
		if dispatched && !fastForward {
			t := time.NewTimer(r.interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

// stepLocked advances playback by one notification-producing step.
func (r *Runtime) stepLocked(target *replay.Position) (dispatched, finished bool) {
	s, ok := r.sessions[r.activeSession]
	if !ok {
		return false, true
	}
	if r.cursor.Segment >= len(s.segments) {
		if r.segmentState == replay.SegmentLoaded {
			r.unloadLocked()
		}
		r.sessionState = replay.SessionInactive
		r.cursor = replay.Position{}
		r.notify(func(o replay.Observer) { o.PlaybackFinished() })
		return false, true
	}

	seg := r.segments[s.segments[r.cursor.Segment]]
	switch {
	case r.activeSegment != seg.id:
		if r.segmentState == replay.SegmentLoaded {
			r.unloadLocked()
		}
		r.segmentState = replay.SegmentLoaded
		r.activeSegment = seg.id
		r.notify(func(o replay.Observer) { o.SegmentLoaded(seg.id) })
		return false, false

	case r.segmentState == replay.SegmentLoaded:
		r.sessionState = replay.SessionReplaying
		r.segmentState = replay.SegmentDispatching
		r.notify(func(o replay.Observer) { o.PlaybackStarted() })
		return false, false

	case r.cursor.Event < len(seg.events):
		pos := r.cursor
		r.position = pos
		r.cursor.Event++
		ts := seg.times[pos.Event]
		r.notify(func(o replay.Observer) { o.PlaybackHitPosition(pos, ts) })
		if target != nil && pos == *target {
			r.pauseLocked()
			return true, true
		}
		return true, false

	default:
		r.pauseLocked()
		r.unloadLocked()
		r.cursor = replay.Position{Segment: r.cursor.Segment + 1}
		return false, false
	}
}

func (r *Runtime) pauseLocked() {
	if r.segmentState != replay.SegmentDispatching {
		return
	}
	r.segmentState = replay.SegmentLoaded
	pos := r.position
	r.notify(func(o replay.Observer) { o.PlaybackPaused(pos) })
}

func (r *Runtime) unloadLocked() {
	r.segmentState = replay.SegmentUnloaded
	r.activeSegment = replay.NoSegment
	r.notify(func(o replay.Observer) { o.SegmentUnloaded() })
}

// halt cancels playback in progress and waits for it to stop. It must be
// called with cmdMu held and mu released.
func (r *Runtime) halt() {
	r.mu.Lock()
	p := r.playback
	r.playback = nil
	r.mu.Unlock()
	if p != nil {
		p.cancel()
		<-p.done
	}
}

// PausePlayback stops dispatching; the segment stays loaded.
func (r *Runtime) PausePlayback(ctx context.Context) error {
	if err := r.enter(ctx, "pausePlayback"); err != nil {
		return err
	}
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.halt()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseLocked()
	return nil
}

// StopPlayback ends the replay and unloads the segment.
func (r *Runtime) StopPlayback(ctx context.Context) error {
	if err := r.enter(ctx, "stopPlayback"); err != nil {
		return err
	}
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	r.halt()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionState != replay.SessionReplaying {
		return nil
	}
	r.pauseLocked()
	if r.segmentState == replay.SegmentLoaded {
		r.unloadLocked()
	}
	r.sessionState = replay.SessionInactive
	r.cursor = replay.Position{}
	r.notify(func(o replay.Observer) { o.PlaybackFinished() })
	return nil
}

// WaitIdle blocks until playback in progress finishes or ctx is done.
func (r *Runtime) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	p := r.playback
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
