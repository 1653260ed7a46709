package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/replay-inspector/internal/future"
)

// ErrInvalidState is returned by commands whose preconditions do not hold.
// The request is not forwarded to the runtime.
var ErrInvalidState = errors.New("replay: invalid state for command")

// Commands are requests, not confirmations: none of them changes Manager
// state. State follows from the notifications the runtime sends back.

// StartCapturing asks the runtime to begin capturing a new session.
func (m *Manager) StartCapturing() *future.Future[struct{}] {
	if f, ok := m.postponeCommand(m.StartCapturing); ok {
		return f
	}
	if !m.assert.Assert(m.sessionState != SessionCapturing, "startCapturing: already capturing") {
		return m.reject("startCapturing")
	}
	return m.request("startCapturing", m.agent.StartCapturing)
}

// StopCapturing asks the runtime to finish the current capture.
func (m *Manager) StopCapturing() *future.Future[struct{}] {
	if f, ok := m.postponeCommand(m.StopCapturing); ok {
		return f
	}
	if !m.assert.Assert(m.sessionState == SessionCapturing, "stopCapturing: session is %s, want capturing", m.sessionState) {
		return m.reject("stopCapturing")
	}
	return m.request("stopCapturing", m.agent.StopCapturing)
}

// ReplayToPosition asks the runtime to replay the active session up to
// position, honouring the playback speed.
func (m *Manager) ReplayToPosition(position Position) *future.Future[struct{}] {
	if f, ok := m.postponeCommand(func() *future.Future[struct{}] { return m.ReplayToPosition(position) }); ok {
		return f
	}
	if !m.assert.Assert(m.sessionState != SessionCapturing, "replayToPosition: cannot replay while capturing") {
		return m.reject("replayToPosition")
	}
	fastForward := m.speed == SpeedFastForward
	return m.request("replayToPosition", func(ctx context.Context) error {
		return m.agent.ReplayToPosition(ctx, position, fastForward)
	})
}

// ReplayToMarkIndex replays to the event at index within the current
// segment.
func (m *Manager) ReplayToMarkIndex(index int) *future.Future[struct{}] {
	if f, ok := m.postponeCommand(func() *future.Future[struct{}] { return m.ReplayToMarkIndex(index) }); ok {
		return f
	}
	return m.ReplayToPosition(Position{Segment: m.position.Segment, Event: index})
}

// ReplayToCompletion asks the runtime to replay the rest of the active
// session.
func (m *Manager) ReplayToCompletion() *future.Future[struct{}] {
	if f, ok := m.postponeCommand(m.ReplayToCompletion); ok {
		return f
	}
	if !m.assert.Assert(m.sessionState != SessionCapturing, "replayToCompletion: cannot replay while capturing") {
		return m.reject("replayToCompletion")
	}
	fastForward := m.speed == SpeedFastForward
	return m.request("replayToCompletion", func(ctx context.Context) error {
		return m.agent.ReplayToCompletion(ctx, fastForward)
	})
}

// PausePlayback asks the runtime to pause. It is a no-op when inactive.
func (m *Manager) PausePlayback() *future.Future[struct{}] {
	if f, ok := m.postponeCommand(m.PausePlayback); ok {
		return f
	}
	if !m.assert.Assert(m.sessionState != SessionCapturing, "pausePlayback: cannot pause while capturing") {
		return m.reject("pausePlayback")
	}
	if m.sessionState == SessionInactive {
		return future.Resolved(m.exec, struct{}{})
	}
	return m.request("pausePlayback", m.agent.PausePlayback)
}

// StopPlayback asks the runtime to stop replaying. It is a no-op when
// inactive.
func (m *Manager) StopPlayback() *future.Future[struct{}] {
	if f, ok := m.postponeCommand(m.StopPlayback); ok {
		return f
	}
	if !m.assert.Assert(m.sessionState != SessionCapturing, "stopPlayback: cannot stop playback while capturing") {
		return m.reject("stopPlayback")
	}
	if m.sessionState == SessionInactive {
		return future.Resolved(m.exec, struct{}{})
	}
	return m.request("stopPlayback", m.agent.StopPlayback)
}

func (m *Manager) postponeCommand(cmd func() *future.Future[struct{}]) (*future.Future[struct{}], bool) {
	if m.initialized {
		return nil, false
	}
	out := future.New[struct{}](m.exec)
	m.pending = append(m.pending, func() {
		cmd().Then(func(r future.Result[struct{}]) { out.Complete(r) })
	})
	return out, true
}

func (m *Manager) request(name string, call func(context.Context) error) *future.Future[struct{}] {
	m.logger.Debug("[Replay] request", "command", name)
	f := future.Go(m.ctx, m.exec, func(ctx context.Context) (struct{}, error) {
		if err := call(ctx); err != nil {
			return struct{}{}, fmt.Errorf("%s: %w", name, err)
		}
		return struct{}{}, nil
	})
	f.Then(func(r future.Result[struct{}]) {
		if r.Err != nil {
			m.logger.Error("[Replay] command failed", "command", name, "error", r.Err)
		}
	})
	return f
}

func (m *Manager) reject(name string) *future.Future[struct{}] {
	return future.Rejected[struct{}](m.exec, fmt.Errorf("%s: %w", name, ErrInvalidState))
}
