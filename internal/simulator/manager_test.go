package simulator

import (
	"context"
	"testing"

	"github.com/joeycumines/replay-inspector/internal/future"
	"github.com/joeycumines/replay-inspector/internal/replay"
	"github.com/joeycumines/replay-inspector/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func await(t *testing.T, f *future.Future[struct{}]) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testutil.DefaultTimeout)
	defer cancel()
	_, err := f.Wait(ctx)
	return err
}

func TestRuntime_DrivesManager(t *testing.T) {
	l := testutil.NewLoop(t)
	rt := New(Options{})
	asserter := replay.NewLogAsserter(nil)

	var (
		m      *replay.Manager
		events []replay.EventType
	)
	testutil.OnLoop(t, l, func() {
		m = replay.NewManager(context.Background(), l, rt, replay.Options{
			Asserter:      asserter,
			PlaybackSpeed: replay.SpeedFastForward,
		})
		for _, kind := range []replay.EventType{
			replay.EventCaptureStarted, replay.EventCaptureStopped,
			replay.EventPlaybackStarted, replay.EventPlaybackPaused, replay.EventPlaybackFinished,
		} {
			m.On(kind, func(ev replay.Event) { events = append(events, ev.Type) })
		}
	})
	rt.SetObserver(replay.NewDispatcher(l, m, nil))

	command := func(cmd func() *future.Future[struct{}]) error {
		var f *future.Future[struct{}]
		testutil.OnLoop(t, l, func() { f = cmd() })
		return await(t, f)
	}

	require.NoError(t, command(func() *future.Future[struct{}] { return m.StartCapturing() }))
	testutil.Eventually(t, l, func() bool { return m.SessionState() == replay.SessionCapturing })
	for _, kind := range []string{"click", "input"} {
		_, err := rt.Record(kind, nil)
		require.NoError(t, err)
	}
	require.NoError(t, rt.CutSegment())
	_, err := rt.Record("submit", nil)
	require.NoError(t, err)
	require.NoError(t, command(func() *future.Future[struct{}] { return m.StopCapturing() }))

	testutil.Eventually(t, l, func() bool {
		s, ok := m.Store().Session(1)
		if !ok || m.SessionState() != replay.SessionInactive || len(s.Segments) != 2 {
			return false
		}
		seg, ok := m.Store().Segment(2)
		return ok && seg.Complete()
	})

	err = command(func() *future.Future[struct{}] { return m.StopCapturing() })
	assert.ErrorIs(t, err, replay.ErrInvalidState)

	require.NoError(t, command(func() *future.Future[struct{}] {
		return m.ReplayToPosition(replay.Position{Segment: 1, Event: 0})
	}))
	testutil.Eventually(t, l, func() bool {
		return m.SegmentState() == replay.SegmentLoaded && m.CurrentPosition() == replay.Position{Segment: 1, Event: 0}
	})
	assert.Equal(t, replay.SegmentID(2), testutil.Read(t, l, m.ActiveSegmentID))

	require.NoError(t, command(func() *future.Future[struct{}] { return m.ReplayToCompletion() }))
	testutil.Eventually(t, l, func() bool { return m.SessionState() == replay.SessionInactive })

	assert.Equal(t, replay.NoSegment, testutil.Read(t, l, m.ActiveSegmentID))
	assert.Equal(t, []replay.EventType{
		replay.EventCaptureStarted, replay.EventCaptureStopped,
		replay.EventPlaybackStarted, replay.EventPlaybackPaused,
		replay.EventPlaybackStarted, replay.EventPlaybackPaused,
		replay.EventPlaybackStarted, replay.EventPlaybackPaused,
		replay.EventPlaybackFinished,
	}, testutil.Read(t, l, func() []replay.EventType { return events }))
	assert.Empty(t, asserter.Failures())
}
