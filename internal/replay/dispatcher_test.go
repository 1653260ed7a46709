package replay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_DeliversOnLoopInOrder(t *testing.T) {
	h := newHarness(t, newFakeAgent())
	h.initialize()

	d := NewDispatcher(h.loop, h.manager, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.SessionLoaded(1)
		d.SegmentLoaded(2)
		d.PlaybackStarted()
		d.PlaybackHitPosition(Position{Event: 1}, 0.5)
		d.PlaybackPaused(Position{Event: 1})
		d.SegmentUnloaded()
		d.PlaybackFinished()
	}()
	wg.Wait()

	h.eventually(func() bool { return len(h.rec.of(EventPlaybackFinished)) == 1 })
	assert.Equal(t, []EventType{
		EventInitialized,
		EventActiveSessionChanged,
		EventActiveSegmentChanged,
		EventPlaybackStarted,
		EventPlaybackPositionChanged,
		EventPlaybackPaused,
		EventActiveSegmentChanged,
		EventPlaybackFinished,
	}, h.eventTypes())
	assert.Empty(t, h.failures())
}

func TestDispatcher_DropsWhenLoopStopped(t *testing.T) {
	h := newHarness(t, newFakeAgent())
	h.initialize()
	d := NewDispatcher(h.loop, h.manager, nil)
	_ = h.loop.Close()

	// must not block or panic
	d.CaptureStarted()
	d.SessionCreated(1)
}
