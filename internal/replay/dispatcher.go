package replay

import (
	"log/slog"

	"github.com/joeycumines/replay-inspector/internal/future"
)

// Dispatcher is an Observer that may be called from any goroutine. Each
// notification is posted to the loop and delivered to the target there, in
// the order received.
type Dispatcher struct {
	exec   future.Executor
	target Observer
	logger *slog.Logger
}

// NewDispatcher returns a Dispatcher delivering to target on exec.
func NewDispatcher(exec future.Executor, target Observer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{exec: exec, target: target, logger: logger}
}

func (d *Dispatcher) post(name string, fn func()) {
	if !d.exec.Post(fn) {
		d.logger.Warn("[Replay] notification dropped: loop not running", "notification", name)
	}
}

func (d *Dispatcher) CaptureStarted() { d.post("captureStarted", d.target.CaptureStarted) }
func (d *Dispatcher) CaptureStopped() { d.post("captureStopped", d.target.CaptureStopped) }

func (d *Dispatcher) PlaybackStarted() { d.post("playbackStarted", d.target.PlaybackStarted) }

func (d *Dispatcher) PlaybackHitPosition(position Position, timestamp float64) {
	d.post("playbackHitPosition", func() { d.target.PlaybackHitPosition(position, timestamp) })
}

func (d *Dispatcher) PlaybackPaused(position Position) {
	d.post("playbackPaused", func() { d.target.PlaybackPaused(position) })
}

func (d *Dispatcher) PlaybackFinished() { d.post("playbackFinished", d.target.PlaybackFinished) }

func (d *Dispatcher) SessionCreated(id SessionID) {
	d.post("sessionCreated", func() { d.target.SessionCreated(id) })
}

func (d *Dispatcher) SessionModified(id SessionID) {
	d.post("sessionModified", func() { d.target.SessionModified(id) })
}

func (d *Dispatcher) SessionRemoved(id SessionID) {
	d.post("sessionRemoved", func() { d.target.SessionRemoved(id) })
}

func (d *Dispatcher) SessionLoaded(id SessionID) {
	d.post("sessionLoaded", func() { d.target.SessionLoaded(id) })
}

func (d *Dispatcher) SegmentCreated(id SegmentID) {
	d.post("segmentCreated", func() { d.target.SegmentCreated(id) })
}

func (d *Dispatcher) SegmentCompleted(id SegmentID) {
	d.post("segmentCompleted", func() { d.target.SegmentCompleted(id) })
}

func (d *Dispatcher) SegmentRemoved(id SegmentID) {
	d.post("segmentRemoved", func() { d.target.SegmentRemoved(id) })
}

func (d *Dispatcher) SegmentLoaded(id SegmentID) {
	d.post("segmentLoaded", func() { d.target.SegmentLoaded(id) })
}

func (d *Dispatcher) SegmentUnloaded() { d.post("segmentUnloaded", d.target.SegmentUnloaded) }

var _ Observer = (*Dispatcher)(nil)
