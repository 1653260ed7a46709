package timeline

import (
	"fmt"

	"github.com/joeycumines/replay-inspector/internal/future"
	"github.com/joeycumines/replay-inspector/internal/replay"
)

// BindReplay keeps o's ruler in step with m: playback progress moves the
// current time, each loaded segment adds a marker at its timestamp, and a
// new capture clears both. The returned function unbinds.
func BindReplay(o *Overview, m *replay.Manager) (unbind func()) {
	ids := []string{
		m.On(replay.EventPlaybackPositionChanged, func(ev replay.Event) {
			o.ruler.SetCurrentTime(ev.Timestamp)
		}),
		m.On(replay.EventActiveSegmentChanged, func(ev replay.Event) {
			if ev.SegmentID == replay.NoSegment {
				return
			}
			id := ev.SegmentID
			m.Store().GetSegment(id).Then(func(r future.Result[replay.Segment]) {
				if r.Err != nil {
					o.logger.Warn("[Timeline] segment marker skipped", "segment", id, "error", r.Err)
					return
				}
				seg, ok := r.Value.(*replay.CompleteSegment)
				if !ok {
					return
				}
				o.ruler.AddMarker(Marker{Time: seg.Timestamp, Label: fmt.Sprintf("segment %d", id)})
			})
		}),
		m.On(replay.EventCaptureStarted, func(replay.Event) {
			o.ruler.ClearMarkers()
			o.ruler.SetCurrentTime(o.ruler.ZeroTime())
		}),
	}
	return func() {
		for _, id := range ids {
			m.Off(id)
		}
	}
}
