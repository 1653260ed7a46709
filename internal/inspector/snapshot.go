package inspector

import (
	"maps"
	"slices"

	"github.com/joeycumines/replay-inspector/internal/replay"
	"github.com/joeycumines/replay-inspector/internal/timeline"
)

// Snapshot is a serialisable view of the inspector's state.
type Snapshot struct {
	State    replay.State      `json:"state"`
	Speed    string            `json:"playbackSpeed"`
	Sessions []SessionSummary  `json:"sessions"`
	Timeline []NodeSummary     `json:"timeline"`
	Markers  []timeline.Marker `json:"markers,omitempty"`
	Hovers   []HoverSummary    `json:"hovers,omitempty"`
	Filter   string            `json:"filter,omitempty"`
	Events   map[string]int    `json:"events"`
}

type SessionSummary struct {
	ID       replay.SessionID   `json:"id"`
	Label    string             `json:"label,omitempty"`
	Segments []replay.SegmentID `json:"segments"`
	// Complete counts the segments fetched in full.
	Complete int `json:"complete"`
}

type NodeSummary struct {
	Title    string  `json:"title"`
	Depth    int     `json:"depth"`
	Type     string  `json:"type"`
	Left     float64 `json:"left"`
	Width    float64 `json:"width"`
	Visible  bool    `json:"visible"`
	Filtered bool    `json:"filtered,omitempty"`
}

type HoverSummary struct {
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	State     string `json:"state"`
	Listeners string `json:"listeners"`
	Candidate string `json:"candidate,omitempty"`
	Decisions int    `json:"decisions"`
}

// Snapshot captures the current state on the loop.
func (i *Inspector) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := i.loop.Sync(func() error {
		s = i.snapshot()
		return nil
	})
	return s, err
}

func (i *Inspector) snapshot() Snapshot {
	i.overview.UpdateLayout()
	s := Snapshot{
		State:   i.manager.State(),
		Speed:   i.manager.PlaybackSpeed().String(),
		Markers: i.overview.Ruler().Markers(),
		Events:  make(map[string]int),
	}
	if f := i.overview.Filter(); f != nil {
		s.Filter = f.String()
	}

	store := i.manager.Store()
	for _, id := range store.SessionIDs() {
		session, ok := store.Session(id)
		if !ok {
			continue
		}
		sum := SessionSummary{ID: id, Label: session.Label, Segments: slices.Clone(session.Segments)}
		for _, seg := range session.Segments {
			if v, ok := store.Segment(seg); ok && v.Complete() {
				sum.Complete++
			}
		}
		s.Sessions = append(s.Sessions, sum)
	}

	i.overview.Walk(func(n *timeline.Node, depth int) {
		s.Timeline = append(s.Timeline, NodeSummary{
			Title:    n.Title(),
			Depth:    depth,
			Type:     n.RecordType().String(),
			Left:     n.Left,
			Width:    n.Width,
			Visible:  n.Visible,
			Filtered: n.Filtered,
		})
	})

	for _, name := range slices.Sorted(maps.Keys(i.hovers)) {
		s.Hovers = append(s.Hovers, i.hovers[name].summary())
	}

	for _, ev := range i.events {
		s.Events[string(ev.Type)]++
	}
	return s
}
