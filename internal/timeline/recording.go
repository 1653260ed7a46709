package timeline

import (
	"log/slog"

	"github.com/joeycumines/replay-inspector/internal/event"
)

// RecordingEventType identifies a Recording event.
type RecordingEventType string

const (
	ResourceAdded           RecordingEventType = "resourceAdded"
	SourceCodeTimelineAdded RecordingEventType = "sourceCodeTimelineAdded"
	RecordAdded             RecordingEventType = "recordAdded"
	RecordingReset          RecordingEventType = "reset"
)

// RecordingEvent carries whichever object the event is about.
type RecordingEvent struct {
	Type               RecordingEventType
	Resource           *Resource
	SourceCodeTimeline *SourceCodeTimeline
	Record             *Record
}

// Recording owns every record captured from the runtime, grouped per record
// type, per resource and per source location. It is confined to the event
// loop.
type Recording struct {
	logger *slog.Logger
	events *event.Emitter[RecordingEventType, RecordingEvent]

	timelines   map[RecordType]*Timeline
	resources   map[string]*Resource
	resourceSeq []*Resource
	sources     map[sourceKey]*SourceCodeTimeline
	sourceSeq   []*SourceCodeTimeline
}

// NewRecording returns an empty Recording.
func NewRecording(logger *slog.Logger) *Recording {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recording{
		logger: logger,
		events: event.NewEmitter[RecordingEventType, RecordingEvent](),
	}
	r.clear()
	return r
}

func (r *Recording) clear() {
	r.timelines = map[RecordType]*Timeline{
		RecordNetwork: NewTimeline(RecordNetwork),
		RecordScript:  NewTimeline(RecordScript),
		RecordLayout:  NewTimeline(RecordLayout),
	}
	r.resources = make(map[string]*Resource)
	r.resourceSeq = nil
	r.sources = make(map[sourceKey]*SourceCodeTimeline)
	r.sourceSeq = nil
}

func (r *Recording) On(kind RecordingEventType, fn func(RecordingEvent)) string {
	return r.events.On(kind, fn)
}

func (r *Recording) Off(id string) bool {
	return r.events.Off(id)
}

// AddResource registers url, returning the existing resource if known.
func (r *Recording) AddResource(url string) *Resource {
	if res, ok := r.resources[url]; ok {
		return res
	}
	res := NewResource(url)
	r.resources[url] = res
	r.resourceSeq = append(r.resourceSeq, res)
	r.events.Emit(ResourceAdded, RecordingEvent{Type: ResourceAdded, Resource: res})
	return res
}

// AddRecord files rec under its type timeline and, for network records, its
// resource; script and layout records also join the source code timeline
// for their location. Events fire for each newly created container before
// RecordAdded.
func (r *Recording) AddRecord(rec *Record) error {
	if err := rec.validate(); err != nil {
		r.logger.Warn("[Timeline] record rejected", "error", err)
		return err
	}
	r.timelines[rec.Type].Add(rec)

	switch rec.Type {
	case RecordNetwork:
		if rec.URL != "" {
			r.AddResource(rec.URL).timeline.Add(rec)
		}
	default:
		key := sourceKeyOf(rec)
		src, ok := r.sources[key]
		if !ok {
			src = &SourceCodeTimeline{
				SourceURL:  key.url,
				Location:   rec.Location,
				RecordType: rec.Type,
				EventType:  rec.EventType,
				Resource:   r.resources[key.url],
				timeline:   NewTimeline(rec.Type),
			}
			r.sources[key] = src
			r.sourceSeq = append(r.sourceSeq, src)
		}
		src.timeline.Add(rec)
		if !ok {
			r.events.Emit(SourceCodeTimelineAdded, RecordingEvent{Type: SourceCodeTimelineAdded, SourceCodeTimeline: src})
		}
	}

	r.events.Emit(RecordAdded, RecordingEvent{Type: RecordAdded, Record: rec})
	return nil
}

// Timeline returns the timeline holding every record of type t.
func (r *Recording) Timeline(t RecordType) *Timeline {
	return r.timelines[t]
}

// Resource looks up a resource by URL.
func (r *Recording) Resource(url string) (*Resource, bool) {
	res, ok := r.resources[url]
	return res, ok
}

// Resources returns resources in the order they were added.
func (r *Recording) Resources() []*Resource {
	return r.resourceSeq
}

// SourceCodeTimelines returns source code timelines in creation order.
func (r *Recording) SourceCodeTimelines() []*SourceCodeTimeline {
	return r.sourceSeq
}

// StartTime is the earliest start time across all records.
func (r *Recording) StartTime() Time {
	var start Time
	for _, tl := range r.timelines {
		if s := tl.StartTime(); s.Valid && (!start.Valid || s.Value < start.Value) {
			start = s
		}
	}
	return start
}

// EndTime is the latest end time across all records.
func (r *Recording) EndTime() Time {
	var end Time
	for _, tl := range r.timelines {
		if e := tl.EndTime(); e.Valid && (!end.Valid || e.Value > end.Value) {
			end = e
		}
	}
	return end
}

// Reset discards every record and notifies listeners.
func (r *Recording) Reset() {
	r.clear()
	r.events.Emit(RecordingReset, RecordingEvent{Type: RecordingReset})
}
