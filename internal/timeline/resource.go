package timeline

// Resource is a loaded URL and the network records that fetched it.
type Resource struct {
	URL      string
	timeline *Timeline
}

// NewResource returns a Resource with an empty network timeline.
func NewResource(url string) *Resource {
	return &Resource{URL: url, timeline: NewTimeline(RecordNetwork)}
}

func (r *Resource) Timeline() *Timeline {
	return r.timeline
}

// FirstTimestamp is the start of the first network record, if any.
func (r *Resource) FirstTimestamp() Time {
	return r.timeline.StartTime()
}

// LastTimestamp is the end of the last network record, if any.
func (r *Resource) LastTimestamp() Time {
	return r.timeline.EndTime()
}

// SourceCodeTimeline groups records produced at one source location with the
// same record and event type.
type SourceCodeTimeline struct {
	SourceURL  string
	Location   *SourceLocation
	RecordType RecordType
	EventType  string
	// Resource is the resource that served SourceURL, when the recording
	// knows about it.
	Resource *Resource
	timeline *Timeline
}

func (s *SourceCodeTimeline) Timeline() *Timeline {
	return s.timeline
}

// Title is the title of the earliest record, falling back to the event type.
func (s *SourceCodeTimeline) Title() string {
	if recs := s.timeline.Records(); len(recs) > 0 && recs[0].Title != "" {
		return recs[0].Title
	}
	return s.EventType
}

type sourceKey struct {
	url        string
	line       int
	column     int
	located    bool
	recordType RecordType
	eventType  string
}

func sourceKeyOf(r *Record) sourceKey {
	k := sourceKey{recordType: r.Type, eventType: r.EventType}
	if r.Location != nil {
		k.url, k.line, k.column, k.located = r.Location.URL, r.Location.Line, r.Location.Column, true
	}
	return k
}
