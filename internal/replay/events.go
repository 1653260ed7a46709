package replay

// EventType names a Manager event.
type EventType string

const (
	EventInitialized             EventType = "Initialized"
	EventCaptureStarted          EventType = "CaptureStarted"
	EventCaptureStopped          EventType = "CaptureStopped"
	EventPlaybackStarted         EventType = "PlaybackStarted"
	EventPlaybackPaused          EventType = "PlaybackPaused"
	EventPlaybackFinished        EventType = "PlaybackFinished"
	EventPlaybackPositionChanged EventType = "PlaybackPositionChanged"
	EventActiveSessionChanged    EventType = "ActiveSessionChanged"
	EventActiveSegmentChanged    EventType = "ActiveSegmentChanged"
	EventSessionAdded            EventType = "SessionAdded"
	EventSessionRemoved          EventType = "SessionRemoved"
	EventSessionSegmentAdded     EventType = "SessionSegmentAdded"
	EventSessionSegmentRemoved   EventType = "SessionSegmentRemoved"
	EventSessionSegmentsChanged  EventType = "SessionSegmentsChanged"
)

// EventTypes lists every event type in declaration order.
var EventTypes = []EventType{
	EventInitialized,
	EventCaptureStarted,
	EventCaptureStopped,
	EventPlaybackStarted,
	EventPlaybackPaused,
	EventPlaybackFinished,
	EventPlaybackPositionChanged,
	EventActiveSessionChanged,
	EventActiveSegmentChanged,
	EventSessionAdded,
	EventSessionRemoved,
	EventSessionSegmentAdded,
	EventSessionSegmentRemoved,
	EventSessionSegmentsChanged,
}

// Event is the payload delivered to Manager listeners. Only the fields
// relevant to Type are set.
type Event struct {
	Type EventType `json:"type"`

	SessionID SessionID `json:"sessionId,omitempty"`
	SegmentID SegmentID `json:"segmentId,omitempty"`

	// PreviousSessionID / PreviousSegmentID accompany the Active*Changed
	// events so listeners can diff.
	PreviousSessionID SessionID `json:"previousSessionId,omitempty"`
	PreviousSegmentID SegmentID `json:"previousSegmentId,omitempty"`

	Position  Position `json:"position"`
	Timestamp float64  `json:"timestamp,omitempty"`
}
