package replay

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionState is the runtime's recording/playback mode.
type SessionState int

const (
	SessionInactive SessionState = iota
	SessionCapturing
	SessionReplaying
)

func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "inactive"
	case SessionCapturing:
		return "capturing"
	case SessionReplaying:
		return "replaying"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SegmentState is the lifecycle state of the active segment.
type SegmentState int

const (
	SegmentUnloaded SegmentState = iota
	SegmentAppending
	SegmentLoaded
	SegmentDispatching
)

func (s SegmentState) String() string {
	switch s {
	case SegmentUnloaded:
		return "unloaded"
	case SegmentAppending:
		return "appending"
	case SegmentLoaded:
		return "loaded"
	case SegmentDispatching:
		return "dispatching"
	default:
		return fmt.Sprintf("SegmentState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SegmentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlaybackSpeed selects whether replay honours recorded timing.
type PlaybackSpeed int

const (
	SpeedRealTime PlaybackSpeed = iota
	SpeedFastForward
)

func (s PlaybackSpeed) String() string {
	if s == SpeedFastForward {
		return "fast"
	}
	return "slow"
}

// ParsePlaybackSpeed accepts "slow"/"realtime" and "fast"/"fast-forward".
func ParsePlaybackSpeed(s string) (PlaybackSpeed, error) {
	switch s {
	case "", "slow", "realtime", "real-time":
		return SpeedRealTime, nil
	case "fast", "fast-forward", "fastforward":
		return SpeedFastForward, nil
	default:
		return SpeedRealTime, fmt.Errorf("invalid playback speed: %q", s)
	}
}

// SessionID and SegmentID are opaque runtime identifiers. Zero means none.
type (
	SessionID int64
	SegmentID int64
)

const (
	NoSession SessionID = 0
	NoSegment SegmentID = 0
)

// Position locates an event within a session: the segment offset, then the
// event offset inside that segment.
type Position struct {
	Segment int `json:"segmentOffset"`
	Event   int `json:"eventOffset"`
}

// Compare orders positions by segment offset, then event offset.
func (p Position) Compare(o Position) int {
	switch {
	case p.Segment < o.Segment:
		return -1
	case p.Segment > o.Segment:
		return 1
	case p.Event < o.Event:
		return -1
	case p.Event > o.Event:
		return 1
	default:
		return 0
	}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Segment, p.Event)
}

// Session is a recorded interaction capture.
type Session struct {
	ID       SessionID
	Segments []SegmentID
	Created  time.Time
	Label    string
}

// SegmentOffset returns the index of id within the session, or -1.
func (s *Session) SegmentOffset(id SegmentID) int {
	for i, seg := range s.Segments {
		if seg == id {
			return i
		}
	}
	return -1
}

// Segment is either an IncompleteSegment placeholder or a CompleteSegment.
type Segment interface {
	SegmentID() SegmentID
	Complete() bool
}

// IncompleteSegment stands in for a segment that is still being captured.
type IncompleteSegment struct {
	ID SegmentID
}

func (s *IncompleteSegment) SegmentID() SegmentID { return s.ID }
func (s *IncompleteSegment) Complete() bool       { return false }

// CompleteSegment is a fully captured segment.
type CompleteSegment struct {
	ID        SegmentID
	Session   SessionID
	Timestamp float64
	Events    []json.RawMessage
}

func (s *CompleteSegment) SegmentID() SegmentID { return s.ID }
func (s *CompleteSegment) Complete() bool       { return true }

// State is the runtime's replay state snapshot.
type State struct {
	SessionState SessionState `json:"sessionState"`
	SegmentState SegmentState `json:"segmentState"`
	SessionID    SessionID    `json:"sessionIdentifier"`
	SegmentID    SegmentID    `json:"segmentIdentifier"`
	Position     Position     `json:"replayPosition"`
}

// SessionPayload is the raw session data returned by the runtime.
type SessionPayload struct {
	ID        SessionID   `json:"id"`
	Segments  []SegmentID `json:"segments"`
	Timestamp time.Time   `json:"timestamp"`
	Label     string      `json:"label,omitempty"`
}

// SegmentPayload is the raw segment data returned by the runtime.
type SegmentPayload struct {
	ID        SegmentID         `json:"id"`
	SessionID SessionID         `json:"sessionId"`
	Timestamp float64           `json:"timestamp"`
	Events    []json.RawMessage `json:"events"`
}

// SessionFromPayload wraps a runtime payload.
func SessionFromPayload(p SessionPayload) *Session {
	return &Session{
		ID:       p.ID,
		Segments: append([]SegmentID(nil), p.Segments...),
		Created:  p.Timestamp,
		Label:    p.Label,
	}
}

// SegmentFromPayload wraps a runtime payload.
func SegmentFromPayload(p SegmentPayload) *CompleteSegment {
	return &CompleteSegment{
		ID:        p.ID,
		Session:   p.SessionID,
		Timestamp: p.Timestamp,
		Events:    append([]json.RawMessage(nil), p.Events...),
	}
}
