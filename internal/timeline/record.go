// Package timeline models captured timeline records and reconciles them into
// a display-ordered overview tree.
package timeline

import (
	"fmt"
	"slices"
	"strconv"
)

// RecordType classifies a timeline record.
type RecordType int

const (
	RecordUnknown RecordType = iota
	RecordNetwork
	RecordScript
	RecordLayout
)

func (t RecordType) String() string {
	switch t {
	case RecordNetwork:
		return "network"
	case RecordScript:
		return "script"
	case RecordLayout:
		return "layout"
	default:
		return "unknown"
	}
}

// ParseRecordType is the inverse of RecordType.String.
func ParseRecordType(s string) (RecordType, error) {
	switch s {
	case "network":
		return RecordNetwork, nil
	case "script":
		return RecordScript, nil
	case "layout":
		return RecordLayout, nil
	default:
		return RecordUnknown, fmt.Errorf("unknown record type: %q", s)
	}
}

// Time is an optional timestamp, in seconds.
type Time struct {
	Value float64
	Valid bool
}

// At returns a valid Time.
func At(v float64) Time {
	return Time{Value: v, Valid: true}
}

func (t Time) String() string {
	if !t.Valid {
		return "-"
	}
	return strconv.FormatFloat(t.Value, 'f', 3, 64) + "s"
}

// SourceLocation points into a script resource. Line and Column are zero
// based.
type SourceLocation struct {
	URL    string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.URL, l.Line+1, l.Column+1)
}

// Record is a single captured timeline entry. Records are immutable once
// added to a Recording.
type Record struct {
	Type      RecordType
	EventType string
	Title     string
	Start     Time
	End       Time
	// Location is the script location that produced the record, if known.
	Location *SourceLocation
	// URL is the resource a network record loads.
	URL string
}

// Duration returns End-Start, or zero when either is missing.
func (r *Record) Duration() float64 {
	if !r.Start.Valid || !r.End.Valid {
		return 0
	}
	return r.End.Value - r.Start.Value
}

func (r *Record) validate() error {
	if r.Type == RecordUnknown {
		return fmt.Errorf("record %q: unknown type", r.Title)
	}
	if r.End.Valid && !r.Start.Valid {
		return fmt.Errorf("record %q: end time without start time", r.Title)
	}
	if r.End.Valid && r.End.Value < r.Start.Value {
		return fmt.Errorf("record %q: ends at %s before it starts at %s", r.Title, r.End, r.Start)
	}
	return nil
}

// Timeline is an append-only sequence of records ordered by start time.
// Records without a start time sort last, in arrival order.
type Timeline struct {
	Type    RecordType
	records []*Record
}

// NewTimeline returns an empty timeline for records of type t.
func NewTimeline(t RecordType) *Timeline {
	return &Timeline{Type: t}
}

// Add inserts r after every record starting at or before it.
func (t *Timeline) Add(r *Record) {
	i := len(t.records)
	if r.Start.Valid {
		i, _ = slices.BinarySearchFunc(t.records, r, func(e, target *Record) int {
			if !e.Start.Valid || e.Start.Value > target.Start.Value {
				return 1
			}
			return -1
		})
	}
	t.records = slices.Insert(t.records, i, r)
}

// Records returns the records in order. The slice must not be modified.
func (t *Timeline) Records() []*Record {
	return t.records
}

func (t *Timeline) Len() int {
	return len(t.records)
}

// StartTime is the earliest start time, if any record has one.
func (t *Timeline) StartTime() Time {
	if len(t.records) == 0 {
		return Time{}
	}
	return t.records[0].Start
}

// EndTime is the latest end (or start, for open records) time.
func (t *Timeline) EndTime() Time {
	var end Time
	for _, r := range t.records {
		last := r.End
		if !last.Valid {
			last = r.Start
		}
		if last.Valid && (!end.Valid || last.Value > end.Value) {
			end = last
		}
	}
	return end
}
