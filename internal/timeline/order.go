package timeline

import (
	"cmp"
	"strings"

	"golang.org/x/text/collate"
)

// comparator orders overview siblings. The precedence is fixed: type
// weight, then source location and record type between source code
// timelines, then start time, title and insertion order.
type comparator struct {
	collator *collate.Collator
}

func (c comparator) compare(a, b *Node) int {
	if v := cmp.Compare(a.weight(), b.weight()); v != 0 {
		return v
	}
	if a.Kind == NodeSourceCode && b.Kind == NodeSourceCode {
		if v := compareSource(a.SourceCode, b.SourceCode); v != 0 {
			return v
		}
	}
	if v := compareTime(a.StartTime(), b.StartTime()); v != 0 {
		return v
	}
	if v := c.collator.CompareString(a.Title(), b.Title()); v != 0 {
		return v
	}
	return cmp.Compare(a.seq, b.seq)
}

func compareSource(a, b *SourceCodeTimeline) int {
	switch la, lb := a.Location, b.Location; {
	case la != nil && lb != nil:
		if v := cmp.Compare(la.Line, lb.Line); v != 0 {
			return v
		}
		if v := cmp.Compare(la.Column, lb.Column); v != 0 {
			return v
		}
	case la != nil:
		return -1
	case lb != nil:
		return 1
	}
	return strings.Compare(a.RecordType.String(), b.RecordType.String())
}

// compareTime puts known times first.
func compareTime(a, b Time) int {
	switch {
	case a.Valid && b.Valid:
		return cmp.Compare(a.Value, b.Value)
	case a.Valid:
		return -1
	case b.Valid:
		return 1
	}
	return 0
}
