package inspector

import (
	"fmt"
	"slices"

	"github.com/joeycumines/replay-inspector/internal/hover"
)

// hoverSession is a controller over an in-memory text surface. It acts as
// its own delegate: every candidate is highlighted, and each decision is
// kept for scripts to inspect.
type hoverSession struct {
	name       string
	surface    *hover.TextSurface
	controller *hover.Controller
	decisions  []string
	// keep holds the highlight while the pointer is outside it
	keep bool
}

func (i *Inspector) newHoverSession(name, text string, opts hover.Options) *hoverSession {
	s := &hoverSession{name: name, surface: hover.NewTextSurface(text)}
	s.controller = hover.New(s.surface, s, i.loop, opts)
	i.hovers[name] = s
	return s
}

func (s *hoverSession) decide(format string, args ...any) {
	s.decisions = append(s.decisions, fmt.Sprintf(format, args...))
}

func (s *hoverSession) NewHighlightCandidate(c *hover.Controller, candidate hover.Candidate) {
	text := candidate.Expression
	if text == "" {
		text = s.surface.Text(candidate.Range)
	}
	s.decide("candidate %s", text)
	c.HighlightRange(candidate.Range)
}

func (s *hoverSession) HighlightedRangeReleased(*hover.Controller) {
	s.decide("released")
}

func (s *hoverSession) HighlightedRangeWasClicked(*hover.Controller) {
	s.decide("clicked")
}

func (s *hoverSession) MouseOutOfHoveredMarker(_ *hover.Controller, marker hover.Marker) {
	r, _ := marker.Range()
	s.decide("left marker %d:%d", r.Start.Line, r.Start.Ch)
}

func (s *hoverSession) CanReleaseHighlightedRange(*hover.Controller) bool {
	return !s.keep
}

// moved delivers a pointer move, then the marked-text move the editor sends
// for the same position while a range is highlighted.
func (s *hoverSession) moved(pos hover.Position) {
	s.controller.MouseMoved(pos)
	if h := s.controller.HighlightedMarker(); h != nil {
		s.controller.MouseMovedWithMarkedText(slices.Contains(s.surface.MarksAt(pos), h))
	}
}

func (s *hoverSession) highlighted() string {
	h := s.controller.HighlightedMarker()
	if h == nil {
		return ""
	}
	r, ok := h.Range()
	if !ok {
		return ""
	}
	return s.surface.Text(r)
}

func (s *hoverSession) summary() HoverSummary {
	sum := HoverSummary{
		Name:      s.name,
		Mode:      s.controller.Mode().String(),
		State:     s.controller.State().String(),
		Listeners: s.controller.Listeners().String(),
		Decisions: len(s.decisions),
	}
	if c := s.controller.Candidate(); c != nil {
		sum.Candidate = c.Expression
		if sum.Candidate == "" {
			sum.Candidate = s.surface.Text(c.Range)
		}
	}
	return sum
}

var (
	_ hover.Delegate    = (*hoverSession)(nil)
	_ hover.ReleaseGate = (*hoverSession)(nil)
)
