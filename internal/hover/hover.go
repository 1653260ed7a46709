// Package hover tracks the token under the pointer on a text surface and
// turns it into highlight candidates, with a debounced entry and a delayed
// release of the highlighted range.
package hover

import (
	"fmt"
	"strings"
)

// Mode selects what a hovered token turns into.
type Mode int

const (
	// ModeNone disables tracking.
	ModeNone Mode = iota
	// ModeNonSymbolTokens offers any typed token as a candidate.
	ModeNonSymbolTokens
	// ModeJavaScriptExpression offers the dotted expression ending at the
	// hovered identifier.
	ModeJavaScriptExpression
	// ModeMarkedTokens offers only tokens inside text the surface has marked.
	ModeMarkedTokens
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeNonSymbolTokens:
		return "non-symbol-tokens"
	case ModeJavaScriptExpression:
		return "javascript-expression"
	case ModeMarkedTokens:
		return "marked-tokens"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeNone, ModeNonSymbolTokens, ModeJavaScriptExpression, ModeMarkedTokens} {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown hover mode: %q", s)
}

// State is the controller's tracking state.
type State int

const (
	StateDisabled State = iota
	StateIdle
	StateHovering
	StateHighlighted
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateHovering:
		return "hovering"
	case StateHighlighted:
		return "highlighted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listener is a set of pointer/focus event kinds the controller is
// currently listening for. Events of other kinds are ignored.
type Listener uint

const (
	ListenEnter Listener = 1 << iota
	ListenLeave
	ListenMove
	ListenOut
	ListenDown
	ListenUp
	ListenBlur
	// ListenMarkedMove is installed while a range is highlighted.
	ListenMarkedMove

	listenSurface  = ListenEnter | ListenLeave
	listenTracking = ListenMove | ListenOut | ListenDown | ListenUp | ListenBlur
)

var listenerNames = []string{"enter", "leave", "move", "out", "down", "up", "blur", "marked-move"}

func (l Listener) String() string {
	if l == 0 {
		return "none"
	}
	var names []string
	for i, name := range listenerNames {
		if l&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// Position is a zero based line and character offset.
type Position struct {
	Line int
	Ch   int
}

// Range is a half-open span on a single surface.
type Range struct {
	Start Position
	End   Position
}

// Token is a lexical token on one line. Start and End are character
// offsets. An empty Type means whitespace or an unclassified run.
type Token struct {
	Type   string
	String string
	Start  int
	End    int
}

// Marker is a handle to marked text on a surface.
type Marker interface {
	// Range reports where the marker is, or false once cleared.
	Range() (Range, bool)
	Clear()
}

// Surface is the text the controller tracks.
type Surface interface {
	TokenAt(pos Position) (Token, bool)
	LineTokens(line int) []Token
	MarksAt(pos Position) []Marker
	MarkText(r Range, class string) Marker
	SomethingSelected() bool
}

// Candidate is a token, or expression, proposed for highlighting.
type Candidate struct {
	Position Position
	Token    Token
	Range    Range
	// Expression is set in ModeJavaScriptExpression.
	Expression string
	// Marker is the hovered marker in ModeMarkedTokens.
	Marker Marker
}

// Delegate receives the controller's decisions.
type Delegate interface {
	NewHighlightCandidate(c *Controller, candidate Candidate)
	HighlightedRangeReleased(c *Controller)
	HighlightedRangeWasClicked(c *Controller)
	MouseOutOfHoveredMarker(c *Controller, marker Marker)
}

// ReleaseGate may be implemented by a Delegate to keep a highlighted range
// alive while the pointer is outside it.
type ReleaseGate interface {
	CanReleaseHighlightedRange(c *Controller) bool
}
