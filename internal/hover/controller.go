package hover

import (
	"log/slog"
	"slices"
	"time"

	"github.com/joeycumines/replay-inspector/internal/loop"
)

const (
	DefaultMouseOverDelay = 500 * time.Millisecond
	DefaultHighlightClass = "hover-highlight"
)

// Options configures a Controller.
type Options struct {
	Logger *slog.Logger
	// MouseOverDelay is how long the pointer must rest on a token before it
	// is processed. Zero processes immediately.
	MouseOverDelay time.Duration
	// MouseOutReleaseDelay is how long the pointer may stay outside the
	// highlighted range before it is released.
	MouseOutReleaseDelay time.Duration
	// HighlightClass is passed to Surface.MarkText.
	HighlightClass string
	Mode           Mode
}

type hovered struct {
	pos   Position
	token Token
}

// Controller is a timer driven state machine over a Surface. It is
// confined to the goroutine that delivers its events and runs its timers.
type Controller struct {
	surface  Surface
	delegate Delegate
	timers   loop.Timers
	logger   *slog.Logger

	overDelay    time.Duration
	releaseDelay time.Duration
	class        string

	mode      Mode
	enabled   bool
	listeners Listener

	hovered      *hovered
	candidate    *Candidate
	hoveredMark  Marker
	highlight    Marker
	mouseDown    bool
	overTimer    loop.Timer
	releaseTimer loop.Timer
}

// New returns a disabled Controller. A nil delegate discards decisions.
func New(surface Surface, delegate Delegate, timers loop.Timers, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	class := opts.HighlightClass
	if class == "" {
		class = DefaultHighlightClass
	}
	return &Controller{
		surface:      surface,
		delegate:     delegate,
		timers:       timers,
		logger:       logger,
		overDelay:    opts.MouseOverDelay,
		releaseDelay: opts.MouseOutReleaseDelay,
		class:        class,
		mode:         opts.Mode,
	}
}

func (c *Controller) Mode() Mode                { return c.mode }
func (c *Controller) Enabled() bool             { return c.enabled }
func (c *Controller) Listeners() Listener       { return c.listeners }
func (c *Controller) Candidate() *Candidate     { return c.candidate }
func (c *Controller) HighlightedMarker() Marker { return c.highlight }

// State derives the tracking state.
func (c *Controller) State() State {
	switch {
	case !c.enabled || c.mode == ModeNone:
		return StateDisabled
	case c.highlight != nil:
		return StateHighlighted
	case c.hovered != nil:
		return StateHovering
	default:
		return StateIdle
	}
}

// HoveredToken returns the token last seen under the pointer.
func (c *Controller) HoveredToken() (Token, bool) {
	if c.hovered == nil {
		return Token{}, false
	}
	return c.hovered.token, true
}

// SetEnabled installs or removes the surface level enter/leave listeners.
func (c *Controller) SetEnabled(enabled bool) {
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	c.updateListeners()
}

// SetMode switches mode. The token already hovered is processed again under
// the new mode.
func (c *Controller) SetMode(mode Mode) {
	if c.mode == mode {
		return
	}
	c.mode = mode
	c.updateListeners()
	if c.mode != ModeNone && c.hovered != nil {
		c.process(*c.hovered)
	}
}

func (c *Controller) updateListeners() {
	if c.enabled && c.mode != ModeNone {
		c.listeners |= listenSurface
		return
	}
	c.reset()
	c.listeners = 0
}

func (c *Controller) listening(l Listener) bool {
	return c.listeners&l != 0
}

// MouseEntered installs the tracking listeners.
func (c *Controller) MouseEntered() {
	if !c.listening(ListenEnter) {
		return
	}
	c.listeners |= listenTracking
}

// MouseLeft removes the tracking listeners and forgets the hovered token.
// A highlighted range stays until released.
func (c *Controller) MouseLeft() {
	if !c.listening(ListenLeave) {
		return
	}
	c.listeners &^= listenTracking
	c.forgetHover()
	c.mouseDown = false
}

// MouseOut handles the pointer moving off the text onto another element.
func (c *Controller) MouseOut() {
	if !c.listening(ListenOut) {
		return
	}
	c.forgetHover()
}

// MouseMoved handles the pointer moving to pos.
func (c *Controller) MouseMoved(pos Position) {
	if !c.listening(ListenMove) || c.mouseDown {
		return
	}
	token, ok := c.surface.TokenAt(pos)
	if !ok || token.Type == "" || token.String == "" {
		c.leftHoveredMarker(pos)
		c.forgetHover()
		return
	}
	if c.hovered != nil && c.hovered.pos.Line == pos.Line && c.hovered.token.Start == token.Start {
		return
	}
	c.leftHoveredMarker(pos)

	h := hovered{pos: pos, token: token}
	c.hovered = &h
	c.candidate = nil
	c.stopOverTimer()
	// live feedback is already on screen; keep it continuous
	if c.highlight != nil || c.overDelay <= 0 {
		c.process(h)
		return
	}
	c.overTimer = c.timers.SetTimeout(func() {
		c.overTimer = nil
		c.process(h)
	}, c.overDelay)
}

func (c *Controller) leftHoveredMarker(pos Position) {
	if c.hoveredMark == nil || slices.Contains(c.surface.MarksAt(pos), c.hoveredMark) {
		return
	}
	marker := c.hoveredMark
	c.hoveredMark = nil
	if c.delegate != nil {
		c.delegate.MouseOutOfHoveredMarker(c, marker)
	}
}

// MouseDown suspends tracking while a selection may be in progress.
func (c *Controller) MouseDown() {
	if !c.listening(ListenDown) {
		return
	}
	c.mouseDown = true
	c.stopOverTimer()
}

// MouseUp resumes tracking and reports a click inside the highlighted range.
func (c *Controller) MouseUp(pos Position) {
	if !c.listening(ListenUp) {
		return
	}
	c.mouseDown = false
	if c.highlight == nil || c.hovered == nil {
		return
	}
	if slices.Contains(c.surface.MarksAt(pos), c.highlight) && c.delegate != nil {
		c.delegate.HighlightedRangeWasClicked(c)
	}
}

// Blur resets everything, including the highlighted range.
func (c *Controller) Blur() {
	if !c.listening(ListenBlur) {
		return
	}
	c.reset()
}

// MouseMovedWithMarkedText handles pointer movement anywhere while a range
// is highlighted. Leaving the range starts the release delay; coming back
// before it fires cancels it.
func (c *Controller) MouseMovedWithMarkedText(overHighlight bool) {
	if !c.listening(ListenMarkedMove) {
		return
	}
	release := !overHighlight
	if gate, ok := c.delegate.(ReleaseGate); release && ok {
		release = gate.CanReleaseHighlightedRange(c)
	}
	if !release {
		c.stopReleaseTimer()
		return
	}
	if c.releaseTimer != nil {
		return
	}
	c.releaseTimer = c.timers.SetTimeout(c.released, c.releaseDelay)
}

func (c *Controller) released() {
	c.releaseTimer = nil
	if c.delegate != nil {
		c.delegate.HighlightedRangeReleased(c)
	}
	c.RemoveHighlightedRange()
	c.hovered = nil
	c.candidate = nil
}

// HighlightRange marks r on the surface, replacing any other highlight.
func (c *Controller) HighlightRange(r Range) {
	if c.highlight != nil {
		if current, ok := c.highlight.Range(); ok && current == r {
			return
		}
	}
	c.RemoveHighlightedRange()
	c.highlight = c.surface.MarkText(r, c.class)
	c.listeners |= ListenMarkedMove
}

// RemoveHighlightedRange clears the highlight, if any.
func (c *Controller) RemoveHighlightedRange() {
	if c.highlight == nil {
		return
	}
	c.highlight.Clear()
	c.highlight = nil
	c.stopReleaseTimer()
	c.listeners &^= ListenMarkedMove
}

func (c *Controller) process(h hovered) {
	if c.surface.SomethingSelected() {
		return
	}
	var (
		candidate Candidate
		ok        bool
	)
	switch c.mode {
	case ModeNonSymbolTokens:
		candidate, ok = c.nonSymbolCandidate(h)
	case ModeJavaScriptExpression:
		candidate, ok = c.expressionCandidate(h)
	case ModeMarkedTokens:
		candidate, ok = c.markedCandidate(h)
	}
	if !ok {
		return
	}
	c.candidate = &candidate
	c.logger.Debug("[Hover] new highlight candidate", "mode", c.mode, "token", candidate.Token.String, "expression", candidate.Expression)
	if c.delegate != nil {
		c.delegate.NewHighlightCandidate(c, candidate)
	}
}

func (c *Controller) nonSymbolCandidate(h hovered) (Candidate, bool) {
	if h.token.Type == "" {
		return Candidate{}, false
	}
	return Candidate{Position: h.pos, Token: h.token, Range: tokenRange(h.pos.Line, h.token)}, true
}

func (c *Controller) markedCandidate(h hovered) (Candidate, bool) {
	var marker Marker
	for _, m := range c.surface.MarksAt(h.pos) {
		if m != c.highlight {
			marker = m
			break
		}
	}
	if marker == nil {
		return Candidate{}, false
	}
	c.hoveredMark = marker
	candidate, ok := c.nonSymbolCandidate(h)
	candidate.Marker = marker
	return candidate, ok
}

func (c *Controller) expressionCandidate(h hovered) (Candidate, bool) {
	expr, start, ok := expressionAt(c.surface.LineTokens(h.pos.Line), h.token)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		Position:   h.pos,
		Token:      h.token,
		Expression: expr,
		Range: Range{
			Start: Position{Line: h.pos.Line, Ch: start},
			End:   Position{Line: h.pos.Line, Ch: h.token.End},
		},
	}, true
}

func tokenRange(line int, t Token) Range {
	return Range{Start: Position{Line: line, Ch: t.Start}, End: Position{Line: line, Ch: t.End}}
}

func (c *Controller) forgetHover() {
	c.stopOverTimer()
	c.hovered = nil
	c.candidate = nil
}

func (c *Controller) reset() {
	c.forgetHover()
	c.hoveredMark = nil
	c.mouseDown = false
	c.RemoveHighlightedRange()
}

func (c *Controller) stopOverTimer() {
	if c.overTimer != nil {
		c.overTimer.Stop()
		c.overTimer = nil
	}
}

func (c *Controller) stopReleaseTimer() {
	if c.releaseTimer != nil {
		c.releaseTimer.Stop()
		c.releaseTimer = nil
	}
}
