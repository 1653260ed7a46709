package hover

import (
	"testing"
	"time"

	"github.com/joeycumines/replay-inspector/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `const view = this.view.frame;
// comment only
if (count > 10) run("go");`

type recordingDelegate struct {
	candidates []Candidate
	released   int
	clicked    int
	leftMarker []Marker
	keepAlive  bool
	highlight  bool
}

func (d *recordingDelegate) NewHighlightCandidate(c *Controller, candidate Candidate) {
	d.candidates = append(d.candidates, candidate)
	if d.highlight {
		c.HighlightRange(candidate.Range)
	}
}
func (d *recordingDelegate) HighlightedRangeReleased(*Controller)   { d.released++ }
func (d *recordingDelegate) HighlightedRangeWasClicked(*Controller) { d.clicked++ }
func (d *recordingDelegate) MouseOutOfHoveredMarker(_ *Controller, m Marker) {
	d.leftMarker = append(d.leftMarker, m)
}
func (d *recordingDelegate) CanReleaseHighlightedRange(*Controller) bool { return !d.keepAlive }

type fixture struct {
	surface  *TextSurface
	delegate *recordingDelegate
	timers   *testutil.FakeTimers
	c        *Controller
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		surface:  NewTextSurface(source),
		delegate: &recordingDelegate{},
		timers:   &testutil.FakeTimers{},
	}
	if opts.Mode == ModeNone {
		opts.Mode = ModeNonSymbolTokens
	}
	f.c = New(f.surface, f.delegate, f.timers, opts)
	f.c.SetEnabled(true)
	f.c.MouseEntered()
	return f
}

func (f *fixture) tokens() []string {
	var out []string
	for _, c := range f.delegate.candidates {
		out = append(out, c.Token.String)
	}
	return out
}

func TestController_ListenerInstallation(t *testing.T) {
	c := New(NewTextSurface(source), nil, &testutil.FakeTimers{}, Options{Mode: ModeNonSymbolTokens})
	assert.Equal(t, Listener(0), c.Listeners())
	assert.Equal(t, StateDisabled, c.State())

	c.MouseEntered()
	assert.Equal(t, Listener(0), c.Listeners(), "enter is ignored until enabled")

	c.SetEnabled(true)
	assert.Equal(t, ListenEnter|ListenLeave, c.Listeners())
	assert.Equal(t, StateIdle, c.State())

	c.MouseEntered()
	assert.Equal(t, "enter|leave|move|out|down|up|blur", c.Listeners().String())

	c.MouseLeft()
	assert.Equal(t, ListenEnter|ListenLeave, c.Listeners())

	c.MouseEntered()
	c.SetMode(ModeNone)
	assert.Equal(t, Listener(0), c.Listeners())
	assert.Equal(t, StateDisabled, c.State())

	c.SetMode(ModeJavaScriptExpression)
	assert.Equal(t, ListenEnter|ListenLeave, c.Listeners())
	c.SetEnabled(false)
	assert.Equal(t, "none", c.Listeners().String())
}

func TestController_DebouncesNewTokens(t *testing.T) {
	f := newFixture(t, Options{MouseOverDelay: 500 * time.Millisecond})

	f.c.MouseMoved(Position{Line: 0, Ch: 7}) // view
	assert.Equal(t, StateHovering, f.c.State())
	f.timers.Advance(400 * time.Millisecond)
	assert.Empty(t, f.delegate.candidates)

	// a different token restarts the delay
	f.c.MouseMoved(Position{Line: 0, Ch: 14}) // this
	f.timers.Advance(400 * time.Millisecond)
	assert.Empty(t, f.delegate.candidates)

	// moving within the same token does not
	f.c.MouseMoved(Position{Line: 0, Ch: 15})
	f.timers.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"this"}, f.tokens())
	assert.Equal(t, Range{Start: Position{0, 13}, End: Position{0, 17}}, f.delegate.candidates[0].Range)
	assert.Zero(t, f.timers.Pending())
}

func TestController_IgnoresUntypedTokens(t *testing.T) {
	f := newFixture(t, Options{})
	f.c.MouseMoved(Position{Line: 0, Ch: 17}) // "."
	f.c.MouseMoved(Position{Line: 0, Ch: 5})  // space
	assert.Empty(t, f.delegate.candidates)
	assert.Equal(t, StateIdle, f.c.State())

	f.c.MouseMoved(Position{Line: 1, Ch: 4})
	assert.Equal(t, []string{"// comment only"}, f.tokens())
}

func TestController_HighlightBypassesDelay(t *testing.T) {
	f := newFixture(t, Options{MouseOverDelay: time.Second})
	f.delegate.highlight = true

	f.c.MouseMoved(Position{Line: 2, Ch: 5}) // count
	f.timers.Advance(time.Second)
	require.Equal(t, []string{"count"}, f.tokens())
	assert.Equal(t, StateHighlighted, f.c.State())
	assert.True(t, f.c.Listeners()&ListenMarkedMove != 0)

	f.c.MouseMoved(Position{Line: 2, Ch: 13}) // 10
	assert.Equal(t, []string{"count", "10"}, f.tokens(), "processed without waiting")

	marks := f.surface.Marks(DefaultHighlightClass)
	require.Len(t, marks, 1, "the old highlight is replaced")
	r, ok := marks[0].Range()
	require.True(t, ok)
	assert.Equal(t, "10", f.surface.Text(r))
}

func TestController_ReleaseDelay(t *testing.T) {
	f := newFixture(t, Options{MouseOutReleaseDelay: 200 * time.Millisecond})
	f.c.MouseMoved(Position{Line: 0, Ch: 7})
	require.Len(t, f.delegate.candidates, 1)
	f.c.HighlightRange(f.delegate.candidates[0].Range)

	f.c.MouseMovedWithMarkedText(false)
	f.timers.Advance(150 * time.Millisecond)
	f.c.MouseMovedWithMarkedText(true)
	f.timers.Advance(time.Second)
	assert.Zero(t, f.delegate.released, "returning in time cancels the release")
	assert.Equal(t, StateHighlighted, f.c.State())

	f.c.MouseMovedWithMarkedText(false)
	f.timers.Advance(100 * time.Millisecond)
	f.c.MouseMovedWithMarkedText(false)
	f.timers.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, f.delegate.released, "further moves outside do not restart the delay")
	assert.Empty(t, f.surface.Marks(""))
	assert.Equal(t, StateIdle, f.c.State())
	assert.Zero(t, f.c.Listeners()&ListenMarkedMove)

	f.c.MouseMovedWithMarkedText(false)
	assert.Zero(t, f.timers.Pending())
}

func TestController_ReleaseGate(t *testing.T) {
	f := newFixture(t, Options{})
	f.c.HighlightRange(Range{Start: Position{0, 6}, End: Position{0, 10}})
	f.delegate.keepAlive = true
	f.c.MouseMovedWithMarkedText(false)
	f.timers.Advance(time.Second)
	assert.Zero(t, f.delegate.released)

	f.delegate.keepAlive = false
	f.c.MouseMovedWithMarkedText(false)
	f.timers.Advance(0)
	assert.Equal(t, 1, f.delegate.released)
}

func TestController_ClickInsideHighlight(t *testing.T) {
	f := newFixture(t, Options{})
	f.delegate.highlight = true
	f.c.MouseMoved(Position{Line: 2, Ch: 5})
	require.Equal(t, StateHighlighted, f.c.State())

	f.c.MouseDown()
	f.c.MouseMoved(Position{Line: 2, Ch: 13})
	assert.Len(t, f.delegate.candidates, 1, "tracking pauses while the button is down")
	f.c.MouseUp(Position{Line: 2, Ch: 6})
	assert.Equal(t, 1, f.delegate.clicked)

	f.c.MouseDown()
	f.c.MouseUp(Position{Line: 2, Ch: 20})
	assert.Equal(t, 1, f.delegate.clicked)
}

func TestController_BlurResets(t *testing.T) {
	f := newFixture(t, Options{MouseOverDelay: time.Second})
	f.c.HighlightRange(Range{Start: Position{0, 6}, End: Position{0, 10}})
	f.c.MouseMoved(Position{Line: 0, Ch: 20})
	assert.Equal(t, StateHighlighted, f.c.State())

	f.c.Blur()
	assert.Equal(t, StateIdle, f.c.State())
	assert.Empty(t, f.surface.Marks(""))
	assert.Zero(t, f.timers.Pending())
	_, ok := f.c.HoveredToken()
	assert.False(t, ok)
}

func TestController_MouseOutCancelsPendingHover(t *testing.T) {
	f := newFixture(t, Options{MouseOverDelay: time.Second})
	f.c.MouseMoved(Position{Line: 0, Ch: 7})
	f.c.MouseOut()
	f.timers.Advance(time.Second)
	assert.Empty(t, f.delegate.candidates)
	assert.Equal(t, StateIdle, f.c.State())
}

func TestController_SelectionSuppressesCandidates(t *testing.T) {
	f := newFixture(t, Options{})
	f.surface.SetSelection(true)
	f.c.MouseMoved(Position{Line: 0, Ch: 7})
	assert.Empty(t, f.delegate.candidates)
	assert.Equal(t, StateHovering, f.c.State())
}

func TestController_ModeChangeReprocessesHoveredToken(t *testing.T) {
	f := newFixture(t, Options{})
	f.c.MouseMoved(Position{Line: 0, Ch: 24}) // frame
	require.Len(t, f.delegate.candidates, 1)
	assert.Empty(t, f.delegate.candidates[0].Expression)

	f.c.SetMode(ModeJavaScriptExpression)
	require.Len(t, f.delegate.candidates, 2)
	got := f.delegate.candidates[1]
	assert.Equal(t, "this.view.frame", got.Expression)
	assert.Equal(t, "this.view.frame", f.surface.Text(got.Range))
}

func TestController_MarkedTokens(t *testing.T) {
	f := newFixture(t, Options{Mode: ModeMarkedTokens})
	marker := f.surface.MarkText(Range{Start: Position{2, 4}, End: Position{2, 14}}, "breakpoint-condition")

	f.c.MouseMoved(Position{Line: 0, Ch: 7})
	assert.Empty(t, f.delegate.candidates, "unmarked tokens are not candidates")

	f.c.MouseMoved(Position{Line: 2, Ch: 5})
	require.Len(t, f.delegate.candidates, 1)
	assert.Equal(t, marker, f.delegate.candidates[0].Marker)

	f.c.MouseMoved(Position{Line: 2, Ch: 13})
	assert.Empty(t, f.delegate.leftMarker)

	f.c.MouseMoved(Position{Line: 2, Ch: 17}) // run, outside the marker
	assert.Equal(t, []Marker{marker}, f.delegate.leftMarker)
}
