package timeline

import (
	"log/slog"
	"slices"
	"time"

	"github.com/joeycumines/replay-inspector/internal/loop"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultFrameInterval is the delay between NeedsLayout and the layout pass.
const DefaultFrameInterval = 16 * time.Millisecond

// Showable is implemented by views that track visibility.
type Showable interface {
	Shown()
	Hidden()
}

// Resizable is implemented by views that lay themselves out on demand.
type Resizable interface {
	UpdateLayout()
}

// OverviewOptions configures an Overview.
type OverviewOptions struct {
	Logger *slog.Logger
	// Timers schedules layout frames. Required.
	Timers        loop.Timers
	FrameInterval time.Duration
	// Locale selects the collation used to compare titles.
	Locale language.Tag
}

// Overview reconciles resources and source code timelines, arriving in any
// order, into a sorted tree of nodes laid out against a shared Ruler.
//
// Incoming objects are queued and only inserted by UpdateLayout, which runs
// at most once per frame after NeedsLayout. Node extents are pulled from the
// ruler on refresh; every change to the ruler bounds or the tree marks the
// overview dirty so the next pass refreshes all nodes.
type Overview struct {
	logger   *slog.Logger
	timers   loop.Timers
	interval time.Duration
	order    comparator
	ruler    *Ruler

	pending       []any
	roots         []*Node
	resourceNodes map[*Resource]*Node
	sourceNodes   map[*SourceCodeTimeline]*Node
	seq           int

	filter *Filter

	frame     loop.Timer
	shown     bool
	dirty     bool
	updating  bool
	refreshes int
}

var (
	_ Showable  = (*Overview)(nil)
	_ Resizable = (*Overview)(nil)
)

// NewOverview returns a hidden, empty overview.
func NewOverview(opts OverviewOptions) *Overview {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	locale := opts.Locale
	if locale == language.Und {
		locale = language.English
	}
	o := &Overview{
		logger:        logger,
		timers:        opts.Timers,
		interval:      interval,
		order:         comparator{collator: collate.New(locale)},
		resourceNodes: make(map[*Resource]*Node),
		sourceNodes:   make(map[*SourceCodeTimeline]*Node),
	}
	o.ruler = &Ruler{onChange: o.boundsChanged}
	return o
}

func (o *Overview) Ruler() *Ruler {
	return o.ruler
}

func (o *Overview) boundsChanged() {
	o.dirty = true
	o.NeedsLayout()
}

// AddResource queues r for insertion on the next layout pass.
func (o *Overview) AddResource(r *Resource) {
	o.enqueue(r)
}

// AddSourceCodeTimeline queues s for insertion on the next layout pass.
func (o *Overview) AddSourceCodeTimeline(s *SourceCodeTimeline) {
	o.enqueue(s)
}

func (o *Overview) enqueue(obj any) {
	o.pending = append(o.pending, obj)
	o.NeedsLayout()
}

// Pending returns the number of queued objects.
func (o *Overview) Pending() int {
	return len(o.pending)
}

// Attach feeds rec's resources and source code timelines into the overview
// and grows the ruler to cover its records. The returned function detaches.
func (o *Overview) Attach(rec *Recording) (detach func()) {
	for _, r := range rec.Resources() {
		o.AddResource(r)
	}
	for _, s := range rec.SourceCodeTimelines() {
		o.AddSourceCodeTimeline(s)
	}
	o.fitRuler(rec)
	ids := []string{
		rec.On(ResourceAdded, func(ev RecordingEvent) { o.AddResource(ev.Resource) }),
		rec.On(SourceCodeTimelineAdded, func(ev RecordingEvent) { o.AddSourceCodeTimeline(ev.SourceCodeTimeline) }),
		rec.On(RecordAdded, func(RecordingEvent) {
			// record data changes node extents even when bounds stay put
			o.dirty = true
			o.fitRuler(rec)
			o.NeedsLayout()
		}),
		rec.On(RecordingReset, func(RecordingEvent) { o.Reset() }),
	}
	return func() {
		for _, id := range ids {
			rec.Off(id)
		}
	}
}

func (o *Overview) fitRuler(rec *Recording) {
	start, end := rec.StartTime(), rec.EndTime()
	if !start.Valid {
		return
	}
	if o.ruler.ZeroTime() == 0 {
		o.ruler.SetZeroTime(start.Value)
	}
	o.ruler.SetStartTime(start.Value)
	o.ruler.SetEndTime(end.Value)
}

// NeedsLayout schedules a layout pass for the next frame. Calls within one
// frame coalesce.
func (o *Overview) NeedsLayout() {
	if o.frame != nil || o.timers == nil {
		return
	}
	o.frame = o.timers.SetTimeout(func() {
		o.frame = nil
		o.UpdateLayout()
	}, o.interval)
}

// UpdateLayout drains the queue into the tree and, if the overview is shown
// and anything changed, refreshes every node. Objects queued while a pass is
// running wait for the next one.
func (o *Overview) UpdateLayout() {
	if o.updating {
		return
	}
	o.updating = true
	defer func() { o.updating = false }()

	if o.frame != nil {
		o.frame.Stop()
		o.frame = nil
	}

	batch := o.pending
	o.pending = nil
	for _, obj := range batch {
		o.insert(obj)
	}
	if len(batch) > 0 {
		o.dirty = true
		o.logger.Debug("[Timeline] inserted pending objects", "count", len(batch))
	}
	// sort keys move as records stream in, so siblings are re-sorted on
	// every change rather than kept sorted on insertion
	if o.dirty {
		o.sortSiblings(o.roots)
	}

	if !o.shown || !o.dirty {
		return
	}
	o.refresh()
	o.dirty = false
}

func (o *Overview) insert(obj any) {
	switch v := obj.(type) {
	case *Resource:
		o.resourceNode(v)
	case *SourceCodeTimeline:
		if _, ok := o.sourceNodes[v]; ok {
			return
		}
		n := o.newNode(NodeSourceCode)
		n.SourceCode = v
		o.sourceNodes[v] = n
		if v.Resource != nil {
			parent := o.resourceNode(v.Resource)
			parent.Children = append(parent.Children, n)
		} else {
			o.roots = append(o.roots, n)
		}
	}
}

func (o *Overview) resourceNode(r *Resource) *Node {
	if n, ok := o.resourceNodes[r]; ok {
		return n
	}
	n := o.newNode(NodeResource)
	n.Resource = r
	o.resourceNodes[r] = n
	o.roots = append(o.roots, n)
	return n
}

func (o *Overview) newNode(kind NodeKind) *Node {
	o.seq++
	return &Node{Kind: kind, seq: o.seq}
}

func (o *Overview) sortSiblings(list []*Node) {
	slices.SortStableFunc(list, o.order.compare)
	for _, n := range list {
		o.sortSiblings(n.Children)
	}
}

func (o *Overview) refresh() {
	for _, n := range o.roots {
		o.refreshNode(n)
	}
	o.refreshes++
}

// refreshNode lays out n and its children. A parent stays unfiltered while
// any child matches.
func (o *Overview) refreshNode(n *Node) (matched bool) {
	n.layout(o.ruler)
	matched = o.match(n)
	for _, c := range n.Children {
		if o.refreshNode(c) {
			matched = true
		}
	}
	n.Filtered = !matched
	return matched
}

func (o *Overview) match(n *Node) bool {
	if o.filter == nil {
		return true
	}
	ok, err := o.filter.Match(n)
	if err != nil {
		o.logger.Warn("[Timeline] filter evaluation failed", "node", n.Title(), "error", err)
		return true
	}
	return ok
}

// SetFilter hides nodes not matching source. An empty source clears the
// filter. Invalid expressions leave the current filter in place.
func (o *Overview) SetFilter(source string) error {
	var f *Filter
	if source != "" {
		var err error
		if f, err = CompileFilter(source); err != nil {
			return err
		}
	}
	o.filter = f
	o.dirty = true
	o.NeedsLayout()
	return nil
}

// Filter returns the active filter, or nil.
func (o *Overview) Filter() *Filter {
	return o.filter
}

// Shown marks the overview visible and lays it out immediately.
func (o *Overview) Shown() {
	o.shown = true
	o.UpdateLayout()
}

// Hidden stops refreshing. Changes made while hidden are applied on the
// next pass after Shown.
func (o *Overview) Hidden() {
	o.shown = false
}

func (o *Overview) IsShown() bool {
	return o.shown
}

// Dirty reports whether a refresh is outstanding.
func (o *Overview) Dirty() bool {
	return o.dirty
}

// Refreshes counts completed refresh passes.
func (o *Overview) Refreshes() int {
	return o.refreshes
}

// Roots returns the top-level nodes in display order.
func (o *Overview) Roots() []*Node {
	return o.roots
}

// Walk visits every node depth first in display order.
func (o *Overview) Walk(fn func(n *Node, depth int)) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(o.roots, 0)
}

// Reset drops the tree, the queue and the ruler state.
func (o *Overview) Reset() {
	o.pending = nil
	o.roots = nil
	clear(o.resourceNodes)
	clear(o.sourceNodes)
	o.ruler.Reset()
}
