package timeline

// NodeKind distinguishes resource nodes from source code timeline nodes.
type NodeKind int

const (
	NodeResource NodeKind = iota
	NodeSourceCode
)

// Node is one row of the overview tree. Its extents are recomputed from the
// ruler on every refresh and are percentages of the visible window.
type Node struct {
	Kind       NodeKind
	Resource   *Resource
	SourceCode *SourceCodeTimeline
	Children   []*Node

	Left    float64
	Width   float64
	Visible bool
	// Filtered is set when the active filter hides the node.
	Filtered bool

	seq int
}

// Title is the resource URL or the source code timeline title.
func (n *Node) Title() string {
	if n.Kind == NodeResource {
		return n.Resource.URL
	}
	return n.SourceCode.Title()
}

func (n *Node) StartTime() Time {
	if n.Kind == NodeResource {
		return n.Resource.FirstTimestamp()
	}
	return n.SourceCode.timeline.StartTime()
}

func (n *Node) EndTime() Time {
	if n.Kind == NodeResource {
		return n.Resource.LastTimestamp()
	}
	return n.SourceCode.timeline.EndTime()
}

// RecordType is network for resources.
func (n *Node) RecordType() RecordType {
	if n.Kind == NodeResource {
		return RecordNetwork
	}
	return n.SourceCode.RecordType
}

// weight orders siblings of different kinds: resources with a known start,
// then source code timelines, then everything else.
func (n *Node) weight() int {
	switch {
	case n.Kind == NodeResource && n.StartTime().Valid:
		return 0
	case n.Kind == NodeSourceCode:
		return 1
	default:
		return 2
	}
}

func (n *Node) layout(r *Ruler) {
	start, end := n.StartTime(), n.EndTime()
	if !start.Valid || r.EndTime() <= r.StartTime() {
		n.Left, n.Width, n.Visible = 0, 0, false
		return
	}
	if !end.Valid {
		end = start
	}
	n.Visible = end.Value >= r.StartTime() && start.Value <= r.EndTime()
	left := clampPercent(r.Percent(start.Value))
	right := clampPercent(r.Percent(end.Value))
	n.Left, n.Width = left, right-left
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}

func (n *Node) filterEnv() FilterEnv {
	env := FilterEnv{
		Type:     n.RecordType().String(),
		Title:    n.Title(),
		Resource: n.Kind == NodeResource,
	}
	start, end := n.StartTime(), n.EndTime()
	if start.Valid {
		env.Start = start.Value
	}
	if end.Valid {
		env.End = end.Value
	}
	if start.Valid && end.Valid {
		env.Duration = end.Value - start.Value
	}
	if n.Kind == NodeResource {
		env.URL = n.Resource.URL
	} else {
		env.URL = n.SourceCode.SourceURL
		env.EventType = n.SourceCode.EventType
		if n.SourceCode.Location != nil {
			env.Line = n.SourceCode.Location.Line
		}
	}
	return env
}
