package timeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"
)

// Styles controls Render output.
type Styles struct {
	Header lipgloss.Style
	Title  lipgloss.Style
	Bar    map[RecordType]lipgloss.Style
	Ruler  lipgloss.Style
}

// DefaultStyles returns the styles used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true),
		Title:  lipgloss.NewStyle(),
		Bar: map[RecordType]lipgloss.Style{
			RecordNetwork: lipgloss.NewStyle().Foreground(lipgloss.Color("#20B9B4")),
			RecordScript:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
			RecordLayout:  lipgloss.NewStyle().Foreground(lipgloss.Color("#C678DD")),
		},
		Ruler: lipgloss.NewStyle().Faint(true),
	}
}

// RenderOptions configures Render.
type RenderOptions struct {
	// Width is the total line width in cells. Defaults to 80.
	Width  int
	Styles *Styles
}

const (
	barGlyph     = "█"
	markerGlyph  = "|"
	currentGlyph = "^"
)

// Render draws the laid out overview as text: a header with the window, a
// marker row, and one bar per unfiltered node.
func Render(o *Overview, opts RenderOptions) string {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	titleWidth := max(width*2/5, 10)
	barWidth := max(width-titleWidth-3, 10)

	r := o.Ruler()
	var b strings.Builder
	b.WriteString(styles.Header.Render(fmt.Sprintf("window %s..%s  current %s",
		At(r.StartTime()), At(r.EndTime()), At(r.CurrentTime()))))
	b.WriteByte('\n')

	cells := make([]string, barWidth)
	for i := range cells {
		cells[i] = " "
	}
	for _, m := range r.Markers() {
		if i, ok := cellAt(r.Percent(m.Time), barWidth); ok {
			cells[i] = markerGlyph
		}
	}
	if i, ok := cellAt(r.Percent(r.CurrentTime()), barWidth); ok {
		cells[i] = currentGlyph
	}
	b.WriteString(strings.Repeat(" ", titleWidth+2))
	b.WriteString(styles.Ruler.Render(strings.Join(cells, "")))
	b.WriteByte('\n')

	o.Walk(func(n *Node, depth int) {
		if n.Filtered {
			return
		}
		title := strings.Repeat("  ", depth) + n.Title()
		b.WriteString(styles.Title.Render(pad(truncate(title, titleWidth, "…"), titleWidth)))
		b.WriteString(" |")
		style, ok := styles.Bar[n.RecordType()]
		if !ok {
			style = styles.Title
		}
		b.WriteString(style.Render(bar(n, barWidth)))
		b.WriteString("|\n")
	})
	return b.String()
}

func cellAt(percent float64, width int) (int, bool) {
	if percent < 0 || percent > 100 {
		return 0, false
	}
	return min(int(percent/100*float64(width)), width-1), true
}

func bar(n *Node, width int) string {
	if !n.Visible {
		return strings.Repeat(" ", width)
	}
	from := int(math.Floor(n.Left / 100 * float64(width)))
	to := int(math.Ceil((n.Left + n.Width) / 100 * float64(width)))
	from = min(from, width-1)
	to = min(max(to, from+1), width)
	return strings.Repeat(" ", from) + strings.Repeat(barGlyph, to-from) + strings.Repeat(" ", width-to)
}

// truncate shortens s to maxWidth cells, grapheme aware, appending tail.
func truncate(s string, maxWidth int, tail string) string {
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	tailWidth := uniseg.StringWidth(tail)
	if tailWidth > maxWidth {
		return tail
	}
	target := maxWidth - tailWidth

	var sb strings.Builder
	var used int
	state := -1
	remaining := s
	for len(remaining) > 0 {
		var cluster string
		var w int
		cluster, remaining, w, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		if used+w > target {
			break
		}
		used += w
		sb.WriteString(cluster)
	}
	sb.WriteString(tail)
	return sb.String()
}

func pad(s string, width int) string {
	if w := uniseg.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
