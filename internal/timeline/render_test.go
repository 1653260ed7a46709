package timeline

import (
	"strings"
	"testing"

	"github.com/rivo/uniseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_OneRowPerVisibleNode(t *testing.T) {
	o := filterFixture(t)
	o.Ruler().SetCurrentTime(1)
	o.Ruler().AddMarker(Marker{Time: 2, Label: "segment 2"})
	o.UpdateLayout()

	out := Render(o, RenderOptions{Width: 60})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "window 0.000s..2.200s")
	assert.Contains(t, lines[0], "current 1.000s")
	assert.Contains(t, lines[1], currentGlyph)
	assert.Contains(t, lines[1], markerGlyph)
	assert.True(t, strings.HasPrefix(lines[2], "vendor.js"))
	assert.True(t, strings.HasPrefix(lines[3], "  parse"))
	assert.True(t, strings.HasPrefix(lines[4], "paint"))
	for _, line := range lines[2:] {
		assert.Contains(t, line, barGlyph)
	}

	require.NoError(t, o.SetFilter(`resource`))
	o.UpdateLayout()
	out = Render(o, RenderOptions{Width: 60})
	assert.NotContains(t, out, "paint")
	assert.NotContains(t, out, "parse")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10, "…"))
	assert.Equal(t, "https://e…", truncate("https://example.com/app.js", 10, "…"))
	got := truncate("日本語のタイトル", 7, "…")
	assert.Equal(t, "日本語…", got)
	assert.LessOrEqual(t, uniseg.StringWidth(got), 7)
	assert.Equal(t, "...", truncate("abcdef", 2, "..."))
}

func TestBar(t *testing.T) {
	n := &Node{Visible: true, Left: 50, Width: 0}
	assert.Equal(t, "     "+barGlyph+"    ", bar(n, 10))
	n = &Node{Visible: true, Left: 0, Width: 100}
	assert.Equal(t, strings.Repeat(barGlyph, 10), bar(n, 10))
	n = &Node{Visible: true, Left: 100, Width: 0}
	assert.Equal(t, strings.Repeat(" ", 9)+barGlyph, bar(n, 10))
	assert.Equal(t, strings.Repeat(" ", 10), bar(&Node{}, 10))
}
