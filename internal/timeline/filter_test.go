package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture(t *testing.T) *Overview {
	t.Helper()
	rec := NewRecording(nil)
	require.NoError(t, rec.AddRecord(&Record{Type: RecordNetwork, URL: "vendor.js", Start: At(0), End: At(1)}))
	require.NoError(t, rec.AddRecord(script("parse", "vendor.js", 0, 0, 1.5)))
	require.NoError(t, rec.AddRecord(&Record{Type: RecordLayout, EventType: "paint", Title: "paint", Start: At(2), End: At(2.2)}))
	o := newShownOverview(t)
	o.Attach(rec)
	o.UpdateLayout()
	return o
}

func visibleTitles(o *Overview) []string {
	var out []string
	o.Walk(func(n *Node, _ int) {
		if !n.Filtered {
			out = append(out, n.Title())
		}
	})
	return out
}

func TestCompileFilter_RejectsInvalidExpressions(t *testing.T) {
	for _, src := range []string{
		`type ==`,
		`duration + 1`,
		`nosuchfield == 1`,
	} {
		_, err := CompileFilter(src)
		assert.Error(t, err, src)
	}
}

func TestOverview_SetFilter(t *testing.T) {
	o := filterFixture(t)
	assert.Equal(t, []string{"vendor.js", "parse", "paint"}, visibleTitles(o))

	require.NoError(t, o.SetFilter(`type == "layout" && duration > 0.1`))
	o.UpdateLayout()
	assert.Equal(t, []string{"paint"}, visibleTitles(o))
	assert.Equal(t, `type == "layout" && duration > 0.1`, o.Filter().String())

	require.NoError(t, o.SetFilter(`eventType == "evaluate"`))
	o.UpdateLayout()
	assert.Equal(t, []string{"vendor.js", "parse"}, visibleTitles(o), "a parent stays while a child matches")

	err := o.SetFilter(`title ==`)
	require.Error(t, err)
	assert.Equal(t, `eventType == "evaluate"`, o.Filter().String())

	require.NoError(t, o.SetFilter(""))
	o.UpdateLayout()
	assert.Nil(t, o.Filter())
	assert.Equal(t, []string{"vendor.js", "parse", "paint"}, visibleTitles(o))
}
