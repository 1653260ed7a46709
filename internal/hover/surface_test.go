package hover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	type tok struct{ typ, str string }
	var got []tok
	for _, t := range tokenize([]rune(`let n = a.b + 1.5; // done`)) {
		got = append(got, tok{t.Type, t.String})
	}
	assert.Equal(t, []tok{
		{"keyword", "let"}, {"", " "}, {"def", "n"}, {"", " "}, {"operator", "="}, {"", " "},
		{"variable", "a"}, {"", "."}, {"property", "b"}, {"", " "}, {"operator", "+"}, {"", " "},
		{"number", "1.5"}, {"", ";"}, {"", " "}, {"comment", "// done"},
	}, got)
}

func TestTokenize_Strings(t *testing.T) {
	toks := tokenize([]rune(`say('it\'s', "unterminated`))
	require.Len(t, toks, 6)
	assert.Equal(t, "'it\\'s'", toks[2].String)
	assert.Equal(t, "string", toks[2].Type)
	assert.Equal(t, `"unterminated`, toks[5].String)
}

func TestExpressionAt(t *testing.T) {
	for _, tc := range []struct {
		line  string
		ch    int
		want  string
		start int
		ok    bool
	}{
		{line: "a.b.c", ch: 4, want: "a.b.c", start: 0, ok: true},
		{line: "a.b.c", ch: 2, want: "a.b", start: 0, ok: true},
		{line: "x = obj . field", ch: 12, want: "obj.field", start: 4, ok: true},
		{line: "f().g", ch: 4, want: "g", start: 4, ok: true},
		{line: "this.x", ch: 1, want: "this", start: 0, ok: true},
		{line: "'str'.length", ch: 1, ok: false},
		{line: "if (y)", ch: 0, ok: false},
	} {
		t.Run(tc.line, func(t *testing.T) {
			s := NewTextSurface(tc.line)
			token, found := s.TokenAt(Position{Ch: tc.ch})
			require.True(t, found)
			expr, start, ok := expressionAt(s.LineTokens(0), token)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, expr)
				assert.Equal(t, tc.start, start)
			}
		})
	}
}

func TestTextSurface_Marks(t *testing.T) {
	s := NewTextSurface("alpha beta\ngamma")
	m := s.MarkText(Range{Start: Position{0, 6}, End: Position{1, 2}}, "x")
	assert.Len(t, s.MarksAt(Position{0, 8}), 1)
	assert.Len(t, s.MarksAt(Position{1, 1}), 1)
	assert.Empty(t, s.MarksAt(Position{1, 2}))
	assert.Empty(t, s.MarksAt(Position{0, 5}))

	m.Clear()
	m.Clear()
	_, live := m.Range()
	assert.False(t, live)
	assert.Empty(t, s.Marks(""))
	assert.Equal(t, "beta", s.Text(Range{Start: Position{0, 6}, End: Position{0, 99}}))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeNone, ModeNonSymbolTokens, ModeJavaScriptExpression, ModeMarkedTokens} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("symbols")
	assert.Error(t, err)
}
