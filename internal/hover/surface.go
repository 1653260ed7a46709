package hover

import (
	"slices"
	"strings"
	"unicode"
)

var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "default": true, "delete": true, "do": true, "else": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"in": true, "instanceof": true, "let": true, "new": true, "null": true,
	"return": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "undefined": true, "var": true, "void": true,
	"while": true,
}

var declarers = map[string]bool{"var": true, "let": true, "const": true, "function": true, "class": true}

// TextSurface is an in-memory Surface over JavaScript-like source. Offsets
// are in runes.
type TextSurface struct {
	lines    [][]rune
	tokens   [][]Token
	marks    []*textMark
	selected bool
}

// NewTextSurface tokenizes text.
func NewTextSurface(text string) *TextSurface {
	s := &TextSurface{}
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		s.lines = append(s.lines, runes)
		s.tokens = append(s.tokens, tokenize(runes))
	}
	return s
}

// SetSelection simulates a selection being present.
func (s *TextSurface) SetSelection(selected bool) {
	s.selected = selected
}

func (s *TextSurface) SomethingSelected() bool {
	return s.selected
}

func (s *TextSurface) LineTokens(line int) []Token {
	if line < 0 || line >= len(s.tokens) {
		return nil
	}
	return s.tokens[line]
}

func (s *TextSurface) TokenAt(pos Position) (Token, bool) {
	for _, t := range s.LineTokens(pos.Line) {
		if pos.Ch >= t.Start && pos.Ch < t.End {
			return t, true
		}
	}
	return Token{}, false
}

// Text returns the text within r, which must lie on one line.
func (s *TextSurface) Text(r Range) string {
	if r.Start.Line < 0 || r.Start.Line >= len(s.lines) {
		return ""
	}
	line := s.lines[r.Start.Line]
	from := min(max(r.Start.Ch, 0), len(line))
	to := min(max(r.End.Ch, from), len(line))
	return string(line[from:to])
}

func (s *TextSurface) MarkText(r Range, class string) Marker {
	m := &textMark{surface: s, r: r, class: class}
	s.marks = append(s.marks, m)
	return m
}

func (s *TextSurface) MarksAt(pos Position) []Marker {
	var out []Marker
	for _, m := range s.marks {
		if m.contains(pos) {
			out = append(out, m)
		}
	}
	return out
}

// Marks returns the live markers with class, or every marker when class is
// empty.
func (s *TextSurface) Marks(class string) []Marker {
	var out []Marker
	for _, m := range s.marks {
		if class == "" || m.class == class {
			out = append(out, m)
		}
	}
	return out
}

type textMark struct {
	surface *TextSurface
	r       Range
	class   string
	cleared bool
}

func (m *textMark) Range() (Range, bool) {
	return m.r, !m.cleared
}

func (m *textMark) Clear() {
	if m.cleared {
		return
	}
	m.cleared = true
	m.surface.marks = slices.DeleteFunc(m.surface.marks, func(o *textMark) bool { return o == m })
}

func (m *textMark) contains(pos Position) bool {
	after := func(a, b Position) bool { return a.Line > b.Line || a.Line == b.Line && a.Ch >= b.Ch }
	return after(pos, m.r.Start) && !after(pos, m.r.End)
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// tokenize splits one line into tokens typed the way a code editor's
// JavaScript mode would: keyword, def, variable, property, number, string,
// comment, operator, or untyped for whitespace and punctuation.
func tokenize(line []rune) []Token {
	var (
		out       []Token
		lastSig   Token
		afterDecl bool
	)
	emit := func(typ string, start, end int) {
		t := Token{Type: typ, String: string(line[start:end]), Start: start, End: end}
		out = append(out, t)
		if !isSpace(t.String) {
			lastSig = t
		}
	}
	for i := 0; i < len(line); {
		r := line[i]
		start := i
		switch {
		case r == ' ' || r == '\t':
			for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
				i++
			}
			emit("", start, i)
		case r == '/' && i+1 < len(line) && line[i+1] == '/':
			emit("comment", start, len(line))
			i = len(line)
		case isIdentStart(r):
			for i < len(line) && isIdentPart(line[i]) {
				i++
			}
			word := string(line[start:i])
			typ := "variable"
			switch {
			case lastSig.String == ".":
				typ = "property"
			case keywords[word]:
				typ = "keyword"
			case afterDecl:
				typ = "def"
			}
			afterDecl = typ == "keyword" && declarers[word]
			emit(typ, start, i)
		case unicode.IsDigit(r):
			for i < len(line) && (isIdentPart(line[i]) || line[i] == '.') {
				i++
			}
			emit("number", start, i)
		case r == '"' || r == '\'' || r == '`':
			i++
			for i < len(line) && line[i] != r {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			i = min(i+1, len(line))
			emit("string", start, i)
		case strings.ContainsRune("+-*/%=<>!&|?:^~", r):
			for i < len(line) && strings.ContainsRune("+-*/%=<>!&|?:^~", line[i]) {
				i++
			}
			emit("operator", start, i)
		default:
			i++
			emit("", start, i)
		}
	}
	return out
}
