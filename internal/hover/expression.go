package hover

func isIdentifier(t Token) bool {
	switch t.Type {
	case "variable", "variable-2", "def", "property":
		return true
	case "keyword":
		return t.String == "this"
	}
	return false
}

// expressionAt returns the member expression ending at hovered, such as
// "this.view.frame" for a hover over "frame", and the character it starts
// at. Only plain identifier chains qualify; calls and index expressions
// end the walk.
func expressionAt(line []Token, hovered Token) (expr string, start int, ok bool) {
	if !isIdentifier(hovered) {
		return "", 0, false
	}
	i := -1
	for j, t := range line {
		if t.Start == hovered.Start {
			i = j
			break
		}
	}
	if i < 0 {
		return "", 0, false
	}

	expr, start = hovered.String, hovered.Start
	for {
		dot := prevSignificant(line, i)
		if dot < 0 || line[dot].String != "." {
			break
		}
		owner := prevSignificant(line, dot)
		if owner < 0 || !isIdentifier(line[owner]) {
			break
		}
		expr = line[owner].String + "." + expr
		start = line[owner].Start
		i = owner
	}
	return expr, start, true
}

func prevSignificant(line []Token, i int) int {
	for i--; i >= 0; i-- {
		if !isSpace(line[i].String) {
			return i
		}
	}
	return -1
}

func isSpace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}
