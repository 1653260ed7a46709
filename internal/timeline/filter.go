package timeline

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// FilterEnv is the environment a filter expression is evaluated against,
// one node at a time.
//
// Example expressions:
//
//	type == "script" && duration > 0.05
//	url contains "vendor" || title startsWith "load"
type FilterEnv struct {
	Type      string  `expr:"type"`
	EventType string  `expr:"eventType"`
	Title     string  `expr:"title"`
	URL       string  `expr:"url"`
	Line      int     `expr:"line"`
	Start     float64 `expr:"start"`
	End       float64 `expr:"end"`
	Duration  float64 `expr:"duration"`
	Resource  bool    `expr:"resource"`
}

// Filter is a compiled boolean expression over FilterEnv.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter parses and type-checks source.
func CompileFilter(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid timeline filter %q: %w", source, err)
	}
	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string {
	return f.source
}

// Match evaluates the filter for n.
func (f *Filter) Match(n *Node) (bool, error) {
	out, err := expr.Run(f.program, n.filterEnv())
	if err != nil {
		return false, fmt.Errorf("timeline filter %q: %w", f.source, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
