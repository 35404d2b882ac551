package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean expression over the fields of a list item,
// e.g. `status == "sent" && len(numbers) > 1`.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles expression. Fields missing from an item evaluate to nil.
func CompileFilter(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter '%s': %w", expression, err)
	}
	return &Filter{source: expression, program: program}, nil
}

// Match evaluates the filter against one JSON object.
func (f *Filter) Match(item json.RawMessage) (bool, error) {
	var env map[string]any
	if err := json.Unmarshal(item, &env); err != nil {
		return false, fmt.Errorf("filter '%s': item is not an object: %w", f.source, err)
	}
	if env == nil {
		env = map[string]any{}
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter '%s': %w", f.source, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("filter '%s' returned %T, want bool", f.source, out)
	}
	return ok, nil
}
