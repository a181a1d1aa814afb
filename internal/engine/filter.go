package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"webhook-tester/internal/webhook"
)

// CompileFilter compiles a boolean expression over an event's fields
// (id, timestamp, method, headers, query, body), e.g.
//
//	method == "POST" && headers["x-github-event"] == "push"
func CompileFilter(source string) (*vm.Program, error) {
	prog, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return prog, nil
}

// FilterEvents returns the events prog matches, keeping their order. An event
// the expression fails to evaluate against is treated as not matching.
func FilterEvents(events []webhook.Event, prog *vm.Program) []webhook.Event {
	out := make([]webhook.Event, 0, len(events))
	for _, ev := range events {
		result, err := expr.Run(prog, ev.Env())
		if err != nil {
			continue
		}
		if ok, _ := result.(bool); ok {
			out = append(out, ev)
		}
	}
	return out
}
