// Package calculator evaluates arithmetic expression strings inside a closed
// grammar.
//
// Invariants:
// - Only numeric literals, + - * / % **, parentheses, and the whitelisted
//   functions and constants are accepted.
// - The whole expression is parsed before anything is evaluated; a rejected
//   expression is never partially evaluated.
// - Evaluation is pure and bounded by MaxLength and maxDepth.
package calculator

import (
	"math"
	"sort"
	"strings"

	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/registry"
)

// MaxLength bounds the size of an accepted expression in bytes.
const MaxLength = 1024

const maxDepth = 64

// Evaluate parses and evaluates expr.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, faults.New(faults.UnsafeExpression, "expression", "expression is empty")
	}
	if len(expr) > MaxLength {
		return 0, faults.New(faults.UnsafeExpression, "expression", "expression longer than %d bytes", MaxLength)
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}

	tree, err := parse(tokens)
	if err != nil {
		return 0, err
	}

	v, err := tree.eval()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domainError("result is not a finite number")
	}
	return v, nil
}

// Validate reports whether expr would be accepted by the grammar, without
// evaluating it.
func Validate(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return faults.New(faults.UnsafeExpression, "expression", "expression is empty")
	}
	if len(expr) > MaxLength {
		return faults.New(faults.UnsafeExpression, "expression", "expression longer than %d bytes", MaxLength)
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return err
	}
	_, err = parse(tokens)
	return err
}

// Functions returns the whitelisted function names, sorted.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constants returns the whitelisted constant names, sorted.
func Constants() []string {
	names := make([]string, 0, len(constants))
	for name := range constants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operations returns the calculator registry entries.
func Operations() []registry.Operation {
	return []registry.Operation{
		{
			Tool:        registry.ToolCalculator,
			Name:        "evaluate",
			Description: "Evaluate an arithmetic expression using + - * / % ** and parentheses, plus functions " + strings.Join(Functions(), ", ") + " and constants " + strings.Join(Constants(), ", "),
			Params: []registry.Param{
				{Name: "expression", Type: registry.TypeString, Description: "Arithmetic expression, e.g. 17*3+2"},
			},
			Func: func(args registry.Args) (interface{}, error) {
				return Evaluate(args.String("expression"))
			},
		},
	}
}
