// Package tools registers the built-in engines.
package tools

import (
	"fmt"

	"github.com/harun/mathroute/pkg/engine/algorithm"
	"github.com/harun/mathroute/pkg/engine/calculator"
	"github.com/harun/mathroute/pkg/engine/converter"
	"github.com/harun/mathroute/pkg/registry"
)

// Operations returns every built-in operation: calculator, converter and
// algorithm.
func Operations() []registry.Operation {
	var ops []registry.Operation
	ops = append(ops, calculator.Operations()...)
	ops = append(ops, converter.Operations()...)
	ops = append(ops, algorithm.Operations()...)
	return ops
}

// RegisterBuiltins queues the built-in operations on b.
func RegisterBuiltins(b *registry.Builder) *registry.Builder {
	return b.Register(Operations()...)
}

// DefaultRegistry builds the registry of built-in operations filtered by
// policy. A nil policy exposes everything.
func DefaultRegistry(policy *registry.Policy) (*registry.Registry, error) {
	reg, err := RegisterBuiltins(registry.NewBuilder().WithPolicy(policy)).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	return reg, nil
}
