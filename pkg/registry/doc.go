// Package registry holds the immutable mapping from (tool, operation) to an
// argument schema and a pure implementation.
//
// Invariants:
// - A Registry never changes after Build.
// - Every entry has a non-nil Func and a self-consistent parameter list.
// - The clarify sentinel is never a registered tool.
//
// Usage:
//
//	reg, _ := registry.NewBuilder().
//		Register(registry.Operation{
//			Tool: "algorithm", Name: "double", Description: "Double a number",
//			Params: []registry.Param{{Name: "n", Type: registry.TypeNumber, Description: "input"}},
//			Func: func(args registry.Args) (interface{}, error) { return args.Float("n") * 2, nil },
//		}).
//		Build()
//	op, ok := reg.Lookup("algorithm", "double")
package registry
