// Package instruction turns untrusted model text into a validated Instruction.
//
// Invariants:
// - An Instruction is only produced by Parser.Parse and is always complete:
//   a registered (tool, operation) with every declared argument present and
//   converted to its declared type.
// - Every failure is a *faults.Error of the validation layer, so
//   errors.Is(err, faults.ErrRoutingFailed) holds for all of them.
// - Missing values are never defaulted.
//
// Usage:
//
//	parser, _ := instruction.NewParser(reg)
//	inst, err := parser.Parse(modelReply)
//	if errors.Is(err, faults.ErrNoJSONFound) { ... }
//	if inst.IsClarify() { fmt.Println(inst.Question()) }
package instruction
