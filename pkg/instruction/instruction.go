package instruction

import (
	"encoding/json"
	"fmt"

	"github.com/harun/mathroute/pkg/registry"
)

// Instruction is a validated routing decision
type Instruction struct {
	tool      string
	operation string
	arguments registry.Args
	question  string
	rawText   string
}

// Tool returns the normalized tool name
func (i *Instruction) Tool() string {
	return i.tool
}

// Operation returns the normalized operation name. Empty for clarify.
func (i *Instruction) Operation() string {
	return i.operation
}

// Arguments returns a copy of the converted arguments.
func (i *Instruction) Arguments() registry.Args {
	args := make(registry.Args, len(i.arguments))
	for k, v := range i.arguments {
		args[k] = v
	}
	return args
}

// Question returns the clarification text of a clarify instruction.
func (i *Instruction) Question() string {
	return i.question
}

// RawText returns the model reply the instruction was parsed from
func (i *Instruction) RawText() string {
	return i.rawText
}

// IsClarify reports whether no engine should run.
func (i *Instruction) IsClarify() bool {
	return registry.IsClarify(i.tool)
}

// Key returns "tool.operation", or the tool alone for clarify.
func (i *Instruction) Key() string {
	if i.IsClarify() {
		return i.tool
	}
	return i.tool + "." + i.operation
}

func (i *Instruction) String() string {
	if i.IsClarify() {
		return fmt.Sprintf("%s(%q)", i.tool, i.question)
	}
	return fmt.Sprintf("%s%v", i.Key(), map[string]interface{}(i.arguments))
}

// MarshalJSON encodes the instruction in its wire shape.
func (i *Instruction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tool      string        `json:"tool"`
		Operation string        `json:"operation,omitempty"`
		Arguments registry.Args `json:"arguments,omitempty"`
		Question  string        `json:"question,omitempty"`
	}{
		Tool:      i.tool,
		Operation: i.operation,
		Arguments: i.arguments,
		Question:  i.question,
	})
}
