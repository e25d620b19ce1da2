package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Tool names understood by the router. ToolClarify is not an execution domain:
// it tells the pipeline to ask the user for more information.
const (
	ToolCalculator = "calculator"
	ToolConverter  = "converter"
	ToolAlgorithm  = "algorithm"
	ToolClarify    = "clarify"
	ToolNone       = "none" // alias of ToolClarify
)

// IsClarify reports whether tool names the clarify sentinel.
func IsClarify(tool string) bool {
	t := Normalize(tool)
	return t == ToolClarify || t == ToolNone
}

// Normalize canonicalizes a tool or operation name for lookup.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParamType is the declared type of an operation argument
type ParamType string

const (
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeString  ParamType = "string"
)

// Param declares one required argument of an operation
type Param struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
}

// Func is the pure implementation behind an operation. Args are already
// coerced to the declared parameter types.
type Func func(args Args) (interface{}, error)

// Operation is one registry entry
type Operation struct {
	Tool        string  `json:"tool" yaml:"tool"`
	Name        string  `json:"operation" yaml:"operation"`
	Description string  `json:"description" yaml:"description"`
	Params      []Param `json:"params" yaml:"params"`
	Func        Func    `json:"-" yaml:"-"`
}

// Key returns the "tool.operation" identifier.
func (o Operation) Key() string {
	return o.Tool + "." + o.Name
}

// Param returns the declared parameter with the given name.
func (o Operation) Param(name string) (Param, bool) {
	for _, p := range o.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ArgumentSchema returns the JSON Schema describing the operation's arguments.
func (o Operation) ArgumentSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(o.Params))
	required := make([]string, 0, len(o.Params))

	for _, p := range o.Params {
		properties[p.Name] = map[string]interface{}{
			"type":        string(p.Type),
			"description": p.Description,
		}
		required = append(required, p.Name)
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type entry struct {
	op     Operation
	schema *gojsonschema.Schema
}

// Registry maps (tool, operation) to an Operation. It is immutable once built
// and safe for concurrent use without locking.
type Registry struct {
	tools map[string]map[string]*entry
	order []*entry
}

// Lookup returns the operation registered under (tool, operation).
func (r *Registry) Lookup(tool, operation string) (Operation, bool) {
	ops, ok := r.tools[Normalize(tool)]
	if !ok {
		return Operation{}, false
	}
	e, ok := ops[Normalize(operation)]
	if !ok {
		return Operation{}, false
	}
	return e.op, true
}

// HasTool reports whether any operation is registered under tool.
func (r *Registry) HasTool(tool string) bool {
	_, ok := r.tools[Normalize(tool)]
	return ok
}

// Tools returns the registered tool names, sorted.
func (r *Registry) Tools() []string {
	tools := make([]string, 0, len(r.tools))
	for name := range r.tools {
		tools = append(tools, name)
	}
	sort.Strings(tools)
	return tools
}

// Operations returns every registered operation ordered by tool then name.
func (r *Registry) Operations() []Operation {
	ops := make([]Operation, 0, len(r.order))
	for _, e := range r.order {
		ops = append(ops, e.op)
	}
	return ops
}

// OperationsFor returns the operations of one tool ordered by name.
func (r *Registry) OperationsFor(tool string) []Operation {
	var ops []Operation
	for _, e := range r.order {
		if e.op.Tool == Normalize(tool) {
			ops = append(ops, e.op)
		}
	}
	return ops
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.order)
}

// ValidateArguments checks coerced arguments against the operation's compiled
// schema.
func (r *Registry) ValidateArguments(tool, operation string, args map[string]interface{}) error {
	ops, ok := r.tools[Normalize(tool)]
	if !ok {
		return fmt.Errorf("tool not registered: %s", tool)
	}
	e, ok := ops[Normalize(operation)]
	if !ok {
		return fmt.Errorf("operation not registered: %s.%s", tool, operation)
	}

	result, err := e.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			errs = append(errs, re.String())
		}
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}

// Builder collects operations and produces a validated Registry.
type Builder struct {
	ops    []Operation
	policy *Policy
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithPolicy filters registered operations through an allow/deny policy.
func (b *Builder) WithPolicy(policy *Policy) *Builder {
	b.policy = policy
	return b
}

// Register queues operations for the next Build.
func (b *Builder) Register(ops ...Operation) *Builder {
	b.ops = append(b.ops, ops...)
	return b
}

// Build validates every queued operation and returns the registry.
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		tools: make(map[string]map[string]*entry),
	}
	b.policy.Validate()

	for _, op := range b.ops {
		op.Tool = Normalize(op.Tool)
		op.Name = Normalize(op.Name)

		if err := validateOperation(op); err != nil {
			return nil, fmt.Errorf("invalid operation %s: %w", op.Key(), err)
		}

		if !b.policy.IsAllowed(op.Tool, op.Name) {
			log.Debug().Str("operation", op.Key()).Msg("Operation disabled by policy")
			continue
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(op.ArgumentSchema()))
		if err != nil {
			return nil, fmt.Errorf("invalid argument schema for %s: %w", op.Key(), err)
		}

		if _, ok := r.tools[op.Tool]; !ok {
			r.tools[op.Tool] = make(map[string]*entry)
		}
		if _, dup := r.tools[op.Tool][op.Name]; dup {
			return nil, fmt.Errorf("duplicate operation %s", op.Key())
		}

		op.Params = append([]Param(nil), op.Params...)
		e := &entry{op: op, schema: schema}
		r.tools[op.Tool][op.Name] = e
		r.order = append(r.order, e)
	}

	sort.Slice(r.order, func(i, j int) bool {
		if r.order[i].op.Tool != r.order[j].op.Tool {
			return r.order[i].op.Tool < r.order[j].op.Tool
		}
		return r.order[i].op.Name < r.order[j].op.Name
	})

	log.Debug().Int("operations", len(r.order)).Strs("tools", r.Tools()).Msg("Registry built")

	return r, nil
}

func validateOperation(op Operation) error {
	if op.Tool == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if op.Name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}
	if IsClarify(op.Tool) {
		return fmt.Errorf("tool name %q is reserved", op.Tool)
	}
	if op.Description == "" {
		return fmt.Errorf("operation description cannot be empty")
	}
	if op.Func == nil {
		return fmt.Errorf("operation func cannot be nil")
	}

	seen := make(map[string]bool, len(op.Params))
	for _, p := range op.Params {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %s", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case TypeNumber, TypeInteger, TypeString:
		default:
			return fmt.Errorf("invalid parameter type %q for %s", p.Type, p.Name)
		}
		if p.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", p.Name)
		}
	}
	return nil
}
