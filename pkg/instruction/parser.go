package instruction

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/registry"
)

// FallbackQuestion is returned for clarify replies that carry no text.
const FallbackQuestion = "I can only help with arithmetic, unit conversions and the listed algorithms."

var envelopeSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"tool"},
	"properties": map[string]interface{}{
		"tool":      map[string]interface{}{"type": "string", "minLength": 1},
		"operation": map[string]interface{}{"type": "string"},
		"arguments": map[string]interface{}{"type": "object"},
	},
}

var codeFence = regexp.MustCompile("```[a-zA-Z]*")

// decimalLiteral is the only string shape coerced to a number. Hex, binary,
// underscores and named values like Inf stay strings.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Parser validates model replies against a registry.
type Parser struct {
	registry *registry.Registry
	envelope *gojsonschema.Schema
}

// NewParser creates a parser bound to reg.
func NewParser(reg *registry.Registry) (*Parser, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}
	return &Parser{registry: reg, envelope: schema}, nil
}

// Parse extracts, validates and converts the instruction in raw.
func (p *Parser) Parse(raw string) (*Instruction, error) {
	obj, loc, err := extractObject(raw)
	if err != nil {
		return nil, err
	}

	if err := p.validateEnvelope(obj); err != nil {
		return nil, err
	}

	envelope := gjson.Parse(obj)
	tool := registry.Normalize(envelope.Get("tool").String())
	if tool == "" {
		return nil, faults.New(faults.SchemaViolation, "tool", "tool must not be blank")
	}

	if registry.IsClarify(tool) {
		return &Instruction{
			tool:     registry.ToolClarify,
			question: clarification(envelope, raw, loc),
			rawText:  raw,
		}, nil
	}

	opField := envelope.Get("operation")
	if !opField.Exists() {
		return nil, faults.New(faults.SchemaViolation, "operation", "operation is required for tool %s", tool)
	}
	operation := registry.Normalize(opField.String())
	if operation == "" {
		return nil, faults.New(faults.SchemaViolation, "operation", "operation must not be blank")
	}

	argsField := envelope.Get("arguments")
	if !argsField.Exists() {
		return nil, faults.New(faults.SchemaViolation, "arguments", "arguments are required for tool %s", tool)
	}

	if !p.registry.HasTool(tool) {
		return nil, faults.New(faults.UnknownOperation, "tool", "unknown tool %q", tool)
	}
	op, ok := p.registry.Lookup(tool, operation)
	if !ok {
		return nil, faults.New(faults.UnknownOperation, "operation", "unknown operation %s.%s", tool, operation)
	}

	args, err := convertArguments(op, argsField.Map())
	if err != nil {
		return nil, err
	}

	return &Instruction{
		tool:      op.Tool,
		operation: op.Name,
		arguments: args,
		rawText:   raw,
	}, nil
}

func (p *Parser) validateEnvelope(obj string) error {
	result, err := p.envelope.Validate(gojsonschema.NewStringLoader(obj))
	if err != nil {
		return faults.Wrap(faults.SchemaViolation, err, "instruction is not valid JSON")
	}
	if result.Valid() {
		return nil
	}

	re := result.Errors()[0]
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			field = prop
		}
	}
	if field == gojsonschema.STRING_CONTEXT_ROOT {
		field = ""
	}
	return faults.New(faults.SchemaViolation, field, "%s", re.Description())
}

func convertArguments(op registry.Operation, raw map[string]gjson.Result) (registry.Args, error) {
	args := make(registry.Args, len(op.Params))

	for _, param := range op.Params {
		value, ok := raw[param.Name]
		if !ok || value.Type == gjson.Null {
			return nil, faults.New(faults.MissingArgument, param.Name,
				"%s requires argument %q (%s)", op.Key(), param.Name, param.Type)
		}

		converted, err := convert(param, value)
		if err != nil {
			return nil, err
		}
		args[param.Name] = converted
	}

	var extra []string
	for name := range raw {
		if _, declared := op.Param(name); !declared {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		log.Debug().Str("operation", op.Key()).Strs("ignored", extra).Msg("Ignoring undeclared arguments")
	}

	return args, nil
}

func convert(param registry.Param, value gjson.Result) (interface{}, error) {
	mismatch := func() error {
		return faults.New(faults.TypeMismatch, param.Name,
			"argument %q must be %s, got %s", param.Name, param.Type, describe(value))
	}

	switch param.Type {
	case registry.TypeNumber:
		f, ok := toNumber(value)
		if !ok {
			return nil, mismatch()
		}
		return f, nil

	case registry.TypeInteger:
		n, ok := toInteger(value)
		if !ok {
			return nil, mismatch()
		}
		return n, nil

	case registry.TypeString:
		switch value.Type {
		case gjson.String:
			return value.String(), nil
		case gjson.Number:
			s, err := cast.ToStringE(value.Float())
			if err != nil {
				return nil, mismatch()
			}
			return s, nil
		}
		return nil, mismatch()
	}

	return nil, mismatch()
}

func toNumber(value gjson.Result) (float64, bool) {
	var f float64
	switch value.Type {
	case gjson.Number:
		f = value.Float()
	case gjson.String:
		s := strings.TrimSpace(value.String())
		if !decimalLiteral.MatchString(s) {
			return 0, false
		}
		var err error
		if f, err = cast.ToFloat64E(s); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInteger accepts integer literals and numbers without a fractional part.
func toInteger(value gjson.Result) (int64, bool) {
	var literal string
	switch value.Type {
	case gjson.Number:
		literal = value.Raw
	case gjson.String:
		literal = strings.TrimSpace(value.String())
	default:
		return 0, false
	}

	if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return n, true
	}

	f, ok := toNumber(value)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func describe(value gjson.Result) string {
	switch value.Type {
	case gjson.True, gjson.False:
		return "boolean " + value.Raw
	case gjson.Number:
		return "number " + value.Raw
	case gjson.String:
		return "string " + value.Raw
	case gjson.JSON:
		if value.IsArray() {
			return "array"
		}
		return "object"
	}
	return value.Type.String()
}

// clarification picks the question of a clarify reply: an explicit field,
// else the prose around the JSON object, else FallbackQuestion.
func clarification(envelope gjson.Result, raw string, loc span) string {
	for _, path := range []string{"arguments.question", "arguments.message", "question", "message"} {
		if v := envelope.Get(path); v.Type == gjson.String {
			if q := strings.TrimSpace(v.String()); q != "" {
				return q
			}
		}
	}

	prose := raw[:loc.start] + " " + raw[loc.end:]
	prose = codeFence.ReplaceAllString(prose, "")
	prose = strings.Join(strings.Fields(prose), " ")
	if prose != "" {
		return prose
	}

	return FallbackQuestion
}
