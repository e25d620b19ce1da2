// Package contract holds the prompt text that constrains the completion
// service: the routing contract sent in round one, the summary contract sent
// in round two, and the repair turn used when a reply is rejected.
package contract

import (
	"fmt"
	"strings"

	"github.com/harun/mathroute/pkg/completion"
	"github.com/harun/mathroute/pkg/registry"
)

// SummaryPrompt is the system contract of the summary round.
const SummaryPrompt = "You are a helpful assistant. Answer naturally in one sentence. " +
	"Do not use JSON. Repeat the numeric result exactly as given; never round, recompute or change it."

// summaryRequest closes the summary conversation.
const summaryRequest = "Now summarize that result naturally in one sentence."

var rules = []string{
	"Respond with exactly one raw JSON object and nothing else: no prose, no explanation, no markdown code fences.",
	`The object has the keys "tool", "operation" and "arguments". "arguments" is an object keyed by the parameter names listed below.`,
	`"tool" must be one of the tools listed below or "clarify". "operation" must be one of that tool's operations.`,
	"Never invent, assume or default an argument the user did not state. If a required value is missing or ambiguous, use clarify.",
	`Use {"tool": "clarify", "arguments": {"question": "<what you need>"}} for questions that are not about math or when inputs are missing.`,
	"Copy numbers exactly as the user wrote them. Never compute the answer yourself.",
	"Prefer an algorithm operation over a calculator expression when one fits the request.",
	`Calculator expressions may only use numbers, + - * / % ** ( ) and the functions and constants listed for calculator.evaluate.`,
	"Unit names are lowercase abbreviations such as km, mi, kg, lb, c, f.",
}

type example struct {
	query     string
	tool      string
	operation string
	reply     string
}

var examples = []example{
	{"What is 17 times 3 plus 2?", registry.ToolCalculator, "evaluate",
		`{"tool": "calculator", "operation": "evaluate", "arguments": {"expression": "17*3+2"}}`},
	{"What is the square root of 25?", registry.ToolCalculator, "evaluate",
		`{"tool": "calculator", "operation": "evaluate", "arguments": {"expression": "sqrt(25)"}}`},
	{"Convert 10 km to miles", registry.ToolConverter, "distance",
		`{"tool": "converter", "operation": "distance", "arguments": {"value": 10, "from": "km", "to": "mi"}}`},
	{"I have 32 degrees fahrenheit, what is that in celsius?", registry.ToolConverter, "temperature",
		`{"tool": "converter", "operation": "temperature", "arguments": {"value": 32, "from": "f", "to": "c"}}`},
	{"What is the GCD of 144 and 49?", registry.ToolAlgorithm, "gcd",
		`{"tool": "algorithm", "operation": "gcd", "arguments": {"a": 144, "b": 49}}`},
	{"Is 17 prime?", registry.ToolAlgorithm, "is_prime",
		`{"tool": "algorithm", "operation": "is_prime", "arguments": {"n": 17}}`},
	{"Convert km to miles", registry.ToolClarify, "",
		`{"tool": "clarify", "arguments": {"question": "How many kilometers should I convert?"}}`},
	{"What is the capital of France?", registry.ToolClarify, "",
		`{"tool": "clarify", "arguments": {"question": "I can only help with arithmetic, unit conversions and the listed algorithms."}}`},
}

// SystemPrompt renders the routing contract for the operations in reg.
func SystemPrompt(reg *registry.Registry) string {
	var b strings.Builder

	b.WriteString("You route math requests to deterministic tools. You never calculate answers yourself.\n\n")

	b.WriteString("Rules:\n")
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}

	b.WriteString("\nOperations:\n")
	for _, tool := range reg.Tools() {
		fmt.Fprintf(&b, "\ntool %q\n", tool)
		for _, op := range reg.OperationsFor(tool) {
			params := make([]string, 0, len(op.Params))
			for _, p := range op.Params {
				params = append(params, fmt.Sprintf("%s: %s", p.Name, p.Type))
			}
			fmt.Fprintf(&b, "  - %s(%s): %s\n", op.Name, strings.Join(params, ", "), op.Description)
		}
	}

	b.WriteString("\nExamples:\n")
	for _, ex := range examples {
		if ex.tool != registry.ToolClarify {
			// Skip examples for operations a policy disabled
			if _, ok := reg.Lookup(ex.tool, ex.operation); !ok {
				continue
			}
		}
		fmt.Fprintf(&b, "\nUser: %s\nReply: %s\n", ex.query, ex.reply)
	}

	return b.String()
}

// SummaryMessages builds the summary round conversation for a computed
// result.
func SummaryMessages(query, result string) []completion.Message {
	return []completion.Message{
		completion.UserMessage(query),
		completion.AssistantMessage("Tool result: " + result),
		completion.UserMessage(summaryRequest),
	}
}

// RepairMessages returns the turns appended to the routing conversation
// after the reply was rejected with err.
func RepairMessages(reply string, err error) []completion.Message {
	return []completion.Message{
		completion.AssistantMessage(reply),
		completion.UserMessage(RepairMessage(err)),
	}
}

// RepairMessage explains a rejected reply.
func RepairMessage(err error) string {
	return fmt.Sprintf("Your reply was rejected: %v. Reply again with exactly one JSON object that follows the rules. "+
		"If the user did not give every required value, use clarify.", err)
}
