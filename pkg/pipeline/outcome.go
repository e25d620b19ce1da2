package pipeline

import (
	"time"

	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/instruction"
	"github.com/harun/mathroute/pkg/router"
)

// Outcome statuses
const (
	StatusOK      = "ok"
	StatusClarify = "clarify"
	StatusError   = "error"
)

// Outcome is what a caller gets back for one query. Exactly one of Result
// (with a Summary), Clarification or Error describes the answer; a failed
// execution sets both Result and Error.
type Outcome struct {
	Query           string                   `json:"query"`
	Summary         string                   `json:"summary,omitempty"`
	Result          *router.ExecutionResult  `json:"result,omitempty"`
	Error           *faults.Error            `json:"error,omitempty"`
	Instruction     *instruction.Instruction `json:"instruction,omitempty"`
	Clarification   string                   `json:"clarification,omitempty"`
	SummaryDegraded bool                     `json:"summary_degraded,omitempty"`
	Attempts        int                      `json:"attempts"`
	TraceID         string                   `json:"trace_id"`
	Duration        time.Duration            `json:"duration_ns"`
}

// Status returns ok, clarify or error
func (o Outcome) Status() string {
	switch {
	case o.Error != nil:
		return StatusError
	case o.Clarification != "":
		return StatusClarify
	default:
		return StatusOK
	}
}

// Message returns the text to show the user.
func (o Outcome) Message() string {
	switch o.Status() {
	case StatusError:
		return userMessage(o.Error)
	case StatusClarify:
		return o.Clarification
	default:
		return o.Summary
	}
}

func userMessage(err *faults.Error) string {
	switch err.Kind.Layer() {
	case faults.LayerTransport:
		return "The language model is not reachable right now (" + string(err.Kind) + "). Please try again."
	case faults.LayerValidation:
		return "I could not turn that into a calculation (" + err.Error() + ")."
	default:
		return "That calculation failed: " + err.Error()
	}
}
