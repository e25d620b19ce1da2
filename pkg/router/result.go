package router

import (
	"strconv"
	"time"

	"github.com/harun/mathroute/pkg/faults"
)

// Status of an execution
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ExecutionResult is the outcome of one routed call. It is created once per
// request and never modified afterwards.
type ExecutionResult struct {
	Value       interface{}   `json:"value,omitempty"`
	Tool        string        `json:"tool"`
	Operation   string        `json:"operation"`
	Status      Status        `json:"status"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	ErrorKind   faults.Kind   `json:"error_kind,omitempty"`
	Duration    time.Duration `json:"duration_ns"`

	err *faults.Error
}

// OK reports whether the engine produced a value
func (r ExecutionResult) OK() bool {
	return r.Status == StatusOK
}

// Err returns the typed failure, or nil on success.
func (r ExecutionResult) Err() *faults.Error {
	return r.err
}

// Text renders the value for display and for the summary round.
func (r ExecutionResult) Text() string {
	return FormatValue(r.Value)
}

// Fallback is the deterministic summary used when the summary round fails.
func (r ExecutionResult) Fallback() string {
	return r.Tool + "." + r.Operation + " = " + r.Text()
}

// FormatValue renders an engine value without losing precision.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	case nil:
		return ""
	}
	return "<unsupported value>"
}

func failed(tool, operation string, err *faults.Error) ExecutionResult {
	return ExecutionResult{
		Tool:        tool,
		Operation:   operation,
		Status:      StatusError,
		ErrorDetail: err.Error(),
		ErrorKind:   err.Kind,
		err:         err,
	}
}
