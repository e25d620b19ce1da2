// Package faults defines the typed error taxonomy shared by every stage of the
// query pipeline.
//
// Invariants:
// - Every failure surfaced to a caller carries exactly one Kind.
// - Parsing and validation kinds also match ErrRoutingFailed.
//
// Usage:
//
//	err := faults.New(faults.MissingArgument, "value", "argument is required")
//	if errors.Is(err, faults.ErrMissingArgument) { ... }
//	if errors.Is(err, faults.ErrRoutingFailed) { ... }
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class.
type Kind string

// Transport layer
const (
	GatewayUnavailable Kind = "GatewayUnavailable"
	GatewayTimeout     Kind = "GatewayTimeout"
)

// Parsing and validation layer
const (
	NoJSONFound      Kind = "NoJsonFound"
	SchemaViolation  Kind = "SchemaViolation"
	UnknownOperation Kind = "UnknownOperation"
	MissingArgument  Kind = "MissingArgument"
	TypeMismatch     Kind = "TypeMismatch"
)

// Execution layer
const (
	UnsafeExpression      Kind = "UnsafeExpression"
	UnsupportedConversion Kind = "UnsupportedConversion"
	InvalidDomain         Kind = "InvalidDomain"
)

// RoutingFailed is the umbrella kind for every parsing/validation failure.
const RoutingFailed Kind = "RoutingFailed"

// Layer groups kinds by pipeline stage.
type Layer string

const (
	LayerTransport  Layer = "transport"
	LayerValidation Layer = "validation"
	LayerExecution  Layer = "execution"
)

// Layer returns the pipeline stage a kind belongs to.
func (k Kind) Layer() Layer {
	switch k {
	case GatewayUnavailable, GatewayTimeout:
		return LayerTransport
	case NoJSONFound, SchemaViolation, UnknownOperation, MissingArgument, TypeMismatch, RoutingFailed:
		return LayerValidation
	default:
		return LayerExecution
	}
}

// Error is a typed failure. Field names the offending argument or key when
// one exists.
type Error struct {
	Kind   Kind   `json:"kind"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
	Err    error  `json:"-"`
}

// New creates an Error with a formatted detail message.
func New(kind Kind, field string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:   kind,
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	e := New(kind, "", format, args...)
	e.Err = err
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind. ErrRoutingFailed matches any validation
// layer error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == RoutingFailed {
		return e.Kind.Layer() == LayerValidation
	}
	return t.Kind == e.Kind
}

var (
	// ErrGatewayUnavailable is returned when the completion service cannot be reached
	ErrGatewayUnavailable = &Error{Kind: GatewayUnavailable}

	// ErrGatewayTimeout is returned when the completion service does not answer in time
	ErrGatewayTimeout = &Error{Kind: GatewayTimeout}

	// ErrNoJSONFound is returned when model text holds no well-formed JSON object
	ErrNoJSONFound = &Error{Kind: NoJSONFound}

	// ErrSchemaViolation is returned when the instruction envelope is malformed
	ErrSchemaViolation = &Error{Kind: SchemaViolation}

	// ErrUnknownOperation is returned when (tool, operation) is not registered
	ErrUnknownOperation = &Error{Kind: UnknownOperation}

	// ErrMissingArgument is returned when a required argument is absent
	ErrMissingArgument = &Error{Kind: MissingArgument}

	// ErrTypeMismatch is returned when an argument cannot be converted to its declared type
	ErrTypeMismatch = &Error{Kind: TypeMismatch}

	// ErrUnsafeExpression is returned when an expression uses a disallowed construct
	ErrUnsafeExpression = &Error{Kind: UnsafeExpression}

	// ErrUnsupportedConversion is returned for an unknown unit pair
	ErrUnsupportedConversion = &Error{Kind: UnsupportedConversion}

	// ErrInvalidDomain is returned when an input is outside a routine's domain
	ErrInvalidDomain = &Error{Kind: InvalidDomain}

	// ErrRoutingFailed matches every parsing and validation failure
	ErrRoutingFailed = &Error{Kind: RoutingFailed}
)

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the Kind carried by err, or "" when err is not a fault.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return ""
}
