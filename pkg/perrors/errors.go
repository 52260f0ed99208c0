// Package perrors defines the error-kind taxonomy used throughout this
// module: every public operation returns one of these kinds instead of
// throwing.
package perrors

import (
	"errors"
	"fmt"
)

// Kind classifies a PowerflowError by its disposition.
type Kind int

const (
	// ConfigurationError aborts initialization of the offending object.
	ConfigurationError Kind = iota
	// NumericalError is a warning: the affected quantity is sanitized and the solve continues.
	NumericalError
	// ConvergenceFailure is retryable at the caller's discretion.
	ConvergenceFailure
	// TopologyError is fatal.
	TopologyError
	// HardwareViolation is a warning only; the solver proceeds.
	HardwareViolation
)

func (k Kind) String() string {
	switch k {
	case ConfigurationError:
		return "ConfigurationError"
	case NumericalError:
		return "NumericalError"
	case ConvergenceFailure:
		return "ConvergenceFailure"
	case TopologyError:
		return "TopologyError"
	case HardwareViolation:
		return "HardwareViolation"
	default:
		return "UnknownError"
	}
}

// PowerflowError is a sum-type error carrying a distinguishing Kind plus
// enough context to report or remediate the condition.
type PowerflowError struct {
	Kind     Kind
	Object   string // name of the offending node/branch/config
	Quantity string // the affected quantity, if applicable (e.g. "shunt capacitance")
	Remedy   string // remediation applied: "zeroed", "defaulted", "rounded"
	Err      error
}

func (e *PowerflowError) Error() string {
	msg := fmt.Sprintf("%s: object=%q", e.Kind, e.Object)
	if e.Quantity != "" {
		msg += fmt.Sprintf(" quantity=%q", e.Quantity)
	}
	if e.Remedy != "" {
		msg += fmt.Sprintf(" remedy=%q", e.Remedy)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *PowerflowError) Unwrap() error { return e.Err }

// IsKind reports whether err is a *PowerflowError of the given kind.
func IsKind(err error, k Kind) bool {
	var pe *PowerflowError
	if errors.As(err, &pe) {
		return pe.Kind == k
	}
	return false
}

func newErr(kind Kind, object string, opts ...func(*PowerflowError)) *PowerflowError {
	e := &PowerflowError{Kind: kind, Object: object}
	for _, o := range opts {
		o(e)
	}
	return e
}

func WithQuantity(q string) func(*PowerflowError) { return func(e *PowerflowError) { e.Quantity = q } }
func WithRemedy(r string) func(*PowerflowError)    { return func(e *PowerflowError) { e.Remedy = r } }
func WithErr(err error) func(*PowerflowError)      { return func(e *PowerflowError) { e.Err = err } }

func NewConfigurationError(object string, opts ...func(*PowerflowError)) *PowerflowError {
	return newErr(ConfigurationError, object, opts...)
}

func NewNumericalError(object string, opts ...func(*PowerflowError)) *PowerflowError {
	return newErr(NumericalError, object, opts...)
}

func NewConvergenceFailure(object string, opts ...func(*PowerflowError)) *PowerflowError {
	return newErr(ConvergenceFailure, object, opts...)
}

func NewTopologyError(object string, opts ...func(*PowerflowError)) *PowerflowError {
	return newErr(TopologyError, object, opts...)
}

func NewHardwareViolation(object string, opts ...func(*PowerflowError)) *PowerflowError {
	return newErr(HardwareViolation, object, opts...)
}

// ErrNotImplemented is returned by operations intentionally left
// unsupported rather than given invented semantics (e.g. Gauss-Seidel
// regulator taps).
var ErrNotImplemented = errors.New("not implemented")

// ErrSingularMatrix is returned by LU decomposition/solve on a zero pivot.
var ErrSingularMatrix = errors.New("singular matrix: zero pivot encountered")
