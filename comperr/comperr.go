// Package comperr defines the typed errors produced by each stage of the
// compilation pipeline. Every stage fails fast with exactly one of these
// kinds; no stage returns partial output alongside an error.
package comperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Parse Kind = iota
	Type
	Semantic
	Optimization
	Backend
	Verification
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse error"
	case Type:
		return "type error"
	case Semantic:
		return "semantic error"
	case Optimization:
		return "optimization error"
	case Backend:
		return "backend error"
	case Verification:
		return "verification error"
	}
	return "unknown error"
}

// Error carries the stage that failed and the violated invariant.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause; the cause survives errors.Is / errors.As.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// IsKind reports whether err is (or wraps) a stage error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Verification failures are further split: a structurally malformed system is
// bad, a witness-inconsistent one is worse (the circuit does not compute the
// source program). Both are detected independently of the backend.
var (
	ErrStructural          = errors.New("structurally malformed")
	ErrWitnessInconsistent = errors.New("witness-inconsistent")
)
