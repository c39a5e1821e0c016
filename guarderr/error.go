// Package guarderr is the structured error type the guardedness checker
// reports through. It plays the role an ad hoc panic(fmt.Errorf(...)) +
// common.Try boundary would, but with a typed Kind instead of bare
// strings.
package guarderr

import (
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/yforster/metacoq-guard/common"
	"golang.org/x/text/unicode/norm"
)

// Kind discriminates the six error classes this package reports. Only
// Guard is the checker's normal, expected failure mode; the rest signal a
// malformed/unsupported input or an exhausted step budget.
type Kind int

const (
	// Programming is an invariant violation: a malformed wf_paths, an
	// unreachable switch arm. Never recoverable.
	Programming Kind = iota
	// EnvKind is a failed lookup in the global environment.
	EnvKind
	// IndexKind is an out-of-range index (stack, context, branch).
	IndexKind
	// Other is the recoverable class: wrong-shape terms, reducer
	// refusals — caught by the walker's match/fix/const/proj fallbacks.
	Other
	// Guard is the user-facing verdict: a recursive call is not provably
	// on a smaller argument.
	Guard
	// Timeout is raised when the step budget or the reducer's fuel
	// is exhausted.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Programming:
		return "Programming"
	case EnvKind:
		return "Env"
	case IndexKind:
		return "Index"
	case Other:
		return "Other"
	case Guard:
		return "Guard"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error carries a kind, the operation/location where it was raised, and a
// free-form detail string.
type Error struct {
	Kind Kind
	Where string
	Detail string
	TraceID uuid.UUID

	// Stack is populated only on Programming errors, mirroring
	// common.Try's stack capture, to help diagnose an invariant break.
	Stack string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%v] %s: %s (trace %s)", e.Kind, e.Where, e.Detail, e.TraceID)
}

// New builds an Error, normalizing Detail's Unicode form the same way a
// web pipeline runs untrusted text through golang.org/x/text before
// storing or comparing it — kernel/constant names in this calculus can
// carry non-ASCII identifiers, and normalizing keeps Detail diffable
// across environments.
func New(kind Kind, where, detail string, traceID uuid.UUID) *Error {
	return &Error{Kind: kind, Where: where, Detail: norm.NFC.String(detail), TraceID: traceID}
}

// Guardf builds a Guard error (the checker's bread-and-butter failure).
func Guardf(traceID uuid.UUID, where, format string, args...interface{}) *Error {
	return New(Guard, where, fmt.Sprintf(format, args...), traceID)
}

// Programmingf builds a Programming error and captures a stack trace,
// mirroring common.Try's recover path.
func Programmingf(traceID uuid.UUID, where, format string, args...interface{}) *Error {
	e := New(Programming, where, fmt.Sprintf(format, args...), traceID)
	e.Stack = string(debug.Stack())
	return e
}

func Otherf(traceID uuid.UUID, where, format string, args...interface{}) *Error {
	return New(Other, where, fmt.Sprintf(format, args...), traceID)
}

func Timeoutf(traceID uuid.UUID, where, format string, args...interface{}) *Error {
	return New(Timeout, where, fmt.Sprintf(format, args...), traceID)
}

// Try runs f under common.Try's recover boundary, then refines the bare
// `error` that comes back into a typed *Error: a panic carrying an *Error
// already (case error matches, since *Error implements it) passes through
// with its Kind preserved; any other panic is wrapped as Programming, with
// the stack common.Try captured at the panic site.
func Try(traceID uuid.UUID, where string, f func()) (err *Error) {
	_, rerr, stack := common.Try(func() any {
		f()
		return nil
	})
	if rerr == nil {
		return nil
	}
	if e, ok := rerr.(*Error); ok {
		return e
	}
	return &Error{Kind: Programming, Where: where, Detail: norm.NFC.String(rerr.Error()), TraceID: traceID, Stack: stack}
}
