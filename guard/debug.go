package guard

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/yforster/metacoq-guard/guarderr"
)

var (
	DebugAll = flag.Bool("debug", false, "trace all guardedness checking")
	DebugGuard = flag.Bool("debug-guard", false, "trace the recursive-call walker")
	DebugSubterm = flag.Bool("debug-subterm", false, "trace subterm inference")

	DebugWriter io.Writer = os.Stdout
)

// Tracer is the trace side-channel: an opt-in stream of diagnostic
// strings, correlated by the TraceID of the CheckFix invocation that
// produced them.
type Tracer interface {
	Guardf(traceID uuid.UUID, format string, args...interface{})
	Subtermf(traceID uuid.UUID, format string, args...interface{})
}

// NoopTracer discards every line; the default when no Tracer is supplied.
type NoopTracer struct{}

func (NoopTracer) Guardf(uuid.UUID, string,...interface{}) {}
func (NoopTracer) Subtermf(uuid.UUID, string,...interface{}) {}

// WriterTracer writes to DebugWriter, gated by the same one-flag-per-concern
// convention check/debug.go uses.
type WriterTracer struct{}

func (WriterTracer) Guardf(traceID uuid.UUID, format string, args...interface{}) {
	if *DebugAll || *DebugGuard {
		writeTrace(traceID, format, args...)
	}
}

func (WriterTracer) Subtermf(traceID uuid.UUID, format string, args...interface{}) {
	if *DebugAll || *DebugSubterm {
		writeTrace(traceID, format, args...)
	}
}

func writeTrace(traceID uuid.UUID, format string, args...interface{}) {
	line := norm.NFC.String(fmt.Sprintf(format, args...))
	if _, err := fmt.Fprintf(DebugWriter, "[%s] %s\n", traceID, line); err != nil {
		panic(err)
	}
}

// unreachable is a spew.Dump-then-panic idiom for a switch arm that
// should be impossible to reach, except the panic value is
// a *guarderr.Error so the Try boundary at the top of CheckFix reports it
// through the ordinary Programming error path instead of crashing the
// process.
func unreachable[T any](traceID uuid.UUID, where string, v interface{}) T {
	spew.Dump(v)
	panic(guarderr.Programmingf(traceID, where, "unreachable term shape"))
}
