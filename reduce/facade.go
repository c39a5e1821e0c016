// Package reduce is the reduction facade: it wraps an external,
// configurable weak-head reducer (the Reducer interface — treated as an
// opaque collaborator here) with the three concrete reduction strengths
// the checker needs, plus the "try harder" product/let decomposition used
// by the environment helpers.
package reduce

import (
	"github.com/google/uuid"

	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/term"
)

// Flags selects which reduction rules a Reducer step may fire.
type Flags struct {
	Beta bool
	Iota bool
	Zeta bool
	Delta bool
}

var (
	// FlagsAll is whd_all: full weak-head (β, ι, ζ, δ).
	FlagsAll = Flags{Beta: true, Iota: true, Zeta: true, Delta: true}
	// FlagsBetaIotaZeta is whd_βιζ: no δ, so opaque/transparent constants
	// are left folded.
	FlagsBetaIotaZeta = Flags{Beta: true, Iota: true, Zeta: true}
	// FlagsAllNoLet is whd_all_nolet: everything except ζ, so let-bindings
	// are preserved in the result.
	FlagsAllNoLet = Flags{Beta: true, Iota: true, Delta: true}
)

// DefaultFuel bounds how many rewrite steps a single Whd call may take
// before giving up with a Timeout error.
const DefaultFuel = 100000

// Reducer is the external collaborator: one weak-head rewrite step, or
// false if t is already in normal form under flags.
type Reducer interface {
	Step(e env.Env, ctx env.Context, flags Flags, t term.Term) (term.Term, bool)
}

// Facade bundles a Reducer with the fuel and trace id used to report
// Timeout errors (error payload).
type Facade struct {
	R Reducer
	Fuel int
	TraceID uuid.UUID
}

func NewFacade(r Reducer, traceID uuid.UUID) Facade {
	return Facade{R: r, Fuel: DefaultFuel, TraceID: traceID}
}

func (f Facade) whd(where string, e env.Env, ctx env.Context, flags Flags, t term.Term) (term.Term, *guarderr.Error) {
	fuel := f.Fuel
	if fuel <= 0 {
		fuel = DefaultFuel
	}
	for i := 0; i < fuel; i++ {
		next, progressed := f.R.Step(e, ctx, flags, t)
		if !progressed {
			return t, nil
		}
		t = next
	}
	return nil, guarderr.Timeoutf(f.TraceID, where, "reduction did not reach a normal form within %d steps", fuel)
}

// WhdAll is whd_all: full weak-head (β, ι, ζ, δ).
func (f Facade) WhdAll(e env.Env, ctx env.Context, t term.Term) (term.Term, *guarderr.Error) {
	return f.whd("WhdAll", e, ctx, FlagsAll, t)
}

// WhdBetaIotaZeta is whd_βιζ: β, ι, ζ only (no δ).
func (f Facade) WhdBetaIotaZeta(e env.Env, ctx env.Context, t term.Term) (term.Term, *guarderr.Error) {
	return f.whd("WhdBetaIotaZeta", e, ctx, FlagsBetaIotaZeta, t)
}

// WhdAllNoLet is whd_all without ζ: lets are preserved.
func (f Facade) WhdAllNoLet(e env.Env, ctx env.Context, t term.Term) (term.Term, *guarderr.Error) {
	return f.whd("WhdAllNoLet", e, ctx, FlagsAllNoLet, t)
}

// DecomposeProdAssum is the "try harder" variant of: repeatedly peel
// TProd/TLetIn off t (each one pushed onto ctx), weak-head reducing the
// remainder with WhdAllNoLet between peels; if that ever leaves a
// non-product/let head, it retries once with the stronger WhdAll, and
// keeps going as long as that actually changed something.
func (f Facade) DecomposeProdAssum(e env.Env, ctx env.Context, t term.Term) (env.Context, term.Term, *guarderr.Error) {
	for {
		red, err := f.WhdAllNoLet(e, ctx, t)
		if err != nil {
			return ctx, nil, err
		}
		switch r := red.(type) {
		case *term.TProd:
			ctx = ctx.Push(env.Assum{Name: r.Name, Type: r.Type})
			t = r.Body
			continue
		case *term.TLetIn:
			ctx = ctx.Push(env.Assum{Name: r.Name, Type: r.Type})
			t = r.Body
			continue
		}
		harder, err := f.WhdAll(e, ctx, red)
		if err != nil {
			return ctx, nil, err
		}
		if sameHead(harder, red) {
			return ctx, red, nil
		}
		t = harder
	}
}

func sameHead(a, b term.Term) bool {
	return a == b
}
