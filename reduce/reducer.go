package reduce

import (
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/term"
)

// DefaultReducer is a concrete Reducer: a small-step weak-head evaluator
// over term.Term, used so the rest of this module can be exercised
// end-to-end without a real kernel's configurable weak-head reducer
// attached — this is a faithful-enough stand-in for it. Projection
// reduction is deliberately not implemented, and the walker's tProj retry
// depends on that being a hard no.
type DefaultReducer struct{}

func NewDefaultReducer() *DefaultReducer { return &DefaultReducer{} }

func (r *DefaultReducer) Step(e env.Env, ctx env.Context, flags Flags, t term.Term) (term.Term, bool) {
	switch t := t.(type) {
	case *term.TApp:
		return r.stepApp(e, ctx, flags, t)
	case *term.TLetIn:
		if !flags.Zeta {
			return nil, false
		}
		return term.Subst1(t.Body, t.Def), true
	case *term.TConst:
		if !flags.Delta {
			return nil, false
		}
		res := e.Lookup(t.Name)
		if res.Kind != env.LookupConstantKind {
			return nil, false
		}
		return res.Constant.Body, true
	case *term.TCase:
		return r.stepCase(e, ctx, flags, t)
	case *term.TProj:
		// Projection reduction is out of scope; always stuck.
		return nil, false
	default:
		return nil, false
	}
}

func (r *DefaultReducer) stepApp(e env.Env, ctx env.Context, flags Flags, t *term.TApp) (term.Term, bool) {
	if fn, progressed := r.Step(e, ctx, flags, t.Fn); progressed {
		return term.AppTerm(fn, t.Args), true
	}
	switch fn := t.Fn.(type) {
	case *term.TLambda:
		if !flags.Beta || len(t.Args) == 0 {
			return nil, false
		}
		reduced := term.Subst1(fn.Body, t.Args[0])
		return term.AppTerm(reduced, t.Args[1:]), true
	case *term.TFix:
		if !flags.Iota {
			return nil, false
		}
		fx := fn.Mfix[fn.Index]
		if fx.Rarg >= len(t.Args) {
			return nil, false
		}
		if _, _, ok := r.whdConstructorApp(e, ctx, flags, t.Args[fx.Rarg]); !ok {
			return nil, false
		}
		body := term.InstantiateFixBody(fn.Mfix, fn.Index, func(j int) term.Term {
			return &term.TFix{Mfix: fn.Mfix, Index: j}
		})
		return term.AppTerm(body, t.Args), true
	default:
		return nil, false
	}
}

func (r *DefaultReducer) stepCase(e env.Env, ctx env.Context, flags Flags, t *term.TCase) (term.Term, bool) {
	if c, args, ok := r.whdConstructorApp(e, ctx, flags, t.Discr); ok {
		if !flags.Iota {
			return nil, false
		}
		ctorIdx := c.Ctor.Ctor
		if ctorIdx < 0 || ctorIdx >= len(t.Branches) {
			return nil, false
		}
		branch := t.Branches[ctorIdx]
		realArgs := args
		if len(realArgs) > branch.Arity() {
			realArgs = realArgs[len(realArgs)-branch.Arity():]
		}
		subst := make([]term.Term, len(realArgs))
		for i, a := range realArgs {
			subst[len(realArgs)-1-i] = a
		}
		return term.SubstN(branch.Body, 0, subst), true
	}
	if discr, progressed := r.Step(e, ctx, flags, t.Discr); progressed {
		return &term.TCase{Info: t.Info, Pred: t.Pred, Discr: discr, Branches: t.Branches}, true
	}
	return nil, false
}

// whdConstructorApp drives t to weak-head normal form (bounded) looking
// specifically for a constructor application, unfolding a scrutinized
// cofix along the way (the "coiota" rule) since a match may need to look
// through one to find the constructor underneath.
func (r *DefaultReducer) whdConstructorApp(e env.Env, ctx env.Context, flags Flags, t term.Term) (*term.TConstruct, []term.Term, bool) {
	for i := 0; i < 10000; i++ {
		head, args := term.DecomposeApp(t)
		if c, ok := head.(*term.TConstruct); ok {
			return c, args, true
		}
		if cf, ok := head.(*term.TCoFix); ok {
			body := term.InstantiateFixBody(cf.Mfix, cf.Index, func(j int) term.Term {
				return &term.TCoFix{Mfix: cf.Mfix, Index: j}
			})
			t = term.AppTerm(body, args)
			continue
		}
		next, progressed := r.Step(e, ctx, flags, t)
		if !progressed {
			return nil, nil, false
		}
		t = next
	}
	return nil, nil, false
}
