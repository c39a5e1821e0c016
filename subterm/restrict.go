package subterm

import (
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// RestrictSpecForMatch is restrict_spec_for_match: a match's return
// type function can itself mention the discriminant (a dependent match),
// in which case the branches' inferred spec must be narrowed to whatever
// the return type actually says the result's inductive structure is.
func RestrictSpecForMatch(e env.Env, ctx env.Context, rd reduce.Facade, spec Spec, rtf term.Term) (Spec, *guarderr.Error) {
	if spec.Kind == NotSubterm {
		return spec, nil
	}
	binders, body := PeelLambdas(rtf)
	if !hasRelBelow(body, len(binders), 0) {
		return spec, nil
	}
	innerCtx := ctx.PushMany(binders)
	red, werr := rd.WhdAll(e, innerCtx, body)
	if werr != nil {
		return Spec{}, werr
	}
	head, args := term.DecomposeApp(red)
	ind, ok := head.(*term.TInd)
	if !ok {
		return NotSubtermVal, nil
	}
	switch spec.Kind {
	case DeadCode:
		return DeadCodeSpec, nil
	case SubtermKind:
		approx, err := BuildRecargsNested(e, innerCtx, rd, nil, spec.Tree, ind.Ind, args)
		if err != nil {
			return Spec{}, err
		}
		inter, ierr := wfpaths.Inter(spec.Tree, approx)
		if ierr != nil {
			return Spec{}, guarderr.Otherf(rd.TraceID, "RestrictSpecForMatch", "%v", ierr)
		}
		return MakeSubterm(spec.Size, inter), nil
	default:
		return spec, nil
	}
}

// PeelLambdas strips a chain of leading tLambda binders (the shape a
// return-type function always has) and returns them as a context extension
// alongside the remaining body.
func PeelLambdas(t term.Term) ([]env.Assum, term.Term) {
	var out []env.Assum
	for {
		lam, ok := t.(*term.TLambda)
		if !ok {
			return out, t
		}
		out = append(out, env.Assum{Name: lam.Name, Type: lam.Type})
		t = lam.Body
	}
}

// hasRelBelow reports whether t, read under depth additional binders
// introduced since the range of interest started, mentions any of the n
// variables immediately enclosing that range (i.e. a free tRel k with
// depth <= k < depth+n). Mirrors term.Lift's own recursion shape, one
// level of generality down: an occurrence check instead of a rewrite.
func hasRelBelow(t term.Term, n, depth int) bool {
	switch t := t.(type) {
	case *term.TRel:
		return t.Index >= depth && t.Index < depth+n
	case *term.TVar, *term.TSort, *term.TConst, *term.TInd, *term.TConstruct:
		return false
	case *term.TEvar:
		for _, a := range t.Args {
			if hasRelBelow(a, n, depth) {
				return true
			}
		}
		return false
	case *term.TCast:
		return hasRelBelow(t.Term, n, depth) || hasRelBelow(t.Type, n, depth)
	case *term.TProd:
		return hasRelBelow(t.Type, n, depth) || hasRelBelow(t.Body, n, depth+1)
	case *term.TLambda:
		return hasRelBelow(t.Type, n, depth) || hasRelBelow(t.Body, n, depth+1)
	case *term.TLetIn:
		return hasRelBelow(t.Def, n, depth) || hasRelBelow(t.Type, n, depth) || hasRelBelow(t.Body, n, depth+1)
	case *term.TApp:
		if hasRelBelow(t.Fn, n, depth) {
			return true
		}
		for _, a := range t.Args {
			if hasRelBelow(a, n, depth) {
				return true
			}
		}
		return false
	case *term.TCase:
		if hasRelBelow(t.Pred, n, depth) || hasRelBelow(t.Discr, n, depth) {
			return true
		}
		for _, b := range t.Branches {
			if hasRelBelow(b.Body, n, depth+len(b.Context)) {
				return true
			}
		}
		return false
	case *term.TFix:
		return hasRelBelowMfix(t.Mfix, n, depth)
	case *term.TCoFix:
		return hasRelBelowMfix(t.Mfix, n, depth)
	case *term.TProj:
		return hasRelBelow(t.Term, n, depth)
	default:
		return false
	}
}

func hasRelBelowMfix(mfix []term.FixDef, n, depth int) bool {
	bodyDepth := depth + len(mfix)
	for _, f := range mfix {
		if hasRelBelow(f.Type, n, depth) || hasRelBelow(f.Body, n, bodyDepth) {
			return true
		}
	}
	return false
}
