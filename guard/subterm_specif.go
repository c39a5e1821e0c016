package guard

import (
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/subterm"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// SubtermSpecif is subterm_specif: infers t's subterm spec under
// the local spec environment G and the deferred-application stack.
//
// CaseBranch already separates a match branch's binders from its body,
// unlike a raw nested-lambda term — so where the source pushes a
// branch's per-binder specs onto the stack and lets the generic tLambda
// rule fold them into G one at a time, this recurses straight into the
// branch body with G already extended; the net result on G is identical,
// only the plumbing differs.
//
// budget is ticked on every entry: SubtermSpecif and CheckRecCall are
// mutually recursive through the term AST (a reduced tCase or tConst can
// re-enter either), so neither is structurally recursive on its own
// and both share the same step budget.
func SubtermSpecif(e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, t term.Term) (subterm.Spec, *guarderr.Error) {
	if berr := budget.Tick(rd.TraceID, "SubtermSpecif"); berr != nil {
		return subterm.Spec{}, berr
	}
	red, werr := rd.WhdAll(e, ctx, t)
	if werr != nil {
		return subterm.Spec{}, werr
	}
	head, args := term.DecomposeApp(red)
	switch h := head.(type) {
	case *term.TRel:
		return g.LookupSubterm(h.Index), nil
	case *term.TCase:
		return subtermSpecifCase(e, g, ctx, rd, budget, stack, args, h)
	case *term.TFix:
		return subtermSpecifFix(e, g, ctx, rd, budget, stack, h)
	case *term.TLambda:
		return subtermSpecifLambda(e, g, ctx, rd, budget, stack, h)
	case *term.TProj:
		return subtermSpecifProj(e, g, ctx, rd, budget, stack, h)
	case *term.TEvar:
		return subterm.Spec{}, guarderr.Otherf(rd.TraceID, "SubtermSpecif", "existential variables are not supported")
	default:
		return subterm.NotSubtermVal, nil
	}
}

func subtermSpecifCase(e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, args []term.Term, c *term.TCase) (subterm.Spec, *guarderr.Error) {
	stack2 := stack.Push(g, ctx, args)
	dSpec, err := SubtermSpecif(e, g, ctx, rd, budget, nil, c.Discr)
	if err != nil {
		return subterm.Spec{}, err
	}
	branchSpecs := make([]subterm.Spec, len(c.Branches))
	for i, branch := range c.Branches {
		binderSpecs := BranchBinderSpecs(dSpec, c.Info.Ind, i, branch.Arity())
		bg := g.PushMany(binderSpecs)
		bctx := ctx
		for _, nm := range branch.Context {
			bctx = bctx.Push(env.Assum{Name: nm, Type: &term.TSort{Sort: term.Sort{Tag: "Type"}}})
		}
		bspec, err := SubtermSpecif(e, bg, bctx, rd, budget, stack2, branch.Body)
		if err != nil {
			return subterm.Spec{}, err
		}
		branchSpecs[i] = bspec
	}
	glb, gerr := subterm.Glb(branchSpecs...)
	if gerr != nil {
		return subterm.Spec{}, guarderr.Otherf(rd.TraceID, "SubtermSpecif", "%v", gerr)
	}
	return subterm.RestrictSpecForMatch(e, ctx, rd, glb, c.Pred)
}

func subtermSpecifFix(e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, fx *term.TFix) (subterm.Spec, *guarderr.Error) {
	fd := fx.Mfix[fx.Index]
	_, codomain, derr := rd.DecomposeProdAssum(e, ctx, fd.Type)
	if derr != nil {
		return subterm.Spec{}, derr
	}
	red, rerr := rd.WhdAll(e, ctx, codomain)
	if rerr != nil {
		return subterm.Spec{}, rerr
	}
	head, _ := term.DecomposeApp(red)
	ind, ok := head.(*term.TInd)
	if !ok {
		return subterm.NotSubtermVal, nil
	}
	oneBody, _, ok := env.LookupInductiveBody(e, ind.Ind)
	if !ok {
		return subterm.Spec{}, guarderr.Otherf(rd.TraceID, "SubtermSpecif", "unknown inductive %v in fix codomain", ind.Ind)
	}

	n := len(fx.Mfix)
	fixSpecs := make([]subterm.Spec, n)
	for i := range fixSpecs {
		if i == fx.Index {
			fixSpecs[i] = subterm.MakeSubterm(subterm.Strict, oneBody.RecArgsTree)
		} else {
			fixSpecs[i] = subterm.NotSubtermVal
		}
	}
	bg := g.PushMany(fixSpecs)
	bctx := ctx

	body := fd.Body
	rarg := fd.Rarg
	for i := 0; i <= rarg; i++ {
		lam, ok := body.(*term.TLambda)
		if !ok {
			return unreachable[subterm.Spec](rd.TraceID, "SubtermSpecif", fx), nil
		}
		bctx = bctx.Push(env.Assum{Name: lam.Name, Type: lam.Type})
		if i == rarg {
			spec := subterm.NotSubtermVal
			if elem, ok := stack.At(rarg); ok {
				s, serr := elemSpec(e, rd, budget, elem)
				if serr != nil {
					return subterm.Spec{}, serr
				}
				spec = s
			}
			bg = bg.Push(spec)
		} else {
			bg = bg.Push(subterm.NotSubtermVal)
		}
		body = lam.Body
	}
	return SubtermSpecif(e, bg, bctx, rd, budget, nil, body)
}

func subtermSpecifLambda(e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, lam *term.TLambda) (subterm.Spec, *guarderr.Error) {
	spec := subterm.NotSubtermVal
	rest := stack
	if elem, tail, ok := stack.Pop(); ok {
		s, err := elemSpec(e, rd, budget, elem)
		if err != nil {
			return subterm.Spec{}, err
		}
		spec = s
		rest = tail
	}
	bg := g.Push(spec)
	bctx := ctx.Push(env.Assum{Name: lam.Name, Type: lam.Type})
	return SubtermSpecif(e, bg, bctx, rd, budget, rest, lam.Body)
}

func subtermSpecifProj(e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, p *term.TProj) (subterm.Spec, *guarderr.Error) {
	cspec, err := SubtermSpecif(e, g, ctx, rd, budget, stack, p.Term)
	if err != nil {
		return subterm.Spec{}, err
	}
	if cspec.Kind != subterm.SubtermKind {
		return cspec, nil
	}
	ctors := wfpaths.Children(cspec.Tree)
	if len(ctors) != 1 {
		return unreachable[subterm.Spec](rd.TraceID, "SubtermSpecif", cspec.Tree), nil
	}
	argTrees := wfpaths.GrandchildrenAt(cspec.Tree, 0)
	if p.Proj.Arg < 0 || p.Proj.Arg >= len(argTrees) {
		return subterm.Spec{}, guarderr.Otherf(rd.TraceID, "SubtermSpecif", "projection argument %d out of range (%d fields)", p.Proj.Arg, len(argTrees))
	}
	return subterm.SpecOfTree(argTrees[p.Proj.Arg]), nil
}

// BranchBinderSpecs is: the per-binder specs a match on ind's
// ctorIdx-th constructor produces, derived from the discriminant's own
// spec.
func BranchBinderSpecs(dSpec subterm.Spec, ind names.Inductive, ctorIdx, arity int) []subterm.Spec {
	switch dSpec.Kind {
	case subterm.DeadCode:
		return repeatSpec(subterm.DeadCodeSpec, arity)
	case subterm.SubtermKind:
		label := wfpaths.Label(dSpec.Tree)
		if label.Kind != wfpaths.Mrec && label.Kind != wfpaths.Imbr {
			return repeatSpec(subterm.NotSubtermVal, arity)
		}
		if label.Ind == nil || !label.Ind.SameInductive(ind) {
			return repeatSpec(subterm.NotSubtermVal, arity)
		}
		ctors := wfpaths.Children(dSpec.Tree)
		if ctorIdx < 0 || ctorIdx >= len(ctors) {
			return repeatSpec(subterm.NotSubtermVal, arity)
		}
		argTrees := wfpaths.GrandchildrenAt(dSpec.Tree, ctorIdx)
		out := make([]subterm.Spec, arity)
		for i := range out {
			if i < len(argTrees) {
				out[i] = subterm.SpecOfTree(argTrees[i])
			} else {
				out[i] = subterm.NotSubtermVal
			}
		}
		return out
	default:
		return repeatSpec(subterm.NotSubtermVal, arity)
	}
}

func repeatSpec(s subterm.Spec, n int) []subterm.Spec {
	out := make([]subterm.Spec, n)
	for i := range out {
		out[i] = s
	}
	return out
}
