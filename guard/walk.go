package guard

import (
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/subterm"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// CheckRecCall is check_rec_call: walks t, failing with a Guard
// error the moment a recursive call to one of fg's tracked fixes is found
// applied to something not provably a subterm of its own decreasing
// argument.
//
// stack is the deferred-application stack accumulated on the way down —
// same shape and purpose as in SubtermSpecif, and shares its step budget
// since the two are mutually recursive through a reduced tCase/tFix/
// tConst.
func CheckRecCall(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, t term.Term) *guarderr.Error {
	if berr := budget.Tick(rd.TraceID, "CheckRecCall"); berr != nil {
		return berr
	}
	if !occursTrackedFix(fg, g, t, 0) {
		return nil
	}

	red, werr := rd.WhdBetaIotaZeta(e, ctx, t)
	if werr != nil {
		return werr
	}
	head, args := term.DecomposeApp(red)

	switch h := head.(type) {
	case *term.TRel:
		return checkRecCallRel(fg, e, g, ctx, rd, budget, stack, h, args)
	case *term.TCase:
		return checkRecCallCase(fg, e, g, ctx, rd, budget, stack, args, h, red)
	case *term.TFix:
		return checkRecCallFix(fg, e, g, ctx, rd, budget, stack, args, h, red)
	case *term.TConst:
		return checkRecCallConst(fg, e, g, ctx, rd, budget, args, h, red)
	case *term.TLambda:
		return checkRecCallLambda(fg, e, g, ctx, rd, budget, stack, h)
	case *term.TProd:
		if len(args) != 0 {
			return guarderr.Otherf(rd.TraceID, "CheckRecCall", "tProd is not applicable, found %d applicants", len(args))
		}
		if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, h.Type); err != nil {
			return err
		}
		bg := g.Push(subterm.NotSubtermVal)
		bctx := ctx.Push(env.Assum{Name: h.Name, Type: h.Type})
		return CheckRecCall(fg, e, bg, bctx, rd, budget, nil, h.Body)
	case *term.TLetIn, *term.TApp, *term.TCast:
		return guarderr.Otherf(rd.TraceID, "CheckRecCall", "%v cannot occur after beta/iota/zeta reduction", red)
	case *term.TCoFix:
		return checkRecCallCoFix(fg, e, g, ctx, rd, budget, args, h)
	case *term.TInd, *term.TConstruct:
		return checkApplicants(fg, e, g, ctx, rd, budget, args)
	case *term.TProj:
		if err := checkApplicants(fg, e, g, ctx, rd, budget, args); err != nil {
			return err
		}
		if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, h.Term); err != nil {
			// Reducing the projected term to a constructor and retrying
			// would require projection reduction, which this reducer does
			// not implement (Open Question i) — the retry is a no-op,
			// so just propagate.
			return err
		}
		return nil
	case *term.TSort:
		if len(args) != 0 {
			return guarderr.Otherf(rd.TraceID, "CheckRecCall", "tSort is not applicable, found %d applicants", len(args))
		}
		return nil
	case *term.TVar:
		return guarderr.Otherf(rd.TraceID, "CheckRecCall", "free variables are not supported")
	case *term.TEvar:
		return guarderr.Otherf(rd.TraceID, "CheckRecCall", "existential variables are not supported")
	default:
		return unreachable[*guarderr.Error](rd.TraceID, "CheckRecCall", red)
	}
}

func checkApplicants(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, args []term.Term) *guarderr.Error {
	for _, a := range args {
		if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, a); err != nil {
			return err
		}
	}
	return nil
}

func checkRecCallRel(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, rel *term.TRel, args []term.Term) *guarderr.Error {
	fixIx, tracked := fg.FixIndex(g, rel.Index)
	if !tracked {
		return checkApplicants(fg, e, g, ctx, rd, budget, args)
	}
	if err := checkApplicants(fg, e, g, ctx, rd, budget, args); err != nil {
		return err
	}
	combined := stack.Push(g, ctx, args)
	slot := fg.RecArgs[fixIx]
	elem, ok := combined.At(slot)
	if !ok {
		return guarderr.Guardf(rd.TraceID, "CheckRecCall",
			"recursive call to fix %d is not applied to enough arguments to inspect its decreasing slot %d", fixIx, slot)
	}
	spec, serr := elemSpec(e, rd, budget, elem)
	if serr != nil {
		return serr
	}
	if ok := checkIsSubterm(spec, fg.Trees[fixIx]); !ok {
		kindDesc := "a term"
		if elem.IsArg() {
			kindDesc = "a partially-applied value"
		}
		return guarderr.Guardf(rd.TraceID, "CheckRecCall",
			"recursive call to fix %d is not provably on a subterm of its decreasing argument (slot %d is %s with spec %v)",
			fixIx, slot, kindDesc, spec)
	}
	return nil
}

// checkIsSubterm is check_is_subterm (tRel case): Dead_code passes
// unconditionally; Subterm(Strict, t') passes iff tree includes t'; a
// Loose subterm or Not_subterm never passes.
func checkIsSubterm(spec subterm.Spec, tree *wfpaths.Tree) bool {
	switch spec.Kind {
	case subterm.DeadCode:
		return true
	case subterm.SubtermKind:
		return spec.Size == subterm.Strict && wfpaths.Incl(tree, spec.Tree)
	default:
		return false
	}
}

func checkRecCallCase(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, args []term.Term, c *term.TCase, whole term.Term) *guarderr.Error {
	attempt := func() *guarderr.Error {
		if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, c.Pred); err != nil {
			return err
		}
		if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, c.Discr); err != nil {
			return err
		}
		if err := checkApplicants(fg, e, g, ctx, rd, budget, args); err != nil {
			return err
		}
		dSpec, err := SubtermSpecif(e, g, ctx, rd, budget, nil, c.Discr)
		if err != nil {
			return err
		}
		stack2 := stack.Push(g, ctx, args)
		filtered, ferr := FilterStackDomain(e, ctx, rd, budget, c.Pred, stack2)
		if ferr != nil {
			return ferr
		}
		for i, branch := range c.Branches {
			binderSpecs := BranchBinderSpecs(dSpec, c.Info.Ind, i, branch.Arity())
			bg := g.PushMany(binderSpecs)
			bctx := ctx
			for _, nm := range branch.Context {
				bctx = bctx.Push(env.Assum{Name: nm, Type: &term.TSort{Sort: term.Sort{Tag: "Type"}}})
			}
			// Constructor-bound variables live in bg only: branch.Body is
			// already peeled (its binders are branch.Context, not leading
			// lambdas), so nothing would ever pop a binderSpecs entry off the
			// stack — they'd sit in front of filtered forever, shifting every
			// real applicant's index.
			if err := CheckRecCall(fg, e, bg, bctx, rd, budget, filtered, branch.Body); err != nil {
				return err
			}
		}
		return nil
	}
	if err := attempt(); err != nil {
		if err.Kind != guarderr.Guard && err.Kind != guarderr.Other {
			return err
		}
		discrRed, werr := rd.WhdAll(e, ctx, c.Discr)
		if werr != nil {
			return err
		}
		dhead, _ := term.DecomposeApp(discrRed)
		if _, ok := dhead.(*term.TConstruct); !ok {
			return err
		}
		reassembled := term.AppTerm(&term.TCase{Info: c.Info, Pred: c.Pred, Discr: discrRed, Branches: c.Branches}, args)
		return CheckRecCall(fg, e, g, ctx, rd, budget, nil, reassembled)
	}
	return nil
}

func checkRecCallFix(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, args []term.Term, fx *term.TFix, whole term.Term) *guarderr.Error {
	attempt := func() *guarderr.Error {
		if err := checkApplicants(fg, e, g, ctx, rd, budget, args); err != nil {
			return err
		}
		for _, fd := range fx.Mfix {
			if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, fd.Type); err != nil {
				return err
			}
		}
		n := len(fx.Mfix)
		innerSpecs := make([]subterm.Spec, n)
		for i := range innerSpecs {
			innerSpecs[i] = subterm.NotSubtermVal
		}
		bg := g.PushMany(innerSpecs)
		decrStack := stack.Push(g, ctx, args)
		for j, fd := range fx.Mfix {
			bctx := ctx.PushMany(nBlankAssums(n, fx.Mfix))
			if j == fx.Index {
				if err := checkNestedFixBody(fg, e, bg, bctx, rd, budget, decrStack, fd); err != nil {
					return err
				}
				continue
			}
			if err := CheckRecCall(fg, e, bg, bctx, rd, budget, nil, fd.Body); err != nil {
				return err
			}
		}
		return nil
	}
	if err := attempt(); err != nil {
		if err.Kind != guarderr.Guard && err.Kind != guarderr.Other {
			return err
		}
		if fx.Mfix[fx.Index].Rarg >= len(args) {
			return err
		}
		decr := args[fx.Mfix[fx.Index].Rarg]
		red, werr := rd.WhdAll(e, ctx, decr)
		if werr != nil {
			return err
		}
		dhead, _ := term.DecomposeApp(red)
		if _, ok := dhead.(*term.TConstruct); !ok {
			return err
		}
		newArgs := append(append([]term.Term{}, args[:fx.Mfix[fx.Index].Rarg]...), red)
		newArgs = append(newArgs, args[fx.Mfix[fx.Index].Rarg+1:]...)
		return CheckRecCall(fg, e, g, ctx, rd, budget, nil, term.AppTerm(fx, newArgs))
	}
	return nil
}

func nBlankAssums(n int, mfix []term.FixDef) []env.Assum {
	out := make([]env.Assum, n)
	for i, f := range mfix {
		out[i] = env.Assum{Name: f.Name, Type: f.Type}
	}
	return out
}

// checkNestedFixBody handles a nested fixpoint's decreasing argument: having
// already pushed the inner mutual block's own bodies as Not_subterm onto bg, descend
// under exactly rarg lambdas (pushing each as non-recursive), then under
// the rarg-th lambda push the spec the deferred stack carries for the
// decreasing slot (or Not_subterm if the stack doesn't reach that far),
// then continue the ordinary walk with an empty stack — the same shape
// subtermSpecifFix uses for this same purpose in subterm_specif.go.
func checkNestedFixBody(fg FixGroup, e env.Env, bg GuardEnv, bctx env.Context, rd reduce.Facade, budget *Budget, decrStack Stack, fd term.FixDef) *guarderr.Error {
	body := fd.Body
	rarg := fd.Rarg
	for i := 0; i <= rarg; i++ {
		lam, ok := body.(*term.TLambda)
		if !ok {
			return unreachable[*guarderr.Error](rd.TraceID, "checkNestedFixBody", fd)
		}
		bctx = bctx.Push(env.Assum{Name: lam.Name, Type: lam.Type})
		if i == rarg {
			spec := subterm.NotSubtermVal
			if elem, ok := decrStack.At(rarg); ok {
				s, serr := elemSpec(e, rd, budget, elem)
				if serr != nil {
					return serr
				}
				spec = s
			}
			bg = bg.Push(spec)
		} else {
			bg = bg.Push(subterm.NotSubtermVal)
		}
		body = lam.Body
	}
	return CheckRecCall(fg, e, bg, bctx, rd, budget, nil, body)
}

func checkRecCallConst(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, args []term.Term, c *term.TConst, whole term.Term) *guarderr.Error {
	if err := checkApplicants(fg, e, g, ctx, rd, budget, args); err == nil {
		return nil
	} else if err.Kind != guarderr.Guard && err.Kind != guarderr.Other {
		return err
	} else {
		res := e.Lookup(c.Name)
		if res.Kind != env.LookupConstantKind || res.Constant == nil {
			return err
		}
		return CheckRecCall(fg, e, g, ctx, rd, budget, nil, term.AppTerm(res.Constant.Body, args))
	}
}

func checkRecCallLambda(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, stack Stack, lam *term.TLambda) *guarderr.Error {
	if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, lam.Type); err != nil {
		return err
	}
	spec := subterm.NotSubtermVal
	rest := stack
	if elem, tail, ok := stack.Pop(); ok {
		s, err := elemSpec(e, rd, budget, elem)
		if err != nil {
			return err
		}
		spec = s
		rest = tail
	}
	bg := g.Push(spec)
	bctx := ctx.Push(env.Assum{Name: lam.Name, Type: lam.Type})
	return CheckRecCall(fg, e, bg, bctx, rd, budget, rest, lam.Body)
}

func checkRecCallCoFix(fg FixGroup, e env.Env, g GuardEnv, ctx env.Context, rd reduce.Facade, budget *Budget, args []term.Term, cf *term.TCoFix) *guarderr.Error {
	if err := checkApplicants(fg, e, g, ctx, rd, budget, args); err != nil {
		return err
	}
	for _, fd := range cf.Mfix {
		if err := CheckRecCall(fg, e, g, ctx, rd, budget, nil, fd.Type); err != nil {
			return err
		}
	}
	n := len(cf.Mfix)
	innerSpecs := make([]subterm.Spec, n)
	for i := range innerSpecs {
		innerSpecs[i] = subterm.NotSubtermVal
	}
	bg := g.PushMany(innerSpecs)
	bctx := ctx.PushMany(nBlankAssums(n, cf.Mfix))
	for _, fd := range cf.Mfix {
		if err := CheckRecCall(fg, e, bg, bctx, rd, budget, nil, fd.Body); err != nil {
			return err
		}
	}
	return nil
}

// occursTrackedFix is the fast path: does any free tRel within
// [g.RelMinFix, g.RelMinFix+fg.NumFixes) occur in t, read depth binders
// below where g itself applies.
func occursTrackedFix(fg FixGroup, g GuardEnv, t term.Term, depth int) bool {
	lo, hi := g.RelMinFix+depth, g.RelMinFix+depth+fg.NumFixes
	switch t := t.(type) {
	case *term.TRel:
		return t.Index >= lo && t.Index < hi
	case *term.TVar, *term.TSort, *term.TConst, *term.TInd, *term.TConstruct:
		return false
	case *term.TEvar:
		for _, a := range t.Args {
			if occursTrackedFix(fg, g, a, depth) {
				return true
			}
		}
		return false
	case *term.TCast:
		return occursTrackedFix(fg, g, t.Term, depth) || occursTrackedFix(fg, g, t.Type, depth)
	case *term.TProd:
		return occursTrackedFix(fg, g, t.Type, depth) || occursTrackedFix(fg, g, t.Body, depth+1)
	case *term.TLambda:
		return occursTrackedFix(fg, g, t.Type, depth) || occursTrackedFix(fg, g, t.Body, depth+1)
	case *term.TLetIn:
		return occursTrackedFix(fg, g, t.Def, depth) || occursTrackedFix(fg, g, t.Type, depth) || occursTrackedFix(fg, g, t.Body, depth+1)
	case *term.TApp:
		if occursTrackedFix(fg, g, t.Fn, depth) {
			return true
		}
		for _, a := range t.Args {
			if occursTrackedFix(fg, g, a, depth) {
				return true
			}
		}
		return false
	case *term.TCase:
		if occursTrackedFix(fg, g, t.Pred, depth) || occursTrackedFix(fg, g, t.Discr, depth) {
			return true
		}
		for _, b := range t.Branches {
			if occursTrackedFix(fg, g, b.Body, depth+len(b.Context)) {
				return true
			}
		}
		return false
	case *term.TFix:
		return occursTrackedFixMfix(fg, g, t.Mfix, depth)
	case *term.TCoFix:
		return occursTrackedFixMfix(fg, g, t.Mfix, depth)
	case *term.TProj:
		return occursTrackedFix(fg, g, t.Term, depth)
	default:
		return false
	}
}

func occursTrackedFixMfix(fg FixGroup, g GuardEnv, mfix []term.FixDef, depth int) bool {
	bodyDepth := depth + len(mfix)
	for _, f := range mfix {
		if occursTrackedFix(fg, g, f.Type, depth) || occursTrackedFix(fg, g, f.Body, bodyDepth) {
			return true
		}
	}
	return false
}
