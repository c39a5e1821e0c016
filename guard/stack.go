// Package guard is the guarded-recursion walker: subterm-spec inference,
// the recursive-call checker, and the fixpoint entry point, plus the step
// budget and the trace side-channel that back them.
package guard

import (
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/subterm"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// StackElem is a stack element: either a deferred applicant
// term paired with the context and guard environment it must be read in
// (SClosure), or a spec already known without the term itself (SArg) —
// e.g. a match branch's binder spec, derived before the branch body is
// even looked at.
type StackElem struct {
	isArg bool

	g GuardEnv
	ctx env.Context
	term term.Term

	spec subterm.Spec
}

// SClosure defers a real applicant term.
func SClosure(g GuardEnv, ctx env.Context, t term.Term) StackElem {
	return StackElem{g: g, ctx: ctx, term: t}
}

// SArg carries a spec with no underlying term.
func SArg(spec subterm.Spec) StackElem {
	return StackElem{isArg: true, spec: spec}
}

func (e StackElem) IsArg() bool { return e.isArg }

// Stack is the deferred-application stack, index 0 = the first (leftmost,
// outermost) applicant.
type Stack []StackElem

// Push prepends applicants built from args, read in (g, ctx), to the
// front of the stack, args[0] first (the applicants of an application
// come before whatever was already deferred).
func (s Stack) Push(g GuardEnv, ctx env.Context, args []term.Term) Stack {
	out := make(Stack, 0, len(args)+len(s))
	for _, a := range args {
		out = append(out, SClosure(g, ctx, a))
	}
	return append(out, s...)
}

// PushSpecs prepends a batch of SArg entries to the front of the stack,
// specs[0] first.
func (s Stack) PushSpecs(specs []subterm.Spec) Stack {
	out := make(Stack, 0, len(specs)+len(s))
	for _, sp := range specs {
		out = append(out, SArg(sp))
	}
	return append(out, s...)
}

// Pop splits off the first element, or reports none.
func (s Stack) Pop() (StackElem, Stack, bool) {
	if len(s) == 0 {
		return StackElem{}, s, false
	}
	return s[0], s[1:], true
}

// At returns the i-th entry (0-based from the front), or false if out of
// range.
func (s Stack) At(i int) (StackElem, bool) {
	if i < 0 || i >= len(s) {
		return StackElem{}, false
	}
	return s[i], true
}

// elemSpec is the spec a stack entry carries "as of now": the spec itself
// for an SArg, or subterm_specif run on its deferred term (with an empty
// further stack, mirroring every internal subterm_specif call that only
// wants a term's own spec) for an SClosure.
func elemSpec(e env.Env, rd reduce.Facade, budget *Budget, elem StackElem) (subterm.Spec, *guarderr.Error) {
	if elem.isArg {
		return elem.spec, nil
	}
	return SubtermSpecif(e, elem.g, elem.ctx, rd, budget, nil, elem.term)
}

type prodDomain struct {
	ctx env.Context
	ty term.Term
}

// decomposeProdDomains peels rtf's leading tLambda binders (indices and
// discriminant), then repeatedly peels tProd layers off what remains: each
// product contributes one stack-aligned domain, its Type being what the
// corresponding applicant is expected to inhabit.
func decomposeProdDomains(e env.Env, ctx env.Context, rd reduce.Facade, rtf term.Term) ([]prodDomain, *guarderr.Error) {
	binders, body := subterm.PeelLambdas(rtf)
	curCtx := ctx.PushMany(binders)
	cur := body
	var out []prodDomain
	for {
		wh, err := rd.WhdAllNoLet(e, curCtx, cur)
		if err != nil {
			return nil, err
		}
		prod, ok := wh.(*term.TProd)
		if !ok {
			break
		}
		out = append(out, prodDomain{ctx: curCtx, ty: prod.Type})
		curCtx = curCtx.Push(env.Assum{Name: prod.Name, Type: prod.Type})
		cur = prod.Body
	}
	return out, nil
}

// FilterStackDomain is filter_stack_domain: for every stack entry
// aligned with a product of rtf's (decomposed) domain whose type is headed
// by an inductive, refine the entry's spec by intersecting with the
// recargs approximation; entries aligned with a non-inductive type, and
// entries beyond rtf's arity, are replaced by SArg(Not_subterm).
//
// It lives in this package rather than subterm because it operates on
// Stack, whose SClosure/SArg distinction only guard needs.
func FilterStackDomain(e env.Env, ctx env.Context, rd reduce.Facade, budget *Budget, rtf term.Term, stack Stack) (Stack, *guarderr.Error) {
	domains, err := decomposeProdDomains(e, ctx, rd, rtf)
	if err != nil {
		return nil, err
	}
	out := make(Stack, len(stack))
	for i, elem := range stack {
		if i >= len(domains) {
			out[i] = SArg(subterm.NotSubtermVal)
			continue
		}
		dom := domains[i]
		head, args := term.DecomposeApp(dom.ty)
		ind, ok := head.(*term.TInd)
		if !ok {
			out[i] = SArg(subterm.NotSubtermVal)
			continue
		}
		spec, serr := elemSpec(e, rd, budget, elem)
		if serr != nil {
			return nil, serr
		}
		if spec.Kind != subterm.SubtermKind {
			out[i] = SArg(spec)
			continue
		}
		approx, berr := subterm.BuildRecargsNested(e, dom.ctx, rd, nil, spec.Tree, ind.Ind, args)
		if berr != nil {
			return nil, berr
		}
		tree, ierr := wfpaths.Inter(spec.Tree, approx)
		if ierr != nil {
			out[i] = SArg(subterm.NotSubtermVal)
			continue
		}
		out[i] = SArg(subterm.MakeSubterm(spec.Size, tree))
	}
	return out, nil
}
