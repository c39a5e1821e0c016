package guard

import (
	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/subterm"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// BodyResult is the per-body diagnostic step 4 produces on success: the
// decreasing argument and the inductive family it was found to range over,
// useful for a caller that wants to show why a fixpoint was accepted rather
// than just that it was (property 6, "stack correctness", exercises this).
type BodyResult struct {
	RecArg int
	Ind names.Inductive
}

// CheckFixResult is what CheckFix returns on success: one BodyResult per
// mutually-recursive body, in mfix order.
type CheckFixResult struct {
	Bodies []BodyResult
}

// CheckFix is check_fix: the fixpoint entry point. rd.TraceID
// correlates every Guard/Timeout/Programming error and trace line this
// call produces.
//
// The whole call is wrapped in guarderr.Try, the same panic/recover
// boundary common.Try gives any request handler: an unreachable-switch-arm
// panic raised deep in the walker (via the unreachable helper in debug.go)
// surfaces here as an ordinary *guarderr.Error instead of crashing the
// process.
func CheckFix(e env.Env, ctx env.Context, rd reduce.Facade, budget *Budget, mfix []term.FixDef, tracer Tracer) (*CheckFixResult, *guarderr.Error) {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	traceID := rd.TraceID

	var result *CheckFixResult
	var outerErr *guarderr.Error
	if perr := guarderr.Try(traceID, "CheckFix", func() {
		result, outerErr = checkFixInner(e, ctx, rd, budget, mfix, tracer)
	}); perr != nil {
		return nil, perr
	}
	return result, outerErr
}

// cyclicConstants is the optional capability a richer Env (MemoryEnv in
// practice) exposes so CheckFix can refuse a global environment whose
// constants would make δ-reduction loop forever, the same guard
// check/sort.go runs over declarations before type-checking them.
type cyclicConstants interface {
	FindCyclicConstants() []names.KerName
}

func checkFixInner(e env.Env, ctx env.Context, rd reduce.Facade, budget *Budget, mfix []term.FixDef, tracer Tracer) (*CheckFixResult, *guarderr.Error) {
	if cc, ok := e.(cyclicConstants); ok {
		if cycle := cc.FindCyclicConstants(); len(cycle) > 0 {
			return nil, guarderr.Otherf(rd.TraceID, "CheckFix", "environment has cyclic constant definitions: %v", cycle)
		}
	}

	n := len(mfix)
	decls, err := inductiveOfMutfix(e, ctx, rd, mfix)
	if err != nil {
		return nil, err
	}
	common.Assert(len(decls) == n, "inductiveOfMutfix returned a different number of decls than mfix has bodies")

	trees := make([]*wfpaths.Tree, n)
	for i, d := range decls {
		oneBody, _, ok := env.LookupInductiveBody(e, d.ind)
		if !ok {
			return nil, guarderr.Otherf(rd.TraceID, "CheckFix", "unknown inductive %v for fix %d's decreasing argument", d.ind, i)
		}
		trees[i] = oneBody.RecArgsTree
	}

	recArgs := make([]int, n)
	for i, fd := range mfix {
		recArgs[i] = fd.Rarg
	}
	fg := FixGroup{NumFixes: n, RecArgs: recArgs, Trees: trees}

	bodies := make([]BodyResult, n)
	for i, d := range decls {
		tracer.Guardf(rd.TraceID, "checking fix %d (decreasing arg %d, inductive %v)", i, mfix[i].Rarg, d.ind)
		g := GuardEnv{RelMinFix: mfix[i].Rarg + 1, Local: []subterm.Spec{subterm.MakeSubterm(subterm.Loose, trees[i])}}
		if err := CheckRecCall(fg, e, g, d.ctx, rd, budget, nil, d.body); err != nil {
			return nil, err
		}
		bodies[i] = BodyResult{RecArg: mfix[i].Rarg, Ind: d.ind}
	}
	return &CheckFixResult{Bodies: bodies}, nil
}

type fixDecl struct {
	ind names.Inductive
	ctx env.Context
	body term.Term
}

// inductiveOfMutfix is inductive_of_mutfix (step 1): for each fix body
// i with recursive index k_i, walk k_i+1 outer lambdas verifying no sibling
// self-call occurs in any argument's type and that the k_i-th argument's
// type is headed by a Finite inductive.
func inductiveOfMutfix(e env.Env, ctx env.Context, rd reduce.Facade, mfix []term.FixDef) ([]fixDecl, *guarderr.Error) {
	n := len(mfix)
	out := make([]fixDecl, n)
	selfRefs := FixGroup{NumFixes: n}
	blockCtx := ctx.PushMany(nBlankAssums(n, mfix))

	for i, fd := range mfix {
		bctx := blockCtx
		body := fd.Body
		var lastArgType term.Term
		var lastArgCtx env.Context
		for j := 0; j <= fd.Rarg; j++ {
			lam, ok := body.(*term.TLambda)
			if !ok {
				return nil, guarderr.Guardf(rd.TraceID, "inductive_of_mutfix",
					"fix %d does not have %d leading lambdas before its decreasing argument", i, fd.Rarg+1)
			}
			selfG := GuardEnv{RelMinFix: 0}
			if occursTrackedFix(selfRefs, selfG, lam.Type, j) {
				return nil, guarderr.Guardf(rd.TraceID, "inductive_of_mutfix",
					"fix %d's argument %d has a type mentioning one of its siblings", i, j)
			}
			lastArgType = lam.Type
			lastArgCtx = bctx
			bctx = bctx.Push(env.Assum{Name: lam.Name, Type: lam.Type})
			body = lam.Body
		}
		whd, werr := rd.WhdAll(e, lastArgCtx, lastArgType)
		if werr != nil {
			return nil, werr
		}
		head, _ := term.DecomposeApp(whd)
		ind, ok := head.(*term.TInd)
		if !ok {
			return nil, guarderr.Guardf(rd.TraceID, "inductive_of_mutfix",
				"fix %d's decreasing argument does not have an inductive type", i)
		}
		_, mib, ok := env.LookupInductiveBody(e, ind.Ind)
		if !ok {
			return nil, guarderr.Otherf(rd.TraceID, "inductive_of_mutfix", "unknown inductive %v", ind.Ind)
		}
		if mib.Recursivity != names.Finite {
			return nil, guarderr.Guardf(rd.TraceID, "inductive_of_mutfix",
				"fix %d's decreasing argument ranges over %v, a %v inductive, not a Finite one", i, ind.Ind, mib.Recursivity)
		}
		out[i] = fixDecl{ind: ind.Ind, ctx: bctx, body: body}
	}
	return out, nil
}
