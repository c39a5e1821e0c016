// Command guardcheck is a small, self-contained demo of the guardedness
// checker: it hand-builds nat and list as a tiny in-memory environment,
// defines length as a fixpoint over list, and runs it through guard.CheckFix.
// There is no parser or file format here — the point is to exercise
// env.MemoryEnv, reduce.Facade and guard.CheckFix together the way a caller
// embedding this checker in a larger kernel would.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guard"
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// buildNat seeds e with nat := O | S nat and returns its Inductive name.
func buildNat(e *env.MemoryEnv) names.Inductive {
	kn := common.NewIdentifier("nat")
	ind := names.Inductive{MutInd: kn, Ind: 0}

	zero := wfpaths.Node(wfpaths.NorecLabel, nil)
	succ := wfpaths.Node(wfpaths.NorecLabel, []*wfpaths.Tree{wfpaths.Param(0, 0)})
	defs := []*wfpaths.Tree{wfpaths.Node(wfpaths.MrecLabel(ind), []*wfpaths.Tree{zero, succ})}
	tree := wfpaths.MkRec(defs)[0]

	body := env.OneInductiveBody{
		Name: "nat",
		Ctors: []env.ConstructorBody{
			{Name: "O"},
			// S's argument refers back to nat itself, which build_recargs_nested
			// pushes as a TRel-bound sibling assumption rather than a bare TInd —
			// a literal TInd here would send build_recargs back through the
			// tInd/nested dispatch forever instead of resolving through ra_env.
			{Name: "S", ArgTypes: []term.Term{&term.TRel{Index: 0}}},
		},
		RecArgsTree: tree,
	}
	e.AddInductive(kn, &env.MutualInductiveBody{NPars: 0, Bodies: []env.OneInductiveBody{body}, Recursivity: names.Finite})
	return ind
}

// buildList seeds e with list A := nil | cons A (list A) and returns its
// Inductive name. A is left as an uninterpreted block parameter — subterm
// inference never looks past a constructor argument's recursive/non-recursive
// shape, so a concrete parameter type would not change anything this demo
// exercises.
func buildList(e *env.MemoryEnv) names.Inductive {
	kn := common.NewIdentifier("list")
	ind := names.Inductive{MutInd: kn, Ind: 0}

	nilTree := wfpaths.Node(wfpaths.NorecLabel, nil)
	consTree := wfpaths.Node(wfpaths.NorecLabel, []*wfpaths.Tree{wfpaths.MkNorec, wfpaths.Param(0, 0)})
	defs := []*wfpaths.Tree{wfpaths.Node(wfpaths.MrecLabel(ind), []*wfpaths.Tree{nilTree, consTree})}
	tree := wfpaths.MkRec(defs)[0]

	body := env.OneInductiveBody{
		Name: "list",
		Ctors: []env.ConstructorBody{
			{Name: "nil"},
			// cons's first argument is the block's own parameter A, pushed as
			// a TRel assumption ahead of the sibling bodies; its second is the
			// self-reference to list, which lands on that same sibling slot
			// once cons's own first argument has been pushed in front of it.
			{Name: "cons", ArgTypes: []term.Term{&term.TRel{Index: 1}, &term.TRel{Index: 1}}},
		},
		RecArgsTree: tree,
	}
	e.AddInductive(kn, &env.MutualInductiveBody{NPars: 1, Bodies: []env.OneInductiveBody{body}, Recursivity: names.Finite})
	return ind
}

// lengthFix builds:
//
//	fix length (l : list A) : nat :=
//	  match l with
//	  | nil => O
//	  | cons x xs => S (length xs)
//	  end
//
// Inside the cons branch, dB index 0 is xs, 1 is x, 2 is l, and 3 is
// length's own self-reference — one level per binder crossed from the raw,
// unpeeled fix body where the self-reference starts at index 0.
func lengthFix(natInd, listInd names.Inductive) term.FixDef {
	nilCtor := names.Constructor{Ind: listInd, Ctor: 0}
	sCtor := names.Constructor{Ind: natInd, Ctor: 1}

	match := &term.TCase{
		Info:  term.CaseInfo{Ind: listInd, NPars: 1},
		Pred:  &term.TLambda{Name: term.Anonymous, Type: &term.TInd{Ind: listInd}, Body: &term.TInd{Ind: natInd}},
		Discr: &term.TRel{Index: 0}, // l
		Branches: []term.CaseBranch{
			{Body: &term.TConstruct{Ctor: nilCtor}},
			{
				Context: []term.Name{{Value: "x"}, {Value: "xs"}},
				Body: &term.TApp{
					Fn: &term.TConstruct{Ctor: sCtor},
					Args: []term.Term{
						&term.TApp{Fn: &term.TRel{Index: 3}, Args: []term.Term{&term.TRel{Index: 0}}},
					},
				},
			},
		},
	}

	return term.FixDef{
		Name: term.Name{Value: "length"},
		Type: &term.TProd{Name: term.Name{Value: "l"}, Type: &term.TInd{Ind: listInd}, Body: &term.TInd{Ind: natInd}},
		Body: &term.TLambda{Name: term.Name{Value: "l"}, Type: &term.TInd{Ind: listInd}, Body: match},
		Rarg: 0,
	}
}

func main() {
	flag.Parse()

	e := env.NewMemoryEnv()
	natInd := buildNat(e)
	listInd := buildList(e)

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := guard.NewBudget(guard.DefaultBudget)
	mfix := []term.FixDef{lengthFix(natInd, listInd)}

	result, err := guard.CheckFix(e, nil, rd, budget, mfix, guard.WriterTracer{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "length is not guarded: %v\n", err)
		os.Exit(1)
	}
	for i, b := range result.Bodies {
		fmt.Printf("body %d: decreasing argument %d ranges over %v\n", i, b.RecArg, b.Ind)
	}
}
