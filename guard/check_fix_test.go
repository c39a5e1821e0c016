package guard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// buildNat mirrors cmd/guardcheck's own helper: nat := O | S nat, with S's
// self-reference TRel-bound into the pushed sibling context rather than a
// bare TInd (see subterm/recargs_test.go for why the latter never
// terminates).
func buildNat(e *env.MemoryEnv) names.Inductive {
	kn := common.NewIdentifier("nat")
	ind := names.Inductive{MutInd: kn, Ind: 0}

	zero := wfpaths.Node(wfpaths.NorecLabel, nil)
	succ := wfpaths.Node(wfpaths.NorecLabel, []*wfpaths.Tree{wfpaths.Param(0, 0)})
	tree := wfpaths.MkRec([]*wfpaths.Tree{wfpaths.Node(wfpaths.MrecLabel(ind), []*wfpaths.Tree{zero, succ})})[0]

	body := env.OneInductiveBody{
		Name: "nat",
		Ctors: []env.ConstructorBody{
			{Name: "O"},
			{Name: "S", ArgTypes: []term.Term{&term.TRel{Index: 0}}},
		},
		RecArgsTree: tree,
	}
	e.AddInductive(kn, &env.MutualInductiveBody{NPars: 0, Bodies: []env.OneInductiveBody{body}, Recursivity: names.Finite})
	return ind
}

func buildList(e *env.MemoryEnv) names.Inductive {
	kn := common.NewIdentifier("list")
	ind := names.Inductive{MutInd: kn, Ind: 0}

	nilTree := wfpaths.Node(wfpaths.NorecLabel, nil)
	consTree := wfpaths.Node(wfpaths.NorecLabel, []*wfpaths.Tree{wfpaths.MkNorec, wfpaths.Param(0, 0)})
	tree := wfpaths.MkRec([]*wfpaths.Tree{wfpaths.Node(wfpaths.MrecLabel(ind), []*wfpaths.Tree{nilTree, consTree})})[0]

	body := env.OneInductiveBody{
		Name: "list",
		Ctors: []env.ConstructorBody{
			{Name: "nil"},
			{Name: "cons", ArgTypes: []term.Term{&term.TRel{Index: 1}, &term.TRel{Index: 1}}},
		},
		RecArgsTree: tree,
	}
	e.AddInductive(kn, &env.MutualInductiveBody{NPars: 1, Bodies: []env.OneInductiveBody{body}, Recursivity: names.Finite})
	return ind
}

func lengthFix(natInd, listInd names.Inductive) term.FixDef {
	nilCtor := names.Constructor{Ind: listInd, Ctor: 0}
	sCtor := names.Constructor{Ind: natInd, Ctor: 1}

	match := &term.TCase{
		Info:  term.CaseInfo{Ind: listInd, NPars: 1},
		Pred:  &term.TLambda{Name: term.Anonymous, Type: &term.TInd{Ind: listInd}, Body: &term.TInd{Ind: natInd}},
		Discr: &term.TRel{Index: 0},
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

// loopingOnSelfFix builds a rejected fixpoint:
//
//	fix bad (l : list A) : nat := bad l
//
// i.e. the recursive call is applied to the same argument it was handed,
// never a strict subterm of it.
func loopingOnSelfFix(natInd, listInd names.Inductive) term.FixDef {
	return term.FixDef{
		Name: term.Name{Value: "bad"},
		Type: &term.TProd{Name: term.Name{Value: "l"}, Type: &term.TInd{Ind: listInd}, Body: &term.TInd{Ind: natInd}},
		Body: &term.TLambda{
			Name: term.Name{Value: "l"},
			Type: &term.TInd{Ind: listInd},
			Body: &term.TApp{Fn: &term.TRel{Index: 1}, Args: []term.Term{&term.TRel{Index: 0}}},
		},
		Rarg: 0,
	}
}

func TestCheckFixAcceptsStructuralLength(t *testing.T) {
	e := env.NewMemoryEnv()
	natInd := buildNat(e)
	listInd := buildList(e)

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	mfix := []term.FixDef{lengthFix(natInd, listInd)}

	result, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.Nil(t, err)
	require.Len(t, result.Bodies, 1)
	assert.Equal(t, 0, result.Bodies[0].RecArg)
	assert.True(t, listInd.Equal(result.Bodies[0].Ind))
}

func TestCheckFixRejectsNonDecreasingSelfCall(t *testing.T) {
	e := env.NewMemoryEnv()
	natInd := buildNat(e)
	listInd := buildList(e)

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	mfix := []term.FixDef{loopingOnSelfFix(natInd, listInd)}

	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.NotNil(t, err)
	assert.Equal(t, "Guard", err.Kind.String())
}

func TestCheckFixRejectsNonInductiveDecreasingArgument(t *testing.T) {
	e := env.NewMemoryEnv()
	_ = buildNat(e)
	_ = buildList(e)

	mfix := []term.FixDef{{
		Name: term.Name{Value: "bad"},
		Type: &term.TProd{Name: term.Name{Value: "x"}, Type: &term.TSort{}, Body: &term.TSort{}},
		Body: &term.TLambda{Name: term.Name{Value: "x"}, Type: &term.TSort{}, Body: &term.TSort{}},
		Rarg: 0,
	}}

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.NotNil(t, err)
	assert.Equal(t, "Guard", err.Kind.String())
}

func TestCheckFixRejectsCyclicEnvironment(t *testing.T) {
	e := env.NewMemoryEnv()
	natInd := buildNat(e)
	listInd := buildList(e)

	aName := common.NewIdentifier("a")
	bName := common.NewIdentifier("b")
	e.AddConstant(aName, &env.ConstantBody{Name: "a", Type: &term.TRel{Index: 0}, Body: &term.TConst{Name: bName}})
	e.AddConstant(bName, &env.ConstantBody{Name: "b", Type: &term.TRel{Index: 0}, Body: &term.TConst{Name: aName}})

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	mfix := []term.FixDef{lengthFix(natInd, listInd)}

	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.NotNil(t, err)
	assert.Equal(t, "Other", err.Kind.String(), "a cyclic global environment must be rejected before any fix body is walked")
}

// ackFix builds the minimal accept/reject pair a guardedness checker is
// meant to tell apart on a recursive call buried under a match, one
// binder deeper than the decreasing argument itself: fix f (m : nat) :
// nat := match m with O => O | S m' => f <selfArg> end, where selfArg is
// either m' (the pattern-bound predecessor, a strict subterm — accepted)
// or m (the original, un-destructed argument, still only Loose — rejected).
// Named after the classic ack m'/ack m contrast since that is exactly the
// shape of Ackermann's own inner recursive call on its first argument.
func ackFix(natInd names.Inductive, selfArg int) term.FixDef {
	zCtor := names.Constructor{Ind: natInd, Ctor: 0}
	match := &term.TCase{
		Info:  term.CaseInfo{Ind: natInd, NPars: 0},
		Pred:  &term.TLambda{Name: term.Anonymous, Type: &term.TInd{Ind: natInd}, Body: &term.TInd{Ind: natInd}},
		Discr: &term.TRel{Index: 0},
		Branches: []term.CaseBranch{
			{Body: &term.TConstruct{Ctor: zCtor}},
			{
				Context: []term.Name{{Value: "m'"}},
				Body: &term.TApp{
					Fn:   &term.TRel{Index: 2},
					Args: []term.Term{&term.TRel{Index: selfArg}},
				},
			},
		},
	}
	return term.FixDef{
		Name: term.Name{Value: "f"},
		Type: &term.TProd{Name: term.Name{Value: "m"}, Type: &term.TInd{Ind: natInd}, Body: &term.TInd{Ind: natInd}},
		Body: &term.TLambda{Name: term.Name{Value: "m"}, Type: &term.TInd{Ind: natInd}, Body: match},
		Rarg: 0,
	}
}

func TestCheckFixAcceptsRecursiveCallOnPatternBoundPredecessor(t *testing.T) {
	e := env.NewMemoryEnv()
	natInd := buildNat(e)

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	mfix := []term.FixDef{ackFix(natInd, 0)} // selfArg = m' (TRel 0 inside the branch)

	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.Nil(t, err, "f m' recurses on the S-pattern's strict subterm and must be accepted")
}

func TestCheckFixRejectsRecursiveCallOnUndestructedArgument(t *testing.T) {
	e := env.NewMemoryEnv()
	natInd := buildNat(e)

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	mfix := []term.FixDef{ackFix(natInd, 1)} // selfArg = m (TRel 1: the original, shifted by m')

	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.NotNil(t, err, "f m recurses on the same (Loose) argument the match never refined and must be rejected")
	assert.Equal(t, "Guard", err.Kind.String())
}

// buildCoFiniteStream registers an inductive whose Recursivity is
// CoFinite, the same shape the positivity checker hands a "stream"-style
// coinductive: Cons is self-referential like nat's S, but Finite-ness is
// what inductive_of_mutfix actually gates on.
func buildCoFiniteStream(e *env.MemoryEnv) names.Inductive {
	kn := common.NewIdentifier("stream")
	ind := names.Inductive{MutInd: kn, Ind: 0}
	tree := wfpaths.MkRec([]*wfpaths.Tree{wfpaths.Node(wfpaths.MrecLabel(ind), []*wfpaths.Tree{wfpaths.Node(wfpaths.NorecLabel, []*wfpaths.Tree{wfpaths.Param(0, 0)})})})[0]
	body := env.OneInductiveBody{
		Name:        "stream",
		Ctors:       []env.ConstructorBody{{Name: "Cons", ArgTypes: []term.Term{&term.TRel{Index: 0}}}},
		RecArgsTree: tree,
	}
	e.AddInductive(kn, &env.MutualInductiveBody{NPars: 0, Bodies: []env.OneInductiveBody{body}, Recursivity: names.CoFinite})
	return ind
}

func TestCheckFixRejectsCoFiniteDecreasingArgument(t *testing.T) {
	e := env.NewMemoryEnv()
	streamInd := buildCoFiniteStream(e)

	mfix := []term.FixDef{{
		Name: term.Name{Value: "bad"},
		Type: &term.TProd{Name: term.Name{Value: "s"}, Type: &term.TInd{Ind: streamInd}, Body: &term.TInd{Ind: streamInd}},
		Body: &term.TLambda{Name: term.Name{Value: "s"}, Type: &term.TInd{Ind: streamInd}, Body: &term.TRel{Index: 0}},
		Rarg: 0,
	}}

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.NotNil(t, err)
	assert.Equal(t, "Guard", err.Kind.String(), "a CoFinite decreasing argument must be rejected at inductive_of_mutfix, before any body is walked")
}

// buildVoid registers an empty inductive (zero constructors): its own
// recargs tree has no constructor children, but that never actually
// matters here — inductiveOfMutfix only consults Recursivity, and a
// match eliminating it always has zero branches regardless of the tree.
func buildVoid(e *env.MemoryEnv) names.Inductive {
	kn := common.NewIdentifier("void")
	ind := names.Inductive{MutInd: kn, Ind: 0}
	tree := wfpaths.MkRec([]*wfpaths.Tree{wfpaths.Node(wfpaths.MrecLabel(ind), nil)})[0]
	body := env.OneInductiveBody{Name: "void", RecArgsTree: tree}
	e.AddInductive(kn, &env.MutualInductiveBody{NPars: 0, Bodies: []env.OneInductiveBody{body}, Recursivity: names.Finite})
	return ind
}

// TestCheckFixAcceptsDeadCodeRecursiveArgument is scenario (f): fix f (v
// : void) (n : nat) : nat := match n with O => O | S n' => f (match v
// with end) n' end. The decreasing argument of the recursive call is an
// absurd elimination of v (zero branches, so its Glb is unconditionally
// Dead_code regardless of v's own Loose spec) — check_is_subterm accepts
// Dead_code unconditionally, so the call is guarded despite the argument
// provably not being a subterm of anything.
func TestCheckFixAcceptsDeadCodeRecursiveArgument(t *testing.T) {
	e := env.NewMemoryEnv()
	voidInd := buildVoid(e)
	natInd := buildNat(e)

	absurd := &term.TCase{
		Info:     term.CaseInfo{Ind: voidInd, NPars: 0},
		Pred:     &term.TLambda{Name: term.Anonymous, Type: &term.TInd{Ind: voidInd}, Body: &term.TInd{Ind: voidInd}},
		Discr:    &term.TRel{Index: 2},
		Branches: nil,
	}
	matchN := &term.TCase{
		Info:  term.CaseInfo{Ind: natInd, NPars: 0},
		Pred:  &term.TLambda{Name: term.Anonymous, Type: &term.TInd{Ind: natInd}, Body: &term.TInd{Ind: natInd}},
		Discr: &term.TRel{Index: 0},
		Branches: []term.CaseBranch{
			{Body: &term.TConstruct{Ctor: names.Constructor{Ind: natInd, Ctor: 0}}},
			{
				Context: []term.Name{{Value: "n'"}},
				Body: &term.TApp{
					Fn:   &term.TRel{Index: 3},
					Args: []term.Term{absurd, &term.TRel{Index: 0}},
				},
			},
		},
	}

	mfix := []term.FixDef{{
		Name: term.Name{Value: "f"},
		Type: &term.TProd{Name: term.Name{Value: "v"}, Type: &term.TInd{Ind: voidInd}, Body: &term.TProd{Name: term.Name{Value: "n"}, Type: &term.TInd{Ind: natInd}, Body: &term.TInd{Ind: natInd}}},
		Body: &term.TLambda{Name: term.Name{Value: "v"}, Type: &term.TInd{Ind: voidInd}, Body: &term.TLambda{Name: term.Name{Value: "n"}, Type: &term.TInd{Ind: natInd}, Body: matchN}},
		Rarg: 0,
	}}

	rd := reduce.NewFacade(reduce.NewDefaultReducer(), uuid.New())
	budget := NewBudget(DefaultBudget)
	_, err := CheckFix(e, nil, rd, budget, mfix, nil)
	require.Nil(t, err, "an absurd Dead_code argument must be accepted even though it is not structurally smaller")
}
