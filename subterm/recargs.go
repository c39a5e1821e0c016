package subterm

import (
	"github.com/yforster/metacoq-guard/env"
	"github.com/yforster/metacoq-guard/guarderr"
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/reduce"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// RaEntry is one slot of a recargs environment: what build_recargs should
// report if a tRel resolves to this position.
type RaEntry struct {
	Label wfpaths.Recarg
	Tree *wfpaths.Tree
}

// RaEnv mirrors env.Context's convention: index 0 is the innermost bound
// variable.
type RaEnv []RaEntry

func (e RaEnv) at(idx int) (RaEntry, bool) {
	if idx < 0 || idx >= len(e) {
		return RaEntry{}, false
	}
	return e[idx], true
}

func (e RaEnv) push(entries...RaEntry) RaEnv {
	out := make(RaEnv, 0, len(entries)+len(e))
	out = append(out, entries...)
	out = append(out, e...)
	return out
}

func (e RaEnv) lift(n int) RaEnv {
	out := make(RaEnv, len(e))
	for i, entry := range e {
		out[i] = RaEntry{Label: entry.Label, Tree: wfpaths.Lift(n, entry.Tree)}
	}
	return out
}

func sameIndLabel(ref wfpaths.IndRef, ind names.Inductive) bool {
	return ref != nil && ref.SameInductive(ind)
}

// BuildRecargsNested is build_recargs_nested: re-derives the
// recargs tree of ind's mutual family with every sibling body's tree
// instantiated against the outer, nesting inductive's own tree, turning the
// family's Mrec labels into Imbr(ind, j) and its internal back-references
// into param(0, j) slots resolved by the new mk_rec layer this call ties.
//
// seedTree bounds the recursion for ind's own body (its children supply the
// per-constructor, per-argument "recursion limit" trees); sibling bodies
// use their stored initial trees, since no narrowed seed is available for
// them. args is the application ind was found applied to; only its length
// relative to the uniform-parameter count is consulted — the
// parameter values themselves never appear in a recargs tree, uniform or
// not, since every parameter position is labelled Norec regardless.
func BuildRecargsNested(e env.Env, ctx env.Context, rd reduce.Facade, raEnv RaEnv, seedTree *wfpaths.Tree, ind names.Inductive, args []term.Term) (*wfpaths.Tree, *guarderr.Error) {
	if wfpaths.IsMkNorec(seedTree) {
		return seedTree, nil
	}
	_, mib, ok := env.LookupInductiveBody(e, ind)
	if !ok {
		return nil, guarderr.Otherf(rd.TraceID, "BuildRecargsNested", "unknown inductive %v", ind)
	}
	nbodies := len(mib.Bodies)

	uniform := UniformParamsOfMib(mib)
	if uniform > len(args) {
		uniform = len(args)
	}

	siblings := make([]RaEntry, nbodies)
	for j := 0; j < nbodies; j++ {
		siblings[nbodies-1-j] = RaEntry{
			Label: wfpaths.ImbrLabel(names.Inductive{MutInd: ind.MutInd, Ind: j}),
			Tree: wfpaths.Param(0, j),
		}
	}
	params := make([]RaEntry, mib.NPars)
	for i := range params {
		params[i] = RaEntry{Label: wfpaths.NorecLabel, Tree: wfpaths.MkNorec}
	}
	base := raEnv.lift(1)
	base = base.push(params...)
	base = base.push(siblings...)

	ctorPaths := make([][]*wfpaths.Tree, nbodies)
	for j := 0; j < nbodies; j++ {
		body := mib.Bodies[j]
		rootTree := body.RecArgsTree
		if j == ind.Ind {
			rootTree = seedTree
		}
		ctorChildren := wfpaths.Children(rootTree)
		paths := make([]*wfpaths.Tree, len(body.Ctors))
		for k, ctor := range body.Ctors {
			var seedSubtrees []*wfpaths.Tree
			if k < len(ctorChildren) {
				seedSubtrees = wfpaths.GrandchildrenAt(rootTree, k)
			}
			argTrees, err := BuildRecargsConstructors(e, ctx, rd, base, seedSubtrees, ctor.ArgTypes)
			if err != nil {
				return nil, err
			}
			paths[k] = wfpaths.Node(wfpaths.NorecLabel, argTrees)
		}
		ctorPaths[j] = paths
	}

	defs := make([]*wfpaths.Tree, nbodies)
	for j := 0; j < nbodies; j++ {
		defs[j] = wfpaths.Node(wfpaths.ImbrLabel(names.Inductive{MutInd: ind.MutInd, Ind: j}), ctorPaths[j])
	}
	tied := wfpaths.MkRec(defs)
	return tied[ind.Ind], nil
}

// BuildRecargsConstructors processes one constructor's argument list
// left-to-right, consuming one sub-tree from seedTrees per argument (// "build_recargs_constructors"). Each argument's own binder is pushed as a
// fresh Norec entry before moving on to the next, since an ordinary
// constructor argument (as opposed to a sibling self-reference or a
// parameter) never carries recursive structure of its own.
func BuildRecargsConstructors(e env.Env, ctx env.Context, rd reduce.Facade, raEnv RaEnv, seedTrees []*wfpaths.Tree, argTypes []term.Term) ([]*wfpaths.Tree, *guarderr.Error) {
	out := make([]*wfpaths.Tree, len(argTypes))
	cur := raEnv
	for i, at := range argTypes {
		seed := wfpaths.MkNorec
		if i < len(seedTrees) {
			seed = seedTrees[i]
		}
		tree, err := BuildRecargs(e, ctx, rd, cur, seed, at)
		if err != nil {
			return nil, err
		}
		out[i] = tree
		cur = cur.push(RaEntry{Label: wfpaths.NorecLabel, Tree: wfpaths.MkNorec})
	}
	return out, nil
}

// BuildRecargs is build_recargs: dispatches on t's weak-head form.
// A leading product is entered with a fresh Norec binder; a bound variable
// is resolved against raEnv; an inductive head whose seed label matches it
// (Mrec or Imbr of the same inductive) recurses into BuildRecargsNested to
// refine the seed further; anything else carries no recursive structure.
func BuildRecargs(e env.Env, ctx env.Context, rd reduce.Facade, raEnv RaEnv, seed *wfpaths.Tree, t term.Term) (*wfpaths.Tree, *guarderr.Error) {
	red, werr := rd.WhdAll(e, ctx, t)
	if werr != nil {
		return nil, werr
	}
	switch h := red.(type) {
	case *term.TProd:
		innerCtx := ctx.Push(env.Assum{Name: h.Name, Type: h.Type})
		innerEnv := raEnv.push(RaEntry{Label: wfpaths.NorecLabel, Tree: wfpaths.MkNorec})
		return BuildRecargs(e, innerCtx, rd, innerEnv, seed, h.Body)
	case *term.TRel:
		if entry, ok := raEnv.at(h.Index); ok {
			return entry.Tree, nil
		}
		return wfpaths.MkNorec, nil
	default:
		head, args := term.DecomposeApp(red)
		tind, ok := head.(*term.TInd)
		if !ok {
			return wfpaths.MkNorec, nil
		}
		label := wfpaths.Label(seed)
		if label.Kind != wfpaths.Mrec && label.Kind != wfpaths.Imbr {
			return wfpaths.MkNorec, nil
		}
		if !sameIndLabel(label.Ind, tind.Ind) {
			return wfpaths.MkNorec, nil
		}
		return BuildRecargsNested(e, ctx, rd, raEnv, seed, tind.Ind, args)
	}
}
