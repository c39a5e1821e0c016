package env

import (
	"github.com/yforster/metacoq-guard/algos"
	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/term"
)

// MemoryEnv is a concrete in-memory Env: it keeps inductives and constants
// as plain maps rather than hitting any external store. It exists so the
// rest of this module is testable without a real kernel attached.
//
// byBody is the reverse index AddConstant keeps alongside Constants, the
// same role common.Map plays for check/checker_members.go's MemberSet: a
// plain generic map the rest of the package reads without re-deriving it
// on every lookup.
type MemoryEnv struct {
	Inductives map[names.KerName]*MutualInductiveBody
	Constants  map[names.KerName]*ConstantBody

	byBody common.Map[*ConstantBody, names.KerName]
}

func NewMemoryEnv() *MemoryEnv {
	return &MemoryEnv{
		Inductives: map[names.KerName]*MutualInductiveBody{},
		Constants:  map[names.KerName]*ConstantBody{},
		byBody:     common.NewMap[*ConstantBody, names.KerName](),
	}
}

func (e *MemoryEnv) AddInductive(kn names.KerName, mib *MutualInductiveBody) {
	e.Inductives[kn] = mib
}

func (e *MemoryEnv) AddConstant(kn names.KerName, cb *ConstantBody) {
	e.Constants[kn] = cb
	e.byBody.Add(cb, kn)
}

func (e *MemoryEnv) Lookup(kn names.KerName) LookupResult {
	if mib, ok := e.Inductives[kn]; ok {
		return LookupResult{Kind: LookupInductiveKind, Inductive: mib}
	}
	if cb, ok := e.Constants[kn]; ok {
		return LookupResult{Kind: LookupConstantKind, Constant: cb}
	}
	return LookupResult{Kind: LookupMissing}
}

func (e *MemoryEnv) LookupInductiveBody(ind names.Inductive) (*OneInductiveBody, *MutualInductiveBody, bool) {
	return LookupInductiveBody(e, ind)
}

// constDeps is the set of constant names t mentions directly (no
// transitive closure) — the "edges" function FindCycle/TopologicalSort
// need to treat a MemoryEnv's constants as a dependency graph, the same
// role check/sort.go's declDeps plays over top-level declarations.
func constDeps(t term.Term, out common.Set[names.KerName]) {
	switch t := t.(type) {
	case *term.TConst:
		out.Add(t.Name)
	case *term.TCast:
		constDeps(t.Term, out)
		constDeps(t.Type, out)
	case *term.TProd:
		constDeps(t.Type, out)
		constDeps(t.Body, out)
	case *term.TLambda:
		constDeps(t.Type, out)
		constDeps(t.Body, out)
	case *term.TLetIn:
		constDeps(t.Def, out)
		constDeps(t.Type, out)
		constDeps(t.Body, out)
	case *term.TApp:
		constDeps(t.Fn, out)
		for _, a := range t.Args {
			constDeps(a, out)
		}
	case *term.TCase:
		constDeps(t.Pred, out)
		constDeps(t.Discr, out)
		for _, b := range t.Branches {
			constDeps(b.Body, out)
		}
	case *term.TFix:
		for _, f := range t.Mfix {
			constDeps(f.Type, out)
			constDeps(f.Body, out)
		}
	case *term.TCoFix:
		for _, f := range t.Mfix {
			constDeps(f.Type, out)
			constDeps(f.Body, out)
		}
	case *term.TProj:
		constDeps(t.Term, out)
	}
}

func (e *MemoryEnv) constDepsOf(cb *ConstantBody) map[names.KerName]struct{} {
	out := common.NewSet[names.KerName]()
	constDeps(cb.Type, out)
	constDeps(cb.Body, out)
	return out
}

// FindCyclicConstants reports a cyclic chain of constant definitions, if
// one exists — a malformed environment that would make δ-reduction
// (reduce.Facade.WhdAll unfolding a TConst) loop forever instead of
// terminating. Grounded on check/sort.go's use of algos.FindCycle to catch
// cyclic top-level declarations before type-checking them.
func (e *MemoryEnv) FindCyclicConstants() []names.KerName {
	cycle := algos.FindCycle(e.Constants, e.constDepsOf)
	cycleNames := make([]names.KerName, len(cycle))
	for i, cb := range cycle {
		cycleNames[i] = e.byBody[cb]
	}
	return algos.Uniq(cycleNames)
}

// SortedConstantNames orders e's constants so every constant appears after
// everything its Type/Body mentions — the order a batch δ-unfolding pass
// (or a dump of the whole environment) should walk them in. Grounded on
// check/sort.go's use of algos.TopologicalSort to order declarations by
// dependency before checking them; panics if the environment is cyclic
// (callers should run FindCyclicConstants first).
func (e *MemoryEnv) SortedConstantNames() []names.KerName {
	if len(algos.FindCycle(e.Constants, e.constDepsOf)) > 0 {
		panic("env: cyclic constant definitions")
	}
	sorted := algos.TopologicalSort(e.Constants, e.constDepsOf)
	out := make([]names.KerName, len(sorted))
	for i, cb := range sorted {
		out[i] = e.byBody[cb]
	}
	return out
}
