package guard

import (
	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/subterm"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// GuardEnv is G (/): the per-binder subterm-spec context, growing
// as the walker/inferencer descends under lambdas, plus the dB threshold
// marking where the tracked fixes' own binders sit (RelMinFix).
type GuardEnv struct {
	RelMinFix int
	Local []subterm.Spec // index 0 = innermost
}

// Push extends G with one more innermost binder's spec, bumping RelMinFix
// so it keeps pointing at the same absolute fix binders once one more
// binder sits between them and the new current position.
func (g GuardEnv) Push(spec subterm.Spec) GuardEnv {
	return GuardEnv{RelMinFix: g.RelMinFix + 1, Local: common.PushFront(g.Local, spec)}
}

// PushMany pushes specs in order, specs[0] ending up outermost among the
// new entries (mirrors env.Context.PushMany).
func (g GuardEnv) PushMany(specs []subterm.Spec) GuardEnv {
	for _, s := range specs {
		g = g.Push(s)
	}
	return g
}

// LookupSubterm is lookup_subterm: any index not actually covered
// by Local defaults to Not_subterm.
func (g GuardEnv) LookupSubterm(k int) subterm.Spec {
	if k >= 0 && k < len(g.Local) {
		return g.Local[k]
	}
	return subterm.NotSubtermVal
}

// FixGroup bundles the per-fix bookkeeping check_rec_call needs (the
// num_fixes, rec_args, trees), constant for the whole CheckFix invocation
// that spawned it.
type FixGroup struct {
	NumFixes int
	RecArgs []int
	Trees []*wfpaths.Tree
}

// FixIndex reports whether dB index p (relative to the current position)
// points at one of the tracked fixes, and if so, which one (0-based).
func (fg FixGroup) FixIndex(g GuardEnv, p int) (int, bool) {
	if p < g.RelMinFix || p >= g.RelMinFix+fg.NumFixes {
		return 0, false
	}
	return p - g.RelMinFix, true
}
