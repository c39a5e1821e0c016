// Package env is the global-environment collaborator: lookup of
// inductive and constant definitions, plus the small amount of local
// context bookkeeping that the reducer and
// the checker packages need layered on top of it.
package env

import (
	"github.com/yforster/metacoq-guard/names"
	"github.com/yforster/metacoq-guard/term"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// ConstructorBody is one constructor of a OneInductiveBody. ArgTypes are
// the types of its arguments, each one a term in the context formed by the
// inductive's parameters, the sibling bodies of the mutual block (as
// TRel-bound self-references) and the preceding arguments, outermost
// first — exactly the context build_recargs_constructors walks.
type ConstructorBody struct {
	Name string
	ArgTypes []term.Term
	// ConclArgs are the arguments applied to the inductive head in this
	// constructor's conclusion ("I a1..ak"), in the context formed by the
	// block's parameters (outermost) followed by this constructor's own
	// ArgTypes (innermost) — exactly what the uniform-parameter walk
	// inspects.
	ConclArgs []term.Term
}

// Arity is the number of arguments the constructor takes (not counting
// parameters, which are implicit in ArgTypes' context).
func (c ConstructorBody) Arity() int { return len(c.ArgTypes) }

// OneInductiveBody is a single body of a (mutual) inductive block.
type OneInductiveBody struct {
	Name string
	Ctors []ConstructorBody
	// RecArgsTree is the *initial* recargs tree for this body, as produced
	// externally by the positivity checker. It seeds
	// every call into subterm.BuildRecargsNested for this inductive.
	RecArgsTree *wfpaths.Tree
}

// MutualInductiveBody is a full (possibly singleton) mutual inductive
// block.
type MutualInductiveBody struct {
	NPars int
	Bodies []OneInductiveBody
	Recursivity names.Recursivity
}

// ConstantBody is a constant definition. Opaqueness is not modeled: Body
// is always present and transparent.
type ConstantBody struct {
	Name string
	Type term.Term
	Body term.Term
}

// LookupKind discriminates the three-way result of Env.Lookup.
type LookupKind int

const (
	LookupMissing LookupKind = iota
	LookupInductiveKind
	LookupConstantKind
)

// LookupResult is the tagged union a global lookup returns: exactly one of
// Inductive or Constant is populated, according to Kind.
type LookupResult struct {
	Kind LookupKind
	Inductive *MutualInductiveBody
	Constant *ConstantBody
}

// Env is the global environment contract (Σ). The rest of this module only
// ever reads from it.
type Env interface {
	Lookup(kn names.KerName) LookupResult
	LookupInductiveBody(ind names.Inductive) (*OneInductiveBody, *MutualInductiveBody, bool)
}

// LookupInductiveBody is a convenience shared by every Env implementation:
// resolve the mutual block, then pick out the ind.Ind-th body.
func LookupInductiveBody(e Env, ind names.Inductive) (*OneInductiveBody, *MutualInductiveBody, bool) {
	res := e.Lookup(ind.MutInd)
	if res.Kind != LookupInductiveKind {
		return nil, nil, false
	}
	mib := res.Inductive
	if ind.Ind < 0 || ind.Ind >= len(mib.Bodies) {
		return nil, nil, false
	}
	return &mib.Bodies[ind.Ind], mib, true
}
