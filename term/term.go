// Package term is the term AST collaborator described in the guardedness
// checker's external interfaces: a small kernel calculus with de Bruijn
// indices, inductive types, pattern matching, (co)fixpoints and
// projections. It is consumed, never produced, by the checker packages
// (wfpaths, subterm, guard) — everything here is the concrete shape of the
// "Term AST" that those packages treat as an opaque collaborator.
package term

import (
	"fmt"
	"strings"

	"github.com/yforster/metacoq-guard/names"
)

// Term is the sum type of kernel terms. Every variant embeds TermBase and
// implements the unexported marker method, following the same pattern the
// checker's tree.Type/tree.Expr hierarchies use.
type Term interface {
	fmt.Stringer
	_Term()
}

type TermBase struct{}

func (TermBase) _Term() {}

// Name is a binder name; Anonymous binders print as "_" and never match a
// lookup (mirrors common.IgnoreIdent).
type Name struct {
	Value string
}

var Anonymous = Name{Value: "_"}

func (n Name) String() string {
	if n.Value == "" {
		return "_"
	}
	return n.Value
}

// Sort is deliberately coarse: the checker never branches on sort details,
// it only needs to print them (relevance/SProp handling is modeled but
// left inactive).
type Sort struct {
	Tag string // "Prop" | "SProp" | "Set" | "Type"
}

func (s Sort) String() string { return s.Tag }

// TRel is a de Bruijn index, 0 = innermost bound variable.
type TRel struct {
	TermBase
	Index int
}

func (t *TRel) String() string { return fmt.Sprintf("#%d", t.Index) }

// TVar is a named free variable. Not supported by subterm inference.
type TVar struct {
	TermBase
	Name string
}

func (t *TVar) String() string { return t.Name }

// TEvar is an existential variable. Not supported.
type TEvar struct {
	TermBase
	Id int
	Args []Term
}

func (t *TEvar) String() string { return fmt.Sprintf("?%d[%s]", t.Id, joinTerms(t.Args)) }

type TSort struct {
	TermBase
	Sort Sort
}

func (t *TSort) String() string { return t.Sort.String() }

type CastKind int

const (
	CastVM CastKind = iota
	CastNative
	CastDefault
)

// TCast must not occur after β/ι/ζ weak-head reduction.
type TCast struct {
	TermBase
	Term Term
	Kind CastKind
	Type Term
}

func (t *TCast) String() string { return fmt.Sprintf("(%v: %v)", t.Term, t.Type) }

type TProd struct {
	TermBase
	Name Name
	Type Term
	Body Term
}

func (t *TProd) String() string { return fmt.Sprintf("∀%v:%v, %v", t.Name, t.Type, t.Body) }

type TLambda struct {
	TermBase
	Name Name
	Type Term
	Body Term
}

func (t *TLambda) String() string { return fmt.Sprintf("λ%v:%v, %v", t.Name, t.Type, t.Body) }

type TLetIn struct {
	TermBase
	Name Name
	Def Term
	Type Term
	Body Term
}

func (t *TLetIn) String() string {
	return fmt.Sprintf("let %v := %v : %v in %v", t.Name, t.Def, t.Type, t.Body)
}

// TApp must not occur after decompose_app normalizes it (only un-decomposed
// raw terms use it); the walker treats a bare TApp after β/ι/ζ reduction as
// ill-formed.
type TApp struct {
	TermBase
	Fn Term
	Args []Term
}

func (t *TApp) String() string { return fmt.Sprintf("(%v %s)", t.Fn, joinTerms(t.Args)) }

type TConst struct {
	TermBase
	Name names.KerName
}

func (t *TConst) String() string { return t.Name.String() }

type TInd struct {
	TermBase
	Ind names.Inductive
}

func (t *TInd) String() string { return t.Ind.String() }

type TConstruct struct {
	TermBase
	Ctor names.Constructor
}

func (t *TConstruct) String() string { return t.Ctor.String() }

// CaseInfo records the inductive being matched on and its number of
// (uniform + non-uniform) parameters, so branch arities can be recovered
// without a fresh environment lookup.
type CaseInfo struct {
	Ind names.Inductive
	NPars int
}

// CaseBranch is one arm of a pattern match: Context lists the names bound
// to the constructor's arguments (outermost first) and Body is the branch
// term using them via ordinary de Bruijn indices, as if each entry in
// Context had been push_assum'd in order.
type CaseBranch struct {
	Context []Name
	Body Term
}

func (b CaseBranch) Arity() int { return len(b.Context) }

// TCase is a pattern match. Pred is the return-type function ("rtf"): a
// term of the shape λ(indices...).λ(discriminant: I...). body, i.e. an
// abstraction over the inductive's indices and the scrutinee.
type TCase struct {
	TermBase
	Info CaseInfo
	Pred Term
	Discr Term
	Branches []CaseBranch
}

func (t *TCase) String() string {
	return fmt.Sprintf("match %v return %v with %d branches end", t.Discr, t.Pred, len(t.Branches))
}

// FixDef is one body of a (co)fixpoint's mutual block.
type FixDef struct {
	Name Name
	Type Term
	Body Term
	// Rarg is the 0-based index of the structurally-decreasing argument.
	// Meaningless (left 0) for TCoFix bodies.
	Rarg int
}

type TFix struct {
	TermBase
	Mfix []FixDef
	Index int
}

func (t *TFix) String() string {
	return fmt.Sprintf("fix[%d] %s", t.Index, joinFixNames(t.Mfix))
}

type TCoFix struct {
	TermBase
	Mfix []FixDef
	Index int
}

func (t *TCoFix) String() string {
	return fmt.Sprintf("cofix[%d] %s", t.Index, joinFixNames(t.Mfix))
}

type TProj struct {
	TermBase
	Proj names.Projection
	Term Term
}

func (t *TProj) String() string { return fmt.Sprintf("%v.(%v)", t.Term, t.Proj) }

func joinTerms(ts []Term) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("%v", t)
	}
	return strings.Join(parts, " ")
}

func joinFixNames(mfix []FixDef) string {
	parts := make([]string, len(mfix))
	for i, f := range mfix {
		parts[i] = f.Name.String()
	}
	return strings.Join(parts, " ")
}
