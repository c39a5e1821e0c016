// Package subterm implements the subterm-spec lattice and glb, the
// uniform-parameter analysis, the recargs-tree builder and
// the match-return-type restriction. These are the pieces
// subterm_specif and the guarded-recursion walker (package guard) build
// on.
package subterm

import (
	"fmt"

	"github.com/yforster/metacoq-guard/wfpaths"
)

// Size is Loose or Strict. Loose is reserved for the recursive
// argument itself (or an equal term); Strict is for strict subterms.
type Size int

const (
	Loose Size = iota
	Strict
)

func (s Size) String() string {
	if s == Strict {
		return "Strict"
	}
	return "Loose"
}

// SizeGlb is Strict iff both inputs are Strict.
func SizeGlb(a, b Size) Size {
	if a == Strict && b == Strict {
		return Strict
	}
	return Loose
}

// Kind discriminates the three variants of Spec.
type Kind int

const (
	DeadCode Kind = iota
	NotSubterm
	SubtermKind
)

func (k Kind) String() string {
	switch k {
	case DeadCode:
		return "Dead_code"
	case NotSubterm:
		return "Not_subterm"
	case SubtermKind:
		return "Subterm"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Spec is subterm_spec: Dead_code for an absurd branch, Not_subterm for
// unknown/definitely-not-smaller, or Subterm(Size, Tree) carrying the
// recargs tree describing the term's inductive structure for further
// unfolding.
type Spec struct {
	Kind Kind
	Size Size
	Tree *wfpaths.Tree
}

var (
	DeadCodeSpec = Spec{Kind: DeadCode}
	NotSubtermVal = Spec{Kind: NotSubterm}
)

// MakeSubterm builds Subterm(size, tree), enforcing invariant (ii): a
// term whose tree unfolds to mk_norec carries no recursive structure and
// must be represented as Not_subterm instead.
func MakeSubterm(size Size, tree *wfpaths.Tree) Spec {
	if wfpaths.IsMkNorec(tree) {
		return NotSubtermVal
	}
	return Spec{Kind: SubtermKind, Size: size, Tree: tree}
}

func (s Spec) String() string {
	switch s.Kind {
	case SubtermKind:
		return fmt.Sprintf("Subterm(%v, %v)", s.Size, s.Tree)
	default:
		return s.Kind.String()
	}
}

// glb2 combines two specs: Dead_code is the identity; Not_subterm
// absorbs a genuine Subterm; two Subterms combine via SizeGlb on sizes
// and Inter on trees, failing only if the trees are incompatible.
func glb2(a, b Spec) (Spec, error) {
	if a.Kind == DeadCode {
		return b, nil
	}
	if b.Kind == DeadCode {
		return a, nil
	}
	if a.Kind == NotSubterm || b.Kind == NotSubterm {
		return NotSubtermVal, nil
	}
	tree, err := wfpaths.Inter(a.Tree, b.Tree)
	if err != nil {
		return Spec{}, fmt.Errorf("subterm: incompatible specs %v and %v: %w", a, b, err)
	}
	return MakeSubterm(SizeGlb(a.Size, b.Size), tree), nil
}

// Glb is the glb of a list of specs; the glb of the empty list is
// Dead_code.
func Glb(specs...Spec) (Spec, error) {
	result := DeadCodeSpec
	for _, s := range specs {
		g, err := glb2(result, s)
		if err != nil {
			return Spec{}, err
		}
		result = g
	}
	return result, nil
}

// SpecOfTree is spec_of_tree: Subterm(Strict, tree) unless tree is
// mk_norec, in which case Not_subterm.
func SpecOfTree(tree *wfpaths.Tree) Spec {
	return MakeSubterm(Strict, tree)
}
