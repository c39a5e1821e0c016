// Package wfpaths implements wf_paths, the regular-tree library used to
// track guarded recursion: possibly-cyclic trees labelled with recarg
// tags, with
// equality, inclusion and intersection defined up to unfolding. The
// representation follows the classic "tie the knot with an explicit Rec
// node" encoding (depth/index back-references resolved against an
// explicit array of sibling bodies), the same style
// wdamron-poly/types.Recursive/RecursiveLink ties a mutually-recursive
// type group together — except here the back-reference carries an extra
// "depth" so a tree built for one inductive can be re-lifted and embedded
// inside a different, outer mk_rec family without capture (the nested
// inductives).
package wfpaths

import "fmt"

// RecargKind is the tag attached to a regular-tree node.
type RecargKind int

const (
	// Norec marks a non-recursive position.
	Norec RecargKind = iota
	// Mrec marks a direct mutual-recursive occurrence of an inductive.
	Mrec
	// Imbr marks a nested/imbricated occurrence inside another inductive.
	Imbr
)

func (k RecargKind) String() string {
	switch k {
	case Norec:
		return "Norec"
	case Mrec:
		return "Mrec"
	case Imbr:
		return "Imbr"
	default:
		return fmt.Sprintf("RecargKind(%d)", int(k))
	}
}

// Recarg is one node's label. Ind is meaningless (zero value) when Kind is
// Norec.
type Recarg struct {
	Kind RecargKind
	Ind IndRef
}

// IndRef is kept generic over the inductive-identity type so this package
// does not need to import names (avoiding a dependency edge the regular
// tree library has no real use for beyond equality/printing); names.Inductive
// satisfies it.
type IndRef interface {
	SameInductive(other IndRef) bool
	String() string
}

var NorecLabel = Recarg{Kind: Norec}

func MrecLabel(ind IndRef) Recarg { return Recarg{Kind: Mrec, Ind: ind} }
func ImbrLabel(ind IndRef) Recarg { return Recarg{Kind: Imbr, Ind: ind} }

func (r Recarg) String() string {
	if r.Kind == Norec {
		return "Norec"
	}
	return fmt.Sprintf("%v(%v)", r.Kind, r.Ind)
}

func (r Recarg) Equal(o Recarg) bool {
	if r.Kind != o.Kind {
		return false
	}
	if r.Kind == Norec {
		return true
	}
	return r.Ind.SameInductive(o.Ind)
}

func sameInd(a, b IndRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.SameInductive(b)
}

// Intersect implements the recarg intersection table: Norec with Norec,
// Mrec/Imbr pairs of the same inductive (in either order), and Imbr/Imbr
// of the same inductive are all compatible. Every combination not listed
// there is incompatible and returns an error.
func (r Recarg) Intersect(o Recarg) (Recarg, error) {
	switch {
	case r.Kind == Norec && o.Kind == Norec:
		return NorecLabel, nil
	case r.Kind == Mrec && o.Kind == Mrec && sameInd(r.Ind, o.Ind):
		return r, nil
	case r.Kind == Mrec && o.Kind == Imbr && sameInd(r.Ind, o.Ind):
		return r, nil
	case r.Kind == Imbr && o.Kind == Mrec && sameInd(r.Ind, o.Ind):
		return o, nil
	case r.Kind == Imbr && o.Kind == Imbr && sameInd(r.Ind, o.Ind):
		return r, nil
	default:
		return Recarg{}, fmt.Errorf("wfpaths: incompatible recargs %v and %v", r, o)
	}
}
