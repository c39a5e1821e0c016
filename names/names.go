// Package names defines the kernel-level naming scheme shared by the term,
// environment and guardedness packages: mutual inductive names, the index
// of a body inside its mutual block, and constructor/constant references.
package names

import (
	"fmt"

	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/wfpaths"
)

// KerName is a fully-resolved kernel name, e.g. a constant or inductive
// name as it appears in the global environment.
type KerName = common.Identifier

// Recursivity classifies a mutual inductive block. Only Finite inductives
// may be the target of a structurally-decreasing fixpoint (see
// guard.CheckFix / inductive_of_mutfix).
type Recursivity int

const (
	Finite Recursivity = iota
	CoFinite
	BiFinite
)

func (r Recursivity) String() string {
	switch r {
	case Finite:
		return "Finite"
	case CoFinite:
		return "CoFinite"
	case BiFinite:
		return "BiFinite"
	default:
		return fmt.Sprintf("Recursivity(%d)", int(r))
	}
}

// Inductive names one body of a (possibly mutual) inductive block: MutInd
// identifies the block in the global environment, Ind is the 0-based index
// of the body within the block.
type Inductive struct {
	MutInd KerName
	Ind    int
}

func (i Inductive) String() string {
	return fmt.Sprintf("%v#%d", i.MutInd, i.Ind)
}

func (i Inductive) Equal(o Inductive) bool {
	return i.MutInd == o.MutInd && i.Ind == o.Ind
}

// SameInductive implements wfpaths.IndRef so an Inductive can label a
// Mrec/Imbr recarg node without wfpaths needing to import names.
func (i Inductive) SameInductive(other wfpaths.IndRef) bool {
	o, ok := other.(Inductive)
	return ok && i.Equal(o)
}

// Constructor names one constructor of an Inductive. Ctor is 0-based.
type Constructor struct {
	Ind  Inductive
	Ctor int
}

func (c Constructor) String() string {
	return fmt.Sprintf("%v.%d", c.Ind, c.Ctor)
}

// Projection names a primitive projection out of a record: the inductive it
// projects from, and the 0-based argument position.
type Projection struct {
	Ind Inductive
	Arg int
}

func (p Projection) String() string {
	return fmt.Sprintf("%v.proj%d", p.Ind, p.Arg)
}
