package env

import (
	"github.com/yforster/metacoq-guard/common"
	"github.com/yforster/metacoq-guard/term"
)

// Assum is one local assumption: a bound name and its type, the type
// expressed in the context that existed right before this assumption was
// pushed (the usual de Bruijn convention).
type Assum struct {
	Name term.Name
	Type term.Term
}

// Context is a local typing context Γ, innermost binder first — Context[0]
// is what TRel{Index: 0} resolves to. A plain slice rather than a
// parent-chain structure, since positions (not names) are what the
// calculus indexes by.
type Context []Assum

// Push adds a new innermost assumption.
func (c Context) Push(a Assum) Context {
	return Context(common.PushFront([]Assum(c), a))
}

// PushMany pushes a batch of assumptions in order: assums[0] ends up
// outermost among the new entries, assums[len-1] innermost (i.e. each one
// is pushed on top of the previous, matching iterating push_rel_context).
func (c Context) PushMany(assums []Assum) Context {
	for _, a := range assums {
		c = c.Push(a)
	}
	return c
}

// At returns the assumption TRel{Index: idx} resolves to.
func (c Context) At(idx int) (Assum, bool) {
	if idx < 0 || idx >= len(c) {
		return Assum{}, false
	}
	return c[idx], true
}

// Len is the number of bound variables currently in scope.
func (c Context) Len() int { return len(c) }
