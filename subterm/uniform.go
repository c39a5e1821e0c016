package subterm

import "github.com/yforster/metacoq-guard/term"

// ConstructorConclusion supplies what the uniform-parameter analysis
// needs from one constructor: the arguments applied to the inductive head
// in its conclusion ("I a1..ak"), and the constructor's own arity (so the
// parameter-slot range [n-p, n-1] can be computed from n = arity+npars).
type ConstructorConclusion struct {
	Arity int
	ConclArgs []term.Term
}

// UniformParamsOfBody computes "the number of uniform parameters of one
// body": the minimum, over all constructors, of how many leading
// conclusion arguments are exactly the corresponding parameter (by
// position, outermost first), capped at npars.
func UniformParamsOfBody(npars int, ctors []ConstructorConclusion) int {
	result := npars
	for _, c := range ctors {
		n := c.Arity + npars
		prefix := 0
		for i, a := range c.ConclArgs {
			want := n - 1 - i
			if want < n-npars {
				break // past the parameter-slot range: capped at npars
			}
			rel, ok := a.(*term.TRel)
			if !ok || rel.Index != want {
				break
			}
			prefix++
		}
		if prefix < result {
			result = prefix
		}
	}
	return result
}

// UniformParamsOfMutualBody is the rationale applied across a mutual
// block: the min, across bodies, of each body's own uniform-parameter
// count (itself already capped at npars).
func UniformParamsOfMutualBody(npars int, bodies [][]ConstructorConclusion) int {
	result := npars
	for _, ctors := range bodies {
		u := UniformParamsOfBody(npars, ctors)
		if u < result {
			result = u
		}
	}
	return result
}
