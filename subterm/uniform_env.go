package subterm

import "github.com/yforster/metacoq-guard/env"

// UniformParamsOfMib extracts the ConstructorConclusion view
// UniformParamsOfMutualBody needs straight out of an env.MutualInductiveBody.
func UniformParamsOfMib(mib *env.MutualInductiveBody) int {
	bodies := make([][]ConstructorConclusion, len(mib.Bodies))
	for i, body := range mib.Bodies {
		ctors := make([]ConstructorConclusion, len(body.Ctors))
		for j, c := range body.Ctors {
			ctors[j] = ConstructorConclusion{Arity: c.Arity(), ConclArgs: c.ConclArgs}
		}
		bodies[i] = ctors
	}
	return UniformParamsOfMutualBody(mib.NPars, bodies)
}
