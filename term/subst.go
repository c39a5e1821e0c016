package term

// Lift shifts every TRel with index >= from up by n. It is the standard de
// Bruijn "weakening" operation, needed whenever a term is moved under new
// binders without otherwise changing its meaning — e.g. wfpaths.Lift
// mirrors this exact recursion shape one level up, over recarg trees
// instead of terms.
func Lift(n, from int, t Term) Term {
	if n == 0 {
		return t
	}
	switch t := t.(type) {
	case *TRel:
		if t.Index >= from {
			return &TRel{Index: t.Index + n}
		}
		return t
	case *TVar, *TSort, *TConst, *TInd, *TConstruct:
		return t
	case *TEvar:
		args := make([]Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = Lift(n, from, a)
		}
		return &TEvar{Id: t.Id, Args: args}
	case *TCast:
		return &TCast{Term: Lift(n, from, t.Term), Kind: t.Kind, Type: Lift(n, from, t.Type)}
	case *TProd:
		return &TProd{Name: t.Name, Type: Lift(n, from, t.Type), Body: Lift(n, from+1, t.Body)}
	case *TLambda:
		return &TLambda{Name: t.Name, Type: Lift(n, from, t.Type), Body: Lift(n, from+1, t.Body)}
	case *TLetIn:
		return &TLetIn{Name: t.Name, Def: Lift(n, from, t.Def), Type: Lift(n, from, t.Type), Body: Lift(n, from+1, t.Body)}
	case *TApp:
		args := make([]Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = Lift(n, from, a)
		}
		return &TApp{Fn: Lift(n, from, t.Fn), Args: args}
	case *TCase:
		branches := make([]CaseBranch, len(t.Branches))
		for i, b := range t.Branches {
			branches[i] = CaseBranch{Context: b.Context, Body: Lift(n, from+len(b.Context), b.Body)}
		}
		return &TCase{Info: t.Info, Pred: Lift(n, from, t.Pred), Discr: Lift(n, from, t.Discr), Branches: branches}
	case *TFix:
		return &TFix{Mfix: liftMfix(n, from, t.Mfix), Index: t.Index}
	case *TCoFix:
		return &TCoFix{Mfix: liftMfix(n, from, t.Mfix), Index: t.Index}
	case *TProj:
		return &TProj{Proj: t.Proj, Term: Lift(n, from, t.Term)}
	default:
		panic("term.Lift: unreachable")
	}
}

func liftMfix(n, from int, mfix []FixDef) []FixDef {
	out := make([]FixDef, len(mfix))
	bodyFrom := from + len(mfix)
	for i, f := range mfix {
		out[i] = FixDef{Name: f.Name, Type: Lift(n, from, f.Type), Body: Lift(n, bodyFrom, f.Body), Rarg: f.Rarg}
	}
	return out
}

// SubstN replaces TRel(from), TRel(from+1), ..., TRel(from+len(subst)-1)
// (read as a stack with subst[0] replacing the *innermost* of that range,
// matching Rel indexing) with the corresponding entry of subst, lifted by
// the number of intervening binders, and shifts every other free TRel down
// by len(subst) to account for the bindings being consumed.
func SubstN(t Term, from int, subst []Term) Term {
	n := len(subst)
	if n == 0 {
		return t
	}
	switch t := t.(type) {
	case *TRel:
		if t.Index >= from && t.Index < from+n {
			return Lift(from, 0, subst[t.Index-from])
		}
		if t.Index >= from+n {
			return &TRel{Index: t.Index - n}
		}
		return t
	case *TVar, *TSort, *TConst, *TInd, *TConstruct:
		return t
	case *TEvar:
		args := make([]Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = SubstN(a, from, subst)
		}
		return &TEvar{Id: t.Id, Args: args}
	case *TCast:
		return &TCast{Term: SubstN(t.Term, from, subst), Kind: t.Kind, Type: SubstN(t.Type, from, subst)}
	case *TProd:
		return &TProd{Name: t.Name, Type: SubstN(t.Type, from, subst), Body: SubstN(t.Body, from+1, subst)}
	case *TLambda:
		return &TLambda{Name: t.Name, Type: SubstN(t.Type, from, subst), Body: SubstN(t.Body, from+1, subst)}
	case *TLetIn:
		return &TLetIn{Name: t.Name, Def: SubstN(t.Def, from, subst), Type: SubstN(t.Type, from, subst), Body: SubstN(t.Body, from+1, subst)}
	case *TApp:
		args := make([]Term, len(t.Args))
		for i, a := range t.Args {
			args[i] = SubstN(a, from, subst)
		}
		return &TApp{Fn: SubstN(t.Fn, from, subst), Args: args}
	case *TCase:
		branches := make([]CaseBranch, len(t.Branches))
		for i, b := range t.Branches {
			branches[i] = CaseBranch{Context: b.Context, Body: SubstN(b.Body, from+len(b.Context), subst)}
		}
		return &TCase{Info: t.Info, Pred: SubstN(t.Pred, from, subst), Discr: SubstN(t.Discr, from, subst), Branches: branches}
	case *TFix:
		return &TFix{Mfix: substMfix(t.Mfix, from, subst), Index: t.Index}
	case *TCoFix:
		return &TCoFix{Mfix: substMfix(t.Mfix, from, subst), Index: t.Index}
	case *TProj:
		return &TProj{Proj: t.Proj, Term: SubstN(t.Term, from, subst)}
	default:
		panic("term.SubstN: unreachable")
	}
}

func substMfix(mfix []FixDef, from int, subst []Term) []FixDef {
	out := make([]FixDef, len(mfix))
	bodyFrom := from + len(mfix)
	for i, f := range mfix {
		out[i] = FixDef{Name: f.Name, Type: SubstN(f.Type, from, subst), Body: SubstN(f.Body, bodyFrom, subst), Rarg: f.Rarg}
	}
	return out
}

// Subst1 substitutes a single term for TRel(0), as β-reduction does.
func Subst1(t Term, repl Term) Term {
	return SubstN(t, 0, []Term{repl})
}

// AppTerm builds an application, collapsing nested TApp heads the way a
// smart constructor would (mirrors decompose_app/mkApp duality used
// throughout the reducer and the walker).
func AppTerm(fn Term, args []Term) Term {
	if len(args) == 0 {
		return fn
	}
	if inner, ok := fn.(*TApp); ok {
		allArgs := make([]Term, 0, len(inner.Args)+len(args))
		allArgs = append(allArgs, inner.Args...)
		allArgs = append(allArgs, args...)
		return &TApp{Fn: inner.Fn, Args: allArgs}
	}
	return &TApp{Fn: fn, Args: args}
}

// DecomposeApp splits t into its head and the (possibly empty) list of
// arguments applied to it.
func DecomposeApp(t Term) (head Term, args []Term) {
	if app, ok := t.(*TApp); ok {
		return app.Fn, app.Args
	}
	return t, nil
}

// InstantiateFixBody substitutes the whole mutual block's own TFix/TCoFix
// nodes for the internal back-references used by its bodies, producing the
// unfolded body of the ix-th component — the fixpoint-unfolding step that
// both the reducer and subterm_specif's "mark the current fix as Subterm"
// trick rely on conceptually (though the latter never materializes it).
func InstantiateFixBody(mfix []FixDef, ix int, makeSelf func(j int) Term) Term {
	n := len(mfix)
	selves := make([]Term, n)
	for j := 0; j < n; j++ {
		selves[j] = makeSelf(j)
	}
	// The innermost binder, TRel(0), stands for the last fix in the block,
	// selves[n-1]; SubstN expects subst[0] to replace TRel(from).
	rev := make([]Term, n)
	for j := 0; j < n; j++ {
		rev[j] = selves[n-1-j]
	}
	return SubstN(mfix[ix].Body, 0, rev)
}
