package types

// Substitution maps generic parameter names to the types they were unified
// with during a single inference.
type Substitution map[string]Type

// Unify attempts to unify an expected type against an actual type, recording
// generic parameter bindings in the substitution.  Refinements are erased
// before unification: a refined value unifies wherever its base does, with
// the constraint handled separately by the refinement checks.  Nominal types
// (algebraic, record) are rigid: they unify only with themselves.
func Unify(expected, actual Type, sub Substitution) bool {
	expected = StripRefinements(expected)
	actual = StripRefinements(actual)

	// The poison type unifies with anything to prevent cascades.
	if IsUnknown(expected) || IsUnknown(actual) {
		return true
	}

	// Never unifies with any expected type: a diverging arm fits anywhere.
	if _, ok := actual.(NeverType); ok {
		return true
	}

	if pv, ok := expected.(ParamType); ok {
		return bindParam(pv.Name, actual, sub)
	}
	if pv, ok := actual.(ParamType); ok {
		return bindParam(pv.Name, expected, sub)
	}

	switch expected := expected.(type) {
	case PrimitiveType:
		actualPT, ok := actual.(PrimitiveType)
		if !ok {
			return false
		}
		ep := EraseStorageMods(expected).(PrimitiveType)
		ap := EraseStorageMods(actualPT).(PrimitiveType)
		return ep.Name == ap.Name && modsEqual(ep.Mods, ap.Mods)

	case UnitType:
		_, ok := actual.(UnitType)
		return ok

	case *AlgebraicType:
		actual, ok := actual.(*AlgebraicType)
		return ok && expected.Name == actual.Name

	case *RecordType:
		actual, ok := actual.(*RecordType)
		return ok && expected.Name == actual.Name

	case *ListType:
		actual, ok := actual.(*ListType)
		return ok && Unify(expected.Elem, actual.Elem, sub)

	case *AppliedType:
		actual, ok := actual.(*AppliedType)
		if !ok || expected.Name != actual.Name || len(expected.Args) != len(actual.Args) {
			return false
		}
		for i := range expected.Args {
			if !Unify(expected.Args[i], actual.Args[i], sub) {
				return false
			}
		}
		return true

	case *FuncType:
		actual, ok := actual.(*FuncType)
		if !ok || len(expected.Params) != len(actual.Params) || expected.CanFail != actual.CanFail {
			return false
		}
		for i := range expected.Params {
			if !Unify(expected.Params[i], actual.Params[i], sub) {
				return false
			}
		}
		return Unify(expected.Return, actual.Return, sub)

	default:
		return Equal(expected, actual)
	}
}

// bindParam records a generic parameter binding, unifying against any
// existing binding for the same parameter.
func bindParam(name string, t Type, sub Substitution) bool {
	if existing, ok := sub[name]; ok {
		return Unify(existing, t, sub)
	}
	sub[name] = t
	return true
}

// Substitute replaces every generic parameter in a type with its binding.
// Unbound parameters are left rigid.
func Substitute(t Type, sub Substitution) Type {
	switch t := t.(type) {
	case ParamType:
		if bound, ok := sub[t.Name]; ok {
			return bound
		}
		return t

	case RefinedType:
		return RefinedType{Name: t.Name, Base: Substitute(t.Base, sub), Constraint: t.Constraint}

	case *ListType:
		return &ListType{Elem: Substitute(t.Elem, sub)}

	case *AppliedType:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = Substitute(a, sub)
		}
		return &AppliedType{Name: t.Name, Args: args}

	case *FuncType:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = Substitute(p, sub)
		}
		return &FuncType{Verb: t.Verb, Params: params, Return: Substitute(t.Return, sub), CanFail: t.CanFail}

	default:
		return t
	}
}

// ContainsParams reports whether a type mentions any generic parameter.
func ContainsParams(t Type) bool {
	switch t := t.(type) {
	case ParamType:
		return true
	case RefinedType:
		return ContainsParams(t.Base)
	case *ListType:
		return ContainsParams(t.Elem)
	case *AppliedType:
		for _, a := range t.Args {
			if ContainsParams(a) {
				return true
			}
		}
		return false
	case *FuncType:
		for _, p := range t.Params {
			if ContainsParams(p) {
				return true
			}
		}
		return ContainsParams(t.Return)
	default:
		return false
	}
}
