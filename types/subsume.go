package types

import "math"

// Implies reports whether constraint `a` structurally implies constraint
// `b`: every value satisfying `a` also satisfies `b`.  Only range
// constraints, comparisons, equalities, and conjunctions are subsumed;
// anything involving an opaque constraint is not, and the caller falls back
// to a runtime check.
func Implies(a, b Constraint) bool {
	// A conjunction on the right must be implied conjunct by conjunct.
	if bAnd, ok := b.(AndConstraint); ok {
		for _, sub := range bAnd.Conjuncts {
			if !Implies(a, sub) {
				return false
			}
		}
		return true
	}

	// A conjunction on the left implies b if any conjunct does.
	if aAnd, ok := a.(AndConstraint); ok {
		for _, sub := range aAnd.Conjuncts {
			if Implies(sub, b) {
				return true
			}
		}
		return false
	}

	aLo, aHi, aOK := bounds(a)
	if !aOK {
		// Equality on the left: evaluate b directly.
		if aEq, ok := a.(EqConstraint); ok {
			holds, decided := EvalConstraint(b, aEq.Value)
			return decided && holds
		}
		return false
	}

	bLo, bHi, bOK := bounds(b)
	if !bOK {
		return false
	}

	return aLo >= bLo && aHi <= bHi
}

// bounds extracts the closed numeric interval a constraint admits, when it
// has one.
func bounds(c Constraint) (lo, hi float64, ok bool) {
	switch c := c.(type) {
	case RangeConstraint:
		return float64(c.Lo), float64(c.Hi), true

	case CmpConstraint:
		n, numeric := c.Bound.numeric()
		if !numeric {
			return 0, 0, false
		}
		switch c.Op {
		case "<":
			return math.Inf(-1), n - 1, true
		case "<=":
			return math.Inf(-1), n, true
		case ">":
			return n + 1, math.Inf(1), true
		case ">=":
			return n, math.Inf(1), true
		default:
			return 0, 0, false
		}

	case EqConstraint:
		n, numeric := c.Value.numeric()
		if !numeric {
			return 0, 0, false
		}
		return n, n, true

	default:
		return 0, 0, false
	}
}

// SubsumedBy reports whether a value of type `from` is accepted where `to`
// is expected without a runtime check: either the types are equal after
// name resolution, or both are refinements whose constraints are related by
// Implies over a common base.
func SubsumedBy(from, to Type) bool {
	toRef, toIsRef := to.(RefinedType)
	if !toIsRef {
		return Equal(StripRefinements(from), StripRefinements(to))
	}

	fromRef, fromIsRef := from.(RefinedType)
	if !fromIsRef {
		return false
	}
	if !Equal(StripRefinements(fromRef.Base), StripRefinements(toRef.Base)) {
		return false
	}

	return Implies(fromRef.Constraint, toRef.Constraint)
}
