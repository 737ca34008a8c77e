package types

import (
	"fmt"
	"strings"
)

// Constraint is the stored form of a refinement predicate.  Range
// constraints, comparisons, equalities, and conjunctions of those are
// represented structurally so the checker can evaluate them at compile time
// and subsume one refinement under another.  Anything else is opaque and
// falls back to a runtime check at the assignment site.
type Constraint interface {
	ConstraintRepr() string
}

// ConstValue is a compile-time constant value used by constraint evaluation.
type ConstValue struct {
	Kind int

	Int  int64
	Dec  float64
	Str  string
	Bool bool
}

// Enumeration of constant value kinds.
const (
	ConstInt = iota
	ConstDec
	ConstStr
	ConstBool
)

// IntValue constructs an integer constant.
func IntValue(v int64) ConstValue { return ConstValue{Kind: ConstInt, Int: v} }

// DecValue constructs a decimal constant.
func DecValue(v float64) ConstValue { return ConstValue{Kind: ConstDec, Dec: v} }

// StrValue constructs a string constant.
func StrValue(v string) ConstValue { return ConstValue{Kind: ConstStr, Str: v} }

// BoolValue constructs a boolean constant.
func BoolValue(v bool) ConstValue { return ConstValue{Kind: ConstBool, Bool: v} }

// Repr renders the constant for diagnostics.
func (cv ConstValue) Repr() string {
	switch cv.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", cv.Int)
	case ConstDec:
		return fmt.Sprintf("%g", cv.Dec)
	case ConstStr:
		return fmt.Sprintf("%q", cv.Str)
	default:
		return fmt.Sprintf("%t", cv.Bool)
	}
}

// numeric returns the constant as a float for ordered comparisons.
func (cv ConstValue) numeric() (float64, bool) {
	switch cv.Kind {
	case ConstInt:
		return float64(cv.Int), true
	case ConstDec:
		return cv.Dec, true
	default:
		return 0, false
	}
}

// -----------------------------------------------------------------------------

// RangeConstraint is an inclusive numeric range, eg. `1..65535`.
type RangeConstraint struct {
	Lo, Hi int64
}

func (rc RangeConstraint) ConstraintRepr() string {
	return fmt.Sprintf("%d..%d", rc.Lo, rc.Hi)
}

// CmpConstraint compares the refined value against a constant bound:
// `self Op Bound`.
type CmpConstraint struct {
	// Op is one of <, >, <=, >=, !=.
	Op    string
	Bound ConstValue
}

func (cc CmpConstraint) ConstraintRepr() string {
	return "self " + cc.Op + " " + cc.Bound.Repr()
}

// EqConstraint restricts the refined value to a single constant.
type EqConstraint struct {
	Value ConstValue
}

func (ec EqConstraint) ConstraintRepr() string {
	return "self == " + ec.Value.Repr()
}

// AndConstraint is the conjunction of its parts.
type AndConstraint struct {
	Conjuncts []Constraint
}

func (ac AndConstraint) ConstraintRepr() string {
	parts := make([]string, len(ac.Conjuncts))
	for i, c := range ac.Conjuncts {
		parts[i] = c.ConstraintRepr()
	}
	return strings.Join(parts, " && ")
}

// OpaqueConstraint wraps a constraint expression the structural forms cannot
// represent.  The original AST expression is retained so the emitter can
// insert a runtime check; compile-time evaluation and subsumption both
// decline it.
type OpaqueConstraint struct {
	// Expr is the constraint's ast.Expr.  It is typed as interface{} to keep
	// this package free of an AST dependency.
	Expr interface{}

	// Text is the rendered source text of the constraint for diagnostics.
	Text string
}

func (oc OpaqueConstraint) ConstraintRepr() string { return oc.Text }

// -----------------------------------------------------------------------------

// EvalConstraint evaluates a constraint against a known constant value.  The
// second result is false when the constraint cannot be decided at compile
// time (opaque constraints, mismatched value kinds).
func EvalConstraint(c Constraint, v ConstValue) (holds, decided bool) {
	switch c := c.(type) {
	case RangeConstraint:
		n, ok := v.numeric()
		if !ok {
			return false, false
		}
		return n >= float64(c.Lo) && n <= float64(c.Hi), true

	case CmpConstraint:
		return evalCmp(c.Op, v, c.Bound)

	case EqConstraint:
		return evalCmp("==", v, c.Value)

	case AndConstraint:
		for _, sub := range c.Conjuncts {
			holds, decided := EvalConstraint(sub, v)
			if !decided {
				return false, false
			}
			if !holds {
				return false, true
			}
		}
		return true, true

	default:
		return false, false
	}
}

func evalCmp(op string, lhs, rhs ConstValue) (holds, decided bool) {
	if lhs.Kind == ConstStr && rhs.Kind == ConstStr {
		switch op {
		case "==":
			return lhs.Str == rhs.Str, true
		case "!=":
			return lhs.Str != rhs.Str, true
		}
		return false, false
	}

	ln, lok := lhs.numeric()
	rn, rok := rhs.numeric()
	if !lok || !rok {
		return false, false
	}

	switch op {
	case "<":
		return ln < rn, true
	case ">":
		return ln > rn, true
	case "<=":
		return ln <= rn, true
	case ">=":
		return ln >= rn, true
	case "==":
		return ln == rn, true
	case "!=":
		return ln != rn, true
	default:
		return false, false
	}
}
