package resolve

import (
	"fmt"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/types"
)

// ConstraintOf converts a refinement constraint expression into its stored
// structural form.  Ranges, comparisons against constants, equalities, and
// conjunctions of those become structural constraints the checker can
// evaluate and subsume; everything else stays opaque and is checked at
// runtime.
func ConstraintOf(expr ast.Expr) types.Constraint {
	switch expr := expr.(type) {
	case *ast.Range:
		lo, loOK := intLitValue(expr.Lo)
		hi, hiOK := intLitValue(expr.Hi)
		if loOK && hiOK {
			return types.RangeConstraint{Lo: lo, Hi: hi}
		}

	case *ast.Binary:
		switch expr.Op {
		case "&&":
			return types.AndConstraint{Conjuncts: []types.Constraint{
				ConstraintOf(expr.Lhs),
				ConstraintOf(expr.Rhs),
			}}
		case "<", ">", "<=", ">=", "!=", "==":
			if isSelfRef(expr.Lhs) {
				if bound, ok := constLitValue(expr.Rhs); ok {
					if expr.Op == "==" {
						return types.EqConstraint{Value: bound}
					}
					return types.CmpConstraint{Op: expr.Op, Bound: bound}
				}
			}
		}
	}

	return types.OpaqueConstraint{Expr: expr, Text: ExprText(expr)}
}

// isSelfRef reports whether an expression is the implicit refined value:
// the identifier `self` or a bare parameter-like identifier.
func isSelfRef(expr ast.Expr) bool {
	id, ok := expr.(*ast.Identifier)
	return ok && (id.Name == "self" || id.Sym == nil)
}

func intLitValue(expr ast.Expr) (int64, bool) {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return expr.Value, true
	case *ast.Unary:
		if expr.Op == "-" {
			if v, ok := intLitValue(expr.Operand); ok {
				return -v, true
			}
		}
	}
	return 0, false
}

func constLitValue(expr ast.Expr) (types.ConstValue, bool) {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return types.IntValue(expr.Value), true
	case *ast.DecimalLit:
		return types.DecValue(expr.Value), true
	case *ast.StringLit:
		return types.StrValue(expr.Value), true
	case *ast.BoolLit:
		return types.BoolValue(expr.Value), true
	case *ast.Unary:
		if expr.Op == "-" {
			if v, ok := constLitValue(expr.Operand); ok {
				switch v.Kind {
				case types.ConstInt:
					return types.IntValue(-v.Int), true
				case types.ConstDec:
					return types.DecValue(-v.Dec), true
				}
			}
		}
	}
	return types.ConstValue{}, false
}

// ExprText renders an expression back into approximate source text for
// diagnostics and opaque-constraint storage.
func ExprText(expr ast.Expr) string {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return expr.Text
	case *ast.DecimalLit:
		return expr.Text
	case *ast.BoolLit:
		return fmt.Sprintf("%t", expr.Value)
	case *ast.StringLit:
		return fmt.Sprintf("%q", expr.Value)
	case *ast.CharLit:
		return fmt.Sprintf("'%c'", expr.Value)
	case *ast.RegexLit:
		return "/" + expr.Pattern + "/"
	case *ast.Identifier:
		return expr.Name
	case *ast.TypeIdent:
		return expr.Name
	case *ast.FieldAccess:
		return ExprText(expr.Root) + "." + expr.Field
	case *ast.Index:
		return ExprText(expr.Root) + "[" + ExprText(expr.Subject) + "]"
	case *ast.Binary:
		return ExprText(expr.Lhs) + " " + expr.Op + " " + ExprText(expr.Rhs)
	case *ast.Unary:
		return expr.Op + ExprText(expr.Operand)
	case *ast.Range:
		return ExprText(expr.Lo) + ".." + ExprText(expr.Hi)
	case *ast.Pipe:
		return ExprText(expr.Lhs) + " |> " + ExprText(expr.Rhs)
	case *ast.FailProp:
		return ExprText(expr.Operand) + "!"
	case *ast.Call:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = ExprText(a)
		}
		return ExprText(expr.Func) + "(" + strings.Join(args, ", ") + ")"
	case *ast.Valid:
		if expr.Args == nil {
			return "valid " + expr.Name
		}
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = ExprText(a)
		}
		return "valid " + expr.Name + "(" + strings.Join(args, ", ") + ")"
	default:
		return "…"
	}
}
