package walk

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/types"
)

// walkBody checks a statement sequence and returns the type of its terminal
// value.  The final non-var-decl expression is the body's return value.
func (w *Walker) walkBody(body []ast.Stmt, expected types.Type) types.Type {
	var bodyType types.Type = types.Unit

	for i, stmt := range body {
		last := i == len(body)-1

		var stmtExpected types.Type
		if last {
			stmtExpected = expected
		}

		bodyType = w.walkStmt(stmt, stmtExpected)
		if !last {
			continue
		}
		if _, isDecl := stmt.(*ast.VarDecl); isDecl {
			bodyType = types.Unit
		}
	}

	return bodyType
}

// walkStmt checks one statement and returns its value type.
func (w *Walker) walkStmt(stmt ast.Stmt, expected types.Type) types.Type {
	switch stmt := stmt.(type) {
	case *ast.VarDecl:
		w.walkVarDecl(stmt)
		return types.Unit

	case *ast.Assign:
		w.walkAssign(stmt)
		return types.Unit

	case *ast.ExprStmt:
		return w.inferExpr(stmt.Expr, expected)

	default:
		return types.Unit
	}
}

// walkVarDecl checks `name as Type = expr`, applying the refinement
// semantics at the assignment site.
func (w *Walker) walkVarDecl(vd *ast.VarDecl) {
	var declared types.Type
	if vd.Sym != nil && vd.Sym.Type != nil {
		declared = vd.Sym.Type
	}

	inferred := w.inferExpr(vd.Value, declared)

	if declared == nil || types.IsUnknown(declared) {
		if vd.Sym != nil {
			vd.Sym.Type = inferred
		}
		return
	}

	if !w.assignable(inferred, declared) {
		report.Error(vd.Value.Span(), "E321",
			"type mismatch: expected `%s`, got `%s`", declared.Repr(), inferred.Repr())
		return
	}

	w.checkRefinementAssign(vd.Value, declared, vd)
}

// walkAssign checks `name = expr` against the target's declared type.
func (w *Walker) walkAssign(a *ast.Assign) {
	if a.Sym == nil {
		w.inferExpr(a.Value, nil)
		return
	}

	valueType := w.inferExpr(a.Value, a.Sym.Type)
	if a.Sym.Type != nil && !w.assignable(valueType, a.Sym.Type) {
		report.Error(a.Value.Span(), "E321",
			"type mismatch: expected `%s`, got `%s`", a.Sym.Type.Repr(), valueType.Repr())
	}
}

// -----------------------------------------------------------------------------

// checkRefinementAssign applies the refinement semantics at an assignment
// site.  A known value has the constraint evaluated at compile time and is
// rejected on failure; an unknown value gets a runtime check inserted unless
// the expression's own refinement already implies the target constraint.
func (w *Walker) checkRefinementAssign(value ast.Expr, declared types.Type, vd *ast.VarDecl) {
	if declared == nil {
		return
	}
	refined, ok := declared.(types.RefinedType)
	if !ok {
		return
	}

	if cv, known := w.constEval(value); known {
		holds, decided := types.EvalConstraint(refined.Constraint, cv)
		if decided {
			if !holds {
				w.rejectRefinement(value, refined, cv)
			}
			return
		}
	}

	// Structural subsumption: a narrower refinement needs no check.
	if valueRef, isRef := value.Type().(types.RefinedType); isRef {
		if types.Implies(valueRef.Constraint, refined.Constraint) {
			return
		}
	}

	if vd != nil {
		vd.NeedsCheck = true
	}
}

// rejectRefinement reports a refinement violation on a known value with a
// suggested fix.
func (w *Walker) rejectRefinement(value ast.Expr, refined types.RefinedType, cv types.ConstValue) {
	name := refined.Name
	if name == "" {
		name = refined.Base.Repr()
	}

	d := &report.Diagnostic{
		Severity: report.SevError,
		Code:     "E325",
		Message:  "value " + cv.Repr() + " violates the refinement of `" + name + "`",
		Labels:   []report.Label{{Span: value.Span(), Message: "constraint: " + refined.Constraint.ConstraintRepr()}},
	}

	if rc, isRange := refined.Constraint.(types.RangeConstraint); isRange {
		d.Suggestions = []string{
			"clamp(" + cv.Repr() + ", " + types.IntValue(rc.Lo).Repr() + ", " + types.IntValue(rc.Hi).Repr() + ")",
			"check(" + cv.Repr() + ")!",
		}
	}

	report.Add(d)
}

// constEval evaluates an expression at compile time when its value is
// statically known.  It covers literals, negation, and the arithmetic and
// comparison forms the comptime evaluator understands.
func (w *Walker) constEval(expr ast.Expr) (types.ConstValue, bool) {
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
		v, ok := w.constEval(expr.Operand)
		if !ok {
			return types.ConstValue{}, false
		}
		switch expr.Op {
		case "-":
			switch v.Kind {
			case types.ConstInt:
				return types.IntValue(-v.Int), true
			case types.ConstDec:
				return types.DecValue(-v.Dec), true
			}
		case "!":
			if v.Kind == types.ConstBool {
				return types.BoolValue(!v.Bool), true
			}
		}
		return types.ConstValue{}, false

	case *ast.Binary:
		lhs, lok := w.constEval(expr.Lhs)
		rhs, rok := w.constEval(expr.Rhs)
		if !lok || !rok {
			return types.ConstValue{}, false
		}
		return evalConstBinary(expr.Op, lhs, rhs)

	case *ast.Identifier:
		// Constants fold when their initializer folded.
		if expr.Sym != nil {
			if cd, ok := expr.Sym.Decl.(*ast.ConstDef); ok {
				return w.constEval(cd.Value)
			}
		}
		return types.ConstValue{}, false

	default:
		return types.ConstValue{}, false
	}
}

func evalConstBinary(op string, lhs, rhs types.ConstValue) (types.ConstValue, bool) {
	if lhs.Kind == types.ConstInt && rhs.Kind == types.ConstInt {
		switch op {
		case "+":
			return types.IntValue(lhs.Int + rhs.Int), true
		case "-":
			return types.IntValue(lhs.Int - rhs.Int), true
		case "*":
			return types.IntValue(lhs.Int * rhs.Int), true
		case "/":
			if rhs.Int == 0 {
				return types.ConstValue{}, false
			}
			return types.IntValue(lhs.Int / rhs.Int), true
		case "%":
			if rhs.Int == 0 {
				return types.ConstValue{}, false
			}
			return types.IntValue(lhs.Int % rhs.Int), true
		case "<":
			return types.BoolValue(lhs.Int < rhs.Int), true
		case ">":
			return types.BoolValue(lhs.Int > rhs.Int), true
		case "<=":
			return types.BoolValue(lhs.Int <= rhs.Int), true
		case ">=":
			return types.BoolValue(lhs.Int >= rhs.Int), true
		case "==":
			return types.BoolValue(lhs.Int == rhs.Int), true
		case "!=":
			return types.BoolValue(lhs.Int != rhs.Int), true
		}
	}

	if lhs.Kind == types.ConstStr && rhs.Kind == types.ConstStr && op == "+" {
		return types.StrValue(lhs.Str + rhs.Str), true
	}

	if lhs.Kind == types.ConstBool && rhs.Kind == types.ConstBool {
		switch op {
		case "&&":
			return types.BoolValue(lhs.Bool && rhs.Bool), true
		case "||":
			return types.BoolValue(lhs.Bool || rhs.Bool), true
		}
	}

	return types.ConstValue{}, false
}
