package walk

import (
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// inferExpr types an expression bidirectionally: the expected type, when
// known, steers overload selection and lambda parameter typing.  Every
// expression node carries its type on return.
func (w *Walker) inferExpr(expr ast.Expr, expected types.Type) types.Type {
	t := w.inferExprInner(expr, expected)
	if t == nil {
		t = types.Unknown
	}
	expr.SetType(t)
	return t
}

func (w *Walker) inferExprInner(expr ast.Expr, expected types.Type) types.Type {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return types.IntegerType
	case *ast.DecimalLit:
		return types.DecimalType
	case *ast.BoolLit:
		return types.BooleanType
	case *ast.StringLit:
		return types.StringType
	case *ast.CharLit:
		return types.CharacterType
	case *ast.RegexLit:
		return types.PrimitiveType{Name: "String", Mods: []string{"Regex"}}

	case *ast.InterpString:
		for _, part := range expr.Parts {
			w.inferExpr(part, nil)
		}
		return types.StringType

	case *ast.Identifier:
		return w.inferIdentifier(expr, expected)

	case *ast.TypeIdent:
		return w.inferTypeIdent(expr)

	case *ast.Call:
		return w.inferCall(expr, expected)

	case *ast.FieldAccess:
		return w.inferField(expr)

	case *ast.Index:
		return w.inferIndex(expr)

	case *ast.Pipe:
		return w.inferPipe(expr, expected)

	case *ast.FailProp:
		return w.inferFailProp(expr)

	case *ast.Lambda:
		return w.inferLambda(expr, expected)

	case *ast.Valid:
		return w.inferValid(expr)

	case *ast.Match:
		return w.inferMatch(expr, expected)

	case *ast.If:
		return w.inferIf(expr, expected)

	case *ast.Binary:
		return w.inferBinary(expr)

	case *ast.Unary:
		return w.inferUnary(expr)

	case *ast.Range:
		w.expectNumeric(expr.Lo)
		w.expectNumeric(expr.Hi)
		return &types.ListType{Elem: types.IntegerType}

	case *ast.ListLit:
		return w.inferList(expr, expected)

	case *ast.Comptime:
		return w.inferComptime(expr, expected)

	default:
		return types.Unknown
	}
}

func (w *Walker) expectNumeric(expr ast.Expr) {
	t := w.inferExpr(expr, types.IntegerType)
	if !types.IsUnknown(t) && !types.IsNumeric(t) {
		report.Error(expr.Span(), "E320", "expected a numeric operand, got `%s`", t.Repr())
	}
}

// -----------------------------------------------------------------------------

// inferIdentifier types a value identifier.  Unbound identifiers with
// several verb-variants are resolved here using the expected type.
func (w *Walker) inferIdentifier(expr *ast.Identifier, expected types.Type) types.Type {
	if expr.Sym != nil {
		if expr.Sym.Type == nil {
			return types.Unknown
		}
		return expr.Sym.Type
	}

	candidates := w.table.Candidates(expr.Name)
	if len(candidates) == 0 {
		return types.Unknown
	}

	// A bare function reference selects by expected function type, or the
	// validates variant in Boolean context.
	boolCtx := expected != nil && types.IsBoolean(expected)
	for _, cand := range candidates {
		ft := cand.Type.(*types.FuncType)
		if expected != nil && types.Equal(ft, expected) {
			expr.Sym = cand
			return ft
		}
		if boolCtx && cand.Verb == "validates" {
			expr.Sym = cand
			return ft
		}
	}

	expr.Sym = candidates[0]
	return candidates[0].Type
}

// inferTypeIdent types a constructor or type reference.
func (w *Walker) inferTypeIdent(expr *ast.TypeIdent) types.Type {
	if expr.Sym == nil {
		return types.Unknown
	}
	if expr.Sym.Type == nil {
		return types.Unknown
	}

	if ft, isCtor := expr.Sym.Type.(*types.FuncType); isCtor && len(ft.Params) == 0 {
		// A nullary variant used bare is already a value of the algebraic
		// type.
		return ft.Return
	}
	return expr.Sym.Type
}

// -----------------------------------------------------------------------------

// inferCall types a function or constructor application, running
// context-aware call resolution when the callee has several verb-variants.
func (w *Walker) inferCall(call *ast.Call, expected types.Type) types.Type {
	switch fn := call.Func.(type) {
	case *ast.Identifier:
		return w.inferNamedCall(call, fn, expected)

	case *ast.TypeIdent:
		return w.inferCtorCall(call, fn)

	case *ast.FieldAccess:
		// Module-qualified call: cross-module signatures are unresolved, so
		// arguments are checked and the result is unknown.
		for _, arg := range call.Args {
			w.inferExpr(arg, nil)
		}
		return types.Unknown

	default:
		fnType := w.inferExpr(call.Func, nil)
		ft, ok := types.StripRefinements(fnType).(*types.FuncType)
		if !ok {
			if !types.IsUnknown(fnType) {
				report.Error(call.Func.Span(), "E311", "expression of type `%s` is not callable", fnType.Repr())
			}
			for _, arg := range call.Args {
				w.inferExpr(arg, nil)
			}
			return types.Unknown
		}
		w.checkArgs(call, ft)
		return ft.Return
	}
}

// inferNamedCall resolves and types `name(args)`.
func (w *Walker) inferNamedCall(call *ast.Call, fn *ast.Identifier, expected types.Type) types.Type {
	sym := fn.Sym

	if sym == nil {
		// First type the non-lambda arguments so the candidate filter can
		// unify against them; lambda arguments need the chosen overload's
		// parameter types first.
		argTypes := make([]types.Type, len(call.Args))
		for i, arg := range call.Args {
			if _, isLambda := arg.(*ast.Lambda); isLambda {
				argTypes[i] = types.Unknown
				continue
			}
			argTypes[i] = w.inferExpr(arg, nil)
		}

		boolCtx := expected != nil && types.IsBoolean(expected)
		picked, remaining := resolve.PickOverload(w.table.Candidates(fn.Name), argTypes, expected, boolCtx)
		if picked == nil {
			w.reportAmbiguity(fn, remaining)
			return types.Unknown
		}
		sym = picked
		fn.Sym = picked
		picked.Used = true
	}

	if sym.Kind == symbols.KindLocal || sym.Kind == symbols.KindParameter {
		ft, ok := types.StripRefinements(sym.Type).(*types.FuncType)
		if !ok {
			report.Error(fn.Span(), "E311", "`%s` is not callable", fn.Name)
			return types.Unknown
		}
		w.checkArgs(call, ft)
		return ft.Return
	}

	ft, ok := sym.Type.(*types.FuncType)
	if !ok {
		return types.Unknown
	}

	// Imported signatures are unknown: check arguments, pass the result
	// through.
	if types.IsUnknown(ft.Return) && len(ft.Params) == 0 && len(call.Args) > 0 {
		for _, arg := range call.Args {
			w.inferExpr(arg, nil)
		}
		return types.Unknown
	}

	w.checkCallPurity(sym, fn.Span())
	w.recordCall(sym)

	return w.checkArgs(call, ft)
}

// reportAmbiguity emits the ambiguity diagnostic listing the surviving
// candidates.
func (w *Walker) reportAmbiguity(fn *ast.Identifier, remaining []*symbols.Symbol) {
	if len(remaining) == 0 {
		report.Error(fn.Span(), "E311", "undefined function `%s`", fn.Name)
		return
	}

	var listed []string
	labels := []report.Label{{Span: fn.Span()}}
	for _, cand := range remaining {
		listed = append(listed, cand.Verb+" "+cand.Name)
		labels = append(labels, report.Label{Span: cand.Span, Message: "candidate", Secondary: true})
	}

	report.Add(&report.Diagnostic{
		Severity: report.SevError,
		Code:     "E313",
		Message:  "ambiguous call to `" + fn.Name + "`: candidates are " + strings.Join(listed, ", "),
		Labels:   labels,
	})
}

// checkArgs types the arguments of a call against a function type,
// instantiating generics and recording the monomorphization.  It returns
// the (substituted) return type.
func (w *Walker) checkArgs(call *ast.Call, ft *types.FuncType) types.Type {
	if len(call.Args) != len(ft.Params) {
		report.Error(call.Span(), "E330",
			"wrong number of arguments: expected %d, got %d", len(ft.Params), len(call.Args))
		for _, arg := range call.Args {
			w.inferExpr(arg, nil)
		}
		return ft.Return
	}

	sub := types.Substitution{}
	for i, arg := range call.Args {
		expectedParam := types.Substitute(ft.Params[i], sub)
		argType := w.inferExpr(arg, expectedParam)

		if !types.Unify(expectedParam, argType, sub) {
			report.Error(arg.Span(), "E331",
				"argument type mismatch: expected `%s`, got `%s`",
				expectedParam.Repr(), argType.Repr())
			continue
		}

		w.checkArgRefinement(arg, types.Substitute(ft.Params[i], sub))
	}

	if types.ContainsParams(ft.Return) || w.hasGenericParams(ft) {
		w.recordInstantiation(call, ft, sub)
	}

	ret := types.Substitute(ft.Return, sub)

	// A failable callee yields Result at the call site, so the value must
	// go through `!` or a match before use.
	if ft.CanFail {
		if _, _, alreadyResult := types.ResultParts(ret); !alreadyResult {
			return types.ResultOf(ret, types.StringType)
		}
	}

	return ret
}

func (w *Walker) hasGenericParams(ft *types.FuncType) bool {
	for _, p := range ft.Params {
		if types.ContainsParams(p) {
			return true
		}
	}
	return false
}

// recordInstantiation records a generic call in the monomorphization table.
func (w *Walker) recordInstantiation(call *ast.Call, ft *types.FuncType, sub types.Substitution) {
	if len(sub) == 0 {
		return
	}

	var sym *symbols.Symbol
	if fn, ok := call.Func.(*ast.Identifier); ok {
		sym = fn.Sym
	}
	if sym == nil || sym.Kind != symbols.KindFunction {
		return
	}

	key := sym.Verb + "_" + sym.Name + "_" + types.ParamKey(ft.Params)
	w.mono.Record(key, sub)
}

// checkArgRefinement applies the refinement semantics to an argument whose
// parameter type is refined.
func (w *Walker) checkArgRefinement(arg ast.Expr, paramType types.Type) {
	refined, ok := paramType.(types.RefinedType)
	if !ok {
		return
	}

	if cv, known := w.constEval(arg); known {
		holds, decided := types.EvalConstraint(refined.Constraint, cv)
		if decided && !holds {
			w.rejectRefinement(arg, refined, cv)
		}
	}
}

// inferCtorCall types `TypeName(args)`: a variant constructor or a record
// construction with positional fields.
func (w *Walker) inferCtorCall(call *ast.Call, fn *ast.TypeIdent) types.Type {
	if fn.Sym == nil {
		for _, arg := range call.Args {
			w.inferExpr(arg, nil)
		}
		return types.Unknown
	}

	if ft, isCtor := fn.Sym.Type.(*types.FuncType); isCtor {
		return w.checkArgs(call, ft)
	}

	if rt, isRecord := fn.Sym.Type.(*types.RecordType); isRecord {
		if len(call.Args) != len(rt.Fields) {
			report.Error(call.Span(), "E330",
				"wrong number of arguments: `%s` has %d fields, got %d",
				rt.Name, len(rt.Fields), len(call.Args))
		}
		for i, arg := range call.Args {
			if i < len(rt.Fields) {
				at := w.inferExpr(arg, rt.Fields[i].Type)
				if !w.assignable(at, rt.Fields[i].Type) {
					report.Error(arg.Span(), "E331",
						"argument type mismatch: field `%s` is `%s`, got `%s`",
						rt.Fields[i].Name, rt.Fields[i].Type.Repr(), at.Repr())
				}
			} else {
				w.inferExpr(arg, nil)
			}
		}
		return rt
	}

	for _, arg := range call.Args {
		w.inferExpr(arg, nil)
	}
	return fn.Sym.Type
}

// -----------------------------------------------------------------------------

// inferField types `root.field` over records.
func (w *Walker) inferField(expr *ast.FieldAccess) types.Type {
	// Module-qualified references outside call position pass through.
	if _, qualified := expr.Root.(*ast.TypeIdent); qualified {
		return types.Unknown
	}

	rootType := types.StripRefinements(w.inferExpr(expr.Root, nil))
	if types.IsUnknown(rootType) {
		return types.Unknown
	}

	if rt, ok := rootType.(*types.RecordType); ok {
		if ft, found := rt.FieldNamed(expr.Field); found {
			return ft
		}
		report.Error(expr.Span(), "E340", "no field `%s` on type `%s`", expr.Field, rt.Name)
		return types.Unknown
	}

	report.Error(expr.Span(), "E340", "no field `%s` on type `%s`", expr.Field, rootType.Repr())
	return types.Unknown
}

// inferIndex types `root[i]`.
func (w *Walker) inferIndex(expr *ast.Index) types.Type {
	rootType := types.StripRefinements(w.inferExpr(expr.Root, nil))
	w.expectNumeric(expr.Subject)

	if lt, ok := rootType.(*types.ListType); ok {
		return lt.Elem
	}
	if types.IsString(rootType) {
		return types.CharacterType
	}
	if !types.IsUnknown(rootType) {
		report.Error(expr.Span(), "E320", "type `%s` cannot be indexed", rootType.Repr())
	}
	return types.Unknown
}

// inferPipe desugars `a |> f` into `f(a)` (argument-appended when the right
// side is a call missing its final argument) and types the result.
func (w *Walker) inferPipe(pipe *ast.Pipe, expected types.Type) types.Type {
	var call *ast.Call

	switch rhs := pipe.Rhs.(type) {
	case *ast.Call:
		call = &ast.Call{Func: rhs.Func, Args: append([]ast.Expr{pipe.Lhs}, rhs.Args...)}
		call.ExprBase = ast.NewExprBase(pipe.Span())
	default:
		call = &ast.Call{Func: pipe.Rhs, Args: []ast.Expr{pipe.Lhs}}
		call.ExprBase = ast.NewExprBase(pipe.Span())
	}

	pipe.Desugared = call
	return w.inferExpr(call, expected)
}

// inferFailProp types a postfix `!`: the operand must be Result or Option,
// and the enclosing function must be failable (inputs, outputs, or main).
func (w *Walker) inferFailProp(expr *ast.FailProp) types.Type {
	inner := w.inferExpr(expr.Operand, nil)

	if w.lambdaDepth > 0 {
		report.Error(expr.Span(), "E361", "fail propagation is not allowed inside a lambda")
	} else if w.currentFunc != nil {
		switch w.currentFunc.Verb {
		case "inputs", "outputs":
			if !w.currentFunc.CanFail {
				report.Error(expr.Span(), "E361",
					"fail propagation requires the enclosing function to declare `!`")
			}
		default:
			report.Error(expr.Span(), "E361",
				"fail propagation is not allowed in pure verb `%s`", w.currentFunc.Verb)
		}
	} else if w.currentMain != nil && !w.currentMain.CanFail {
		report.Error(expr.Span(), "E361", "fail propagation requires `main()!`")
	}

	okType, _, isResult := types.ResultParts(inner)
	if !isResult {
		if !types.IsUnknown(inner) {
			report.Error(expr.Operand.Span(), "E350",
				"`!` needs a Result or Option operand, got `%s`", inner.Repr())
		}
		return types.Unknown
	}
	return okType
}

// inferValid types the `valid f` forms.
func (w *Walker) inferValid(v *ast.Valid) types.Type {
	if v.Sym == nil {
		return types.Unknown
	}

	ft := v.Sym.Type.(*types.FuncType)

	if v.Args == nil {
		// First-class reference to the validates variant.
		return ft
	}

	call := &ast.Call{Args: v.Args}
	call.ExprBase = ast.NewExprBase(v.Span())
	fn := &ast.Identifier{Name: v.Name, Sym: v.Sym}
	fn.ExprBase = ast.NewExprBase(v.Span())
	call.Func = fn

	w.recordCall(v.Sym)
	w.checkArgs(call, ft)
	return types.BooleanType
}

// inferLambda types a captureless lambda.  Lambdas are legal only as
// function arguments, which is exactly when an expected function type is
// available.
func (w *Walker) inferLambda(lam *ast.Lambda, expected types.Type) types.Type {
	expectedFt, ok := types.StripRefinements(orUnknown(expected)).(*types.FuncType)
	if !ok {
		report.Error(lam.Span(), "E364",
			"a lambda may only be passed as a function argument")
		expectedFt = &types.FuncType{Params: make([]types.Type, len(lam.Params)), Return: types.Unknown}
		for i := range expectedFt.Params {
			expectedFt.Params[i] = types.Unknown
		}
	}

	params := make([]types.Type, len(lam.Params))
	for i := range lam.Params {
		if i < len(expectedFt.Params) {
			params[i] = expectedFt.Params[i]
		} else {
			params[i] = types.Unknown
		}
		if i < len(lam.ParamSyms) {
			lam.ParamSyms[i].Type = params[i]
		}
	}

	if len(lam.Params) != len(expectedFt.Params) && !types.IsUnknown(expectedFt.Return) {
		report.Error(lam.Span(), "E330",
			"lambda takes %d parameters, expected %d", len(lam.Params), len(expectedFt.Params))
	}

	w.lambdaDepth++
	bodyType := w.inferExpr(lam.Body, expectedFt.Return)
	w.lambdaDepth--

	return &types.FuncType{Params: params, Return: bodyType}
}

func orUnknown(t types.Type) types.Type {
	if t == nil {
		return types.Unknown
	}
	return t
}

// inferIf types an if/else expression.  Branching with if is accepted only
// inside comptime blocks.
func (w *Walker) inferIf(expr *ast.If, expected types.Type) types.Type {
	if w.comptimeDepth == 0 {
		report.Error(expr.Span(), "E367",
			"`if` is only allowed inside comptime blocks: use `match` instead")
	}

	condType := w.inferExpr(expr.Cond, types.BooleanType)
	if !types.IsUnknown(condType) && !types.IsBoolean(condType) {
		report.Error(expr.Cond.Span(), "E321",
			"type mismatch: expected `Boolean`, got `%s`", condType.Repr())
	}

	thenType := w.walkBody(expr.Then, expected)
	elseType := w.walkBody(expr.Else, expected)

	if len(expr.Else) == 0 {
		return types.Unit
	}
	if w.assignable(elseType, thenType) {
		return thenType
	}
	return types.Unknown
}

// inferBinary types a binary operator application.
func (w *Walker) inferBinary(expr *ast.Binary) types.Type {
	switch expr.Op {
	case "&&", "||":
		lhs := w.inferExpr(expr.Lhs, types.BooleanType)
		rhs := w.inferExpr(expr.Rhs, types.BooleanType)
		if !types.IsUnknown(lhs) && !types.IsBoolean(lhs) {
			report.Error(expr.Lhs.Span(), "E320", "`%s` needs Boolean operands, got `%s`", expr.Op, lhs.Repr())
		}
		if !types.IsUnknown(rhs) && !types.IsBoolean(rhs) {
			report.Error(expr.Rhs.Span(), "E320", "`%s` needs Boolean operands, got `%s`", expr.Op, rhs.Repr())
		}
		return types.BooleanType

	case "==", "!=", "<", ">", "<=", ">=":
		lhs := w.inferExpr(expr.Lhs, nil)
		rhs := w.inferExpr(expr.Rhs, lhs)
		if !types.IsUnknown(lhs) && !types.IsUnknown(rhs) &&
			!w.assignable(rhs, lhs) && !w.assignable(lhs, rhs) {
			report.Error(expr.Span(), "E320",
				"cannot compare `%s` with `%s`", lhs.Repr(), rhs.Repr())
		}
		return types.BooleanType

	default: // + - * / %
		lhs := w.inferExpr(expr.Lhs, nil)
		rhs := w.inferExpr(expr.Rhs, lhs)

		if types.IsUnknown(lhs) || types.IsUnknown(rhs) {
			return types.Unknown
		}

		// String concatenation with `+`.
		if expr.Op == "+" && types.IsString(lhs) && types.IsString(rhs) {
			return types.StringType
		}

		if !types.IsNumeric(lhs) || !types.IsNumeric(rhs) {
			report.Error(expr.Span(), "E320",
				"operator `%s` needs numeric operands, got `%s` and `%s`",
				expr.Op, lhs.Repr(), rhs.Repr())
			return types.Unknown
		}
		if !types.Equal(types.StripRefinements(lhs), types.StripRefinements(rhs)) {
			report.Error(expr.Span(), "E320",
				"mismatched operand types `%s` and `%s`", lhs.Repr(), rhs.Repr())
		}
		return types.StripRefinements(lhs)
	}
}

// inferUnary types a prefix operator application.
func (w *Walker) inferUnary(expr *ast.Unary) types.Type {
	switch expr.Op {
	case "!":
		operand := w.inferExpr(expr.Operand, types.BooleanType)
		if !types.IsUnknown(operand) && !types.IsBoolean(operand) {
			report.Error(expr.Operand.Span(), "E320",
				"`!` needs a Boolean operand, got `%s`", operand.Repr())
		}
		return types.BooleanType

	default: // -
		operand := w.inferExpr(expr.Operand, nil)
		if !types.IsUnknown(operand) && !types.IsNumeric(operand) {
			report.Error(expr.Operand.Span(), "E320",
				"`-` needs a numeric operand, got `%s`", operand.Repr())
		}
		return types.StripRefinements(operand)
	}
}

// inferList types a list literal.
func (w *Walker) inferList(expr *ast.ListLit, expected types.Type) types.Type {
	var elemExpected types.Type
	if lt, ok := types.StripRefinements(orUnknown(expected)).(*types.ListType); ok {
		elemExpected = lt.Elem
	}

	if len(expr.Elems) == 0 {
		if elemExpected != nil {
			return &types.ListType{Elem: elemExpected}
		}
		return &types.ListType{Elem: types.Unknown}
	}

	first := w.inferExpr(expr.Elems[0], elemExpected)
	for _, elem := range expr.Elems[1:] {
		et := w.inferExpr(elem, first)
		if !types.IsUnknown(et) && !w.assignable(et, first) {
			report.Error(elem.Span(), "E321",
				"list elements must share a type: expected `%s`, got `%s`", first.Repr(), et.Repr())
		}
	}
	return &types.ListType{Elem: types.StripRefinements(first)}
}

// inferComptime types a comptime block.
func (w *Walker) inferComptime(expr *ast.Comptime, expected types.Type) types.Type {
	w.comptimeDepth++
	t := w.walkBody(expr.Body, expected)
	w.comptimeDepth--
	return t
}
