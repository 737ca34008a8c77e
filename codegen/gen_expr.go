package codegen

import (
	"fmt"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// builtinCNames maps built-in function names to their runtime entry points.
var builtinCNames = map[string]string{
	"println":    "prove_println",
	"print":      "prove_print",
	"readln":     "prove_readln",
	"read_file":  "prove_io_read_file",
	"write_file": "prove_io_write_file",
	"open":       "prove_io_open",
	"close":      "prove_io_close",
	"flush":      "prove_io_flush",
	"sleep":      "prove_io_sleep",
	"clamp":      "prove_clamp",
	"min":        "prove_min_int",
	"max":        "prove_max_int",
	"abs":        "prove_abs_int",
	"trim":       "prove_string_trim",
	"lower":      "prove_string_lower",
	"upper":      "prove_string_upper",
	"decode":     "prove_parse_decode",
	"err":        "prove_result_err",
	"none":       "prove_result_none",
}

// builtinHeaderNames maps built-ins to the runtime header their entry point
// lives in.
var builtinHeaderNames = map[string]string{
	"println":    "prove_input_output.h",
	"print":      "prove_input_output.h",
	"readln":     "prove_input_output.h",
	"read_file":  "prove_input_output.h",
	"write_file": "prove_input_output.h",
	"open":       "prove_input_output.h",
	"close":      "prove_input_output.h",
	"flush":      "prove_input_output.h",
	"sleep":      "prove_input_output.h",
	"decode":     "prove_parse.h",
	"map":        "prove_hof.h",
	"filter":     "prove_hof.h",
	"reduce":     "prove_hof.h",
	"each":       "prove_hof.h",
}

// emitExpr renders one expression, appending any prelude statements the
// expression needs (fail propagation, list building, match lowering).
func (g *Generator) emitExpr(expr ast.Expr) string {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%dL", expr.Value)

	case *ast.DecimalLit:
		return expr.Text

	case *ast.BoolLit:
		return fmt.Sprintf("%t", expr.Value)

	case *ast.CharLit:
		return fmt.Sprintf("'%c'", expr.Value)

	case *ast.StringLit:
		return `prove_string_from_cstr("` + escapeCString(expr.Value) + `")`

	case *ast.RegexLit:
		return `prove_string_from_cstr("` + escapeCString(expr.Pattern) + `")`

	case *ast.InterpString:
		return g.emitInterp(expr)

	case *ast.Identifier:
		if expr.Name == "self" && g.selfName != "" {
			return g.selfName
		}
		return expr.Name

	case *ast.TypeIdent:
		return g.emitBareTypeIdent(expr)

	case *ast.Call:
		return g.emitCall(expr)

	case *ast.FieldAccess:
		return g.emitField(expr)

	case *ast.Index:
		return g.emitIndex(expr)

	case *ast.Pipe:
		if expr.Desugared != nil {
			return g.emitCall(expr.Desugared)
		}
		return g.emitExpr(expr.Rhs) + "(" + g.emitExpr(expr.Lhs) + ")"

	case *ast.FailProp:
		return g.emitFailProp(expr)

	case *ast.Lambda:
		return g.emitLambda(expr)

	case *ast.Valid:
		return g.emitValid(expr)

	case *ast.Match:
		return g.emitMatchValue(expr)

	case *ast.Binary:
		return g.emitBinary(expr)

	case *ast.Unary:
		operand := g.emitExpr(expr.Operand)
		if expr.Op == "!" {
			return "(!" + operand + ")"
		}
		return "(-" + operand + ")"

	case *ast.Range:
		g.headers["prove_list.h"] = struct{}{}
		return "prove_list_range(" + g.emitExpr(expr.Lo) + ", " + g.emitExpr(expr.Hi) + ")"

	case *ast.ListLit:
		return g.emitListLit(expr)

	case *ast.Comptime:
		// Comptime blocks were folded by the checker; any residue emits its
		// terminal expression.
		for i, stmt := range expr.Body {
			if i == len(expr.Body)-1 {
				if terminal := terminalExpr(stmt); terminal != nil {
					return g.emitExpr(terminal)
				}
			}
			g.emitStmt(stmt)
		}
		return "0"

	default:
		return "0"
	}
}

// emitBareTypeIdent renders a nullary variant used as a value.
func (g *Generator) emitBareTypeIdent(expr *ast.TypeIdent) string {
	if expr.Sym != nil && expr.Sym.Kind == symbols.KindVariantConstructor {
		if ft, ok := expr.Sym.Type.(*types.FuncType); ok {
			if at, ok := ft.Return.(*types.AlgebraicType); ok {
				return VariantCtor(at.Name, expr.Name) + "()"
			}
		}
	}
	return expr.Name
}

// -----------------------------------------------------------------------------

// emitCall renders a call: builtins map to runtime entry points, foreign
// bindings stay unmangled, higher-order builtins hoist their lambda, and
// user functions get the verb-dispatched mangled name.
func (g *Generator) emitCall(call *ast.Call) string {
	switch fn := call.Func.(type) {
	case *ast.Identifier:
		if fn.Sym != nil {
			switch fn.Sym.Kind {
			case symbols.KindBuiltinFunction:
				return g.emitBuiltinCall(call, fn)
			case symbols.KindForeign:
				return fn.Name + "(" + g.emitArgs(call.Args) + ")"
			case symbols.KindFunction:
				ft := fn.Sym.Type.(*types.FuncType)
				params := ft.Params
				if hasGenericSignature(ft) {
					params = g.monoParams(call, ft)
				}
				return MangleFunc(fn.Sym.Verb, fn.Sym.Name, params) + "(" + g.emitArgs(call.Args) + ")"
			case symbols.KindVariantConstructor:
				if ft, ok := fn.Sym.Type.(*types.FuncType); ok {
					if at, ok := ft.Return.(*types.AlgebraicType); ok {
						return VariantCtor(at.Name, fn.Name) + "(" + g.emitArgs(call.Args) + ")"
					}
				}
			case symbols.KindLocal, symbols.KindParameter:
				// A function value held in a local: a hoisted lambda
				// pointer.
				return g.emitIndirectCall(fn, call)
			}
		}
		return fn.Name + "(" + g.emitArgs(call.Args) + ")"

	case *ast.TypeIdent:
		return g.emitCtorCall(call, fn)

	case *ast.FieldAccess:
		// Module-qualified call: the cross-module symbol keeps its own
		// mangled name under the module prefix.
		if root, ok := fn.Root.(*ast.TypeIdent); ok {
			return "prove_" + strings.ToLower(root.Name) + "_" + fn.Field + "(" + g.emitArgs(call.Args) + ")"
		}
		return g.emitExpr(call.Func) + "(" + g.emitArgs(call.Args) + ")"

	default:
		return g.emitExpr(call.Func) + "(" + g.emitArgs(call.Args) + ")"
	}
}

// monoParams recovers the concrete parameter types of a generic call from
// its typed arguments.
func (g *Generator) monoParams(call *ast.Call, ft *types.FuncType) []types.Type {
	sub := types.Substitution{}
	for i, arg := range call.Args {
		if i < len(ft.Params) {
			types.Unify(ft.Params[i], arg.Type(), sub)
		}
	}
	return substituteAll(ft.Params, sub)
}

func (g *Generator) emitArgs(args []ast.Expr) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = g.emitExpr(arg)
	}
	return strings.Join(parts, ", ")
}

// emitIndirectCall calls through a function pointer local.
func (g *Generator) emitIndirectCall(fn *ast.Identifier, call *ast.Call) string {
	ft, ok := types.StripRefinements(fn.Sym.Type).(*types.FuncType)
	if !ok {
		return fn.Name + "(" + g.emitArgs(call.Args) + ")"
	}

	ret := MapType(ft.Return).Decl
	var params []string
	for _, p := range ft.Params {
		params = append(params, MapType(p).Decl)
	}
	cast := "(" + ret + " (*)(" + strings.Join(params, ", ") + "))"
	return "(" + cast + fn.Name + ")(" + g.emitArgs(call.Args) + ")"
}

// emitCtorCall renders a variant constructor or record construction.
func (g *Generator) emitCtorCall(call *ast.Call, fn *ast.TypeIdent) string {
	if fn.Sym != nil {
		if ft, ok := fn.Sym.Type.(*types.FuncType); ok {
			if at, ok := ft.Return.(*types.AlgebraicType); ok {
				return VariantCtor(at.Name, fn.Name) + "(" + g.emitArgs(call.Args) + ")"
			}
		}
		if rt, ok := fn.Sym.Type.(*types.RecordType); ok {
			cname := MangleTypeName(rt.Name)
			var inits []string
			for i, arg := range call.Args {
				if i < len(rt.Fields) {
					inits = append(inits, "."+rt.Fields[i].Name+" = "+g.emitExpr(arg))
				}
			}
			return "(" + cname + "){" + strings.Join(inits, ", ") + "}"
		}
	}
	return fn.Name + "(" + g.emitArgs(call.Args) + ")"
}

// emitBuiltinCall renders a call to a built-in: type-directed dispatch for
// len and to_string, hoisted lambdas for the higher-order functions, and a
// direct runtime mapping for the rest.
func (g *Generator) emitBuiltinCall(call *ast.Call, fn *ast.Identifier) string {
	if header, ok := builtinHeaderNames[fn.Name]; ok {
		g.headers[header] = struct{}{}
	}

	switch fn.Name {
	case "len":
		arg := g.emitExpr(call.Args[0])
		if types.IsString(call.Args[0].Type()) {
			return "prove_string_len(" + arg + ")"
		}
		g.headers["prove_list.h"] = struct{}{}
		return "prove_list_len(" + arg + ")"

	case "to_string":
		arg := g.emitExpr(call.Args[0])
		return g.toStringCall(arg, call.Args[0].Type())

	case "map", "filter", "each":
		return g.emitHOF(call, fn.Name)

	case "reduce":
		return g.emitReduce(call)

	case "ok":
		return g.okCtor(g.emitExpr(call.Args[0]), call.Args[0].Type())

	case "some":
		return g.okCtor(g.emitExpr(call.Args[0]), call.Args[0].Type())

	case "err":
		return "prove_result_err(" + g.emitExpr(call.Args[0]) + ")"

	default:
		if cname, ok := builtinCNames[fn.Name]; ok {
			return cname + "(" + g.emitArgs(call.Args) + ")"
		}
		return fn.Name + "(" + g.emitArgs(call.Args) + ")"
	}
}

// toStringCall picks the runtime conversion for a value's type.
func (g *Generator) toStringCall(value string, t types.Type) string {
	switch types.StripRefinements(t).Repr() {
	case "Integer", "Byte":
		return "prove_string_from_int(" + value + ")"
	case "Decimal", "Float":
		return "prove_string_from_double(" + value + ")"
	case "Boolean":
		return "prove_string_from_bool(" + value + ")"
	case "Character":
		return "prove_string_from_char(" + value + ")"
	case "String":
		return value
	default:
		return "prove_string_from_int((int64_t)" + value + ")"
	}
}

// -----------------------------------------------------------------------------

// emitHOF renders map/filter/each over a list with a hoisted lambda.
func (g *Generator) emitHOF(call *ast.Call, kind string) string {
	g.headers["prove_hof.h"] = struct{}{}

	listArg := g.emitExpr(call.Args[0])
	var elemType types.Type = types.Unknown
	if lt, ok := types.StripRefinements(call.Args[0].Type()).(*types.ListType); ok {
		elemType = lt.Elem
	}

	fnName := g.hoistHOFLambda(call.Args[1], elemType, kind, nil)

	switch kind {
	case "map":
		resultCT := MapType(elemType)
		if ft, ok := call.Args[1].Type().(*types.FuncType); ok {
			resultCT = MapType(ft.Return)
		}
		return "prove_list_map(" + listArg + ", " + fnName + ", sizeof(" + resultCT.Decl + "))"
	case "filter":
		return "prove_list_filter(" + listArg + ", " + fnName + ")"
	default:
		return "prove_list_each(" + listArg + ", " + fnName + ")"
	}
}

// emitReduce renders reduce with an accumulator temporary.
func (g *Generator) emitReduce(call *ast.Call) string {
	g.headers["prove_hof.h"] = struct{}{}

	listArg := g.emitExpr(call.Args[0])
	var elemType types.Type = types.Unknown
	if lt, ok := types.StripRefinements(call.Args[0].Type()).(*types.ListType); ok {
		elemType = lt.Elem
	}
	accType := call.Args[1].Type()

	accTmp := g.tmp()
	g.line(MapType(accType).Decl + " " + accTmp + " = " + g.emitExpr(call.Args[1]) + ";")

	fnName := g.hoistHOFLambda(call.Args[2], elemType, "reduce", accType)
	g.line("prove_list_reduce(" + listArg + ", &" + accTmp + ", " + fnName + ");")
	return accTmp
}

// hoistHOFLambda hoists a lambda into a file-scope C function shaped for
// the runtime's higher-order entry points and returns its name.
func (g *Generator) hoistHOFLambda(expr ast.Expr, elemType types.Type, kind string, accType types.Type) string {
	lam, ok := expr.(*ast.Lambda)
	if !ok {
		// A `valid f` reference or bare function name passes straight
		// through as a function pointer.
		return g.emitExpr(expr)
	}

	g.tmpCounter++
	name := fmt.Sprintf("_lambda_%d", g.tmpCounter)
	elemCT := MapType(elemType)

	var sb strings.Builder
	param := "_x"
	if len(lam.Params) > 0 {
		param = lam.Params[0]
	}

	// The lambda body renders into a buffer so its text lands in the
	// hoisted definition rather than the current function.
	savedOut := g.out
	savedIndent := g.indent
	g.out = nil
	g.indent = 0
	body := g.emitExpr(lam.Body)
	prelude := g.out
	g.out = savedOut
	g.indent = savedIndent

	switch kind {
	case "map":
		retCT := elemCT
		if ft, ok := expr.Type().(*types.FuncType); ok {
			retCT = MapType(ft.Return)
		}
		sb.WriteString("static void *" + name + "(const void *_arg) {\n")
		sb.WriteString("    " + elemCT.Decl + " " + param + " = *(" + elemCT.Decl + "*)_arg;\n")
		for _, line := range prelude {
			sb.WriteString("    " + line + "\n")
		}
		sb.WriteString("    static " + retCT.Decl + " _result;\n")
		sb.WriteString("    _result = " + body + ";\n")
		sb.WriteString("    return &_result;\n")
		sb.WriteString("}\n")

	case "filter":
		sb.WriteString("static bool " + name + "(const void *_arg) {\n")
		sb.WriteString("    " + elemCT.Decl + " " + param + " = *(" + elemCT.Decl + "*)_arg;\n")
		for _, line := range prelude {
			sb.WriteString("    " + line + "\n")
		}
		sb.WriteString("    return " + body + ";\n")
		sb.WriteString("}\n")

	case "reduce":
		accParam := "_acc"
		elemParam := "_el"
		if len(lam.Params) > 0 {
			accParam = lam.Params[0]
		}
		if len(lam.Params) > 1 {
			elemParam = lam.Params[1]
		}
		accCT := elemCT
		if accType != nil {
			accCT = MapType(accType)
		}
		sb.WriteString("static void " + name + "(void *_accum, const void *_elem) {\n")
		sb.WriteString("    " + accCT.Decl + " *" + accParam + " = (" + accCT.Decl + "*)_accum;\n")
		sb.WriteString("    " + elemCT.Decl + " " + elemParam + " = *(" + elemCT.Decl + "*)_elem;\n")
		for _, line := range prelude {
			sb.WriteString("    " + line + "\n")
		}
		sb.WriteString("    *" + accParam + " = " + body + ";\n")
		sb.WriteString("}\n")

	default: // each
		sb.WriteString("static void " + name + "(const void *_arg) {\n")
		sb.WriteString("    " + elemCT.Decl + " " + param + " = *(" + elemCT.Decl + "*)_arg;\n")
		for _, line := range prelude {
			sb.WriteString("    " + line + "\n")
		}
		sb.WriteString("    " + body + ";\n")
		sb.WriteString("}\n")
	}

	g.lambdas = append(g.lambdas, sb.String())
	return name
}

// emitLambda hoists a lambda passed to a user-defined higher-order function
// as a typed file-scope function and returns a pointer to it.
func (g *Generator) emitLambda(lam *ast.Lambda) string {
	ft, ok := lam.Type().(*types.FuncType)
	if !ok {
		ft = &types.FuncType{Return: types.IntegerType}
	}

	g.tmpCounter++
	name := fmt.Sprintf("_lambda_%d", g.tmpCounter)

	var params []string
	for i, p := range lam.Params {
		var pt types.Type = types.IntegerType
		if i < len(ft.Params) {
			pt = ft.Params[i]
		}
		params = append(params, MapType(pt).Decl+" "+p)
	}
	paramStr := "void"
	if len(params) > 0 {
		paramStr = strings.Join(params, ", ")
	}

	savedOut := g.out
	savedIndent := g.indent
	g.out = nil
	g.indent = 0
	body := g.emitExpr(lam.Body)
	prelude := g.out
	g.out = savedOut
	g.indent = savedIndent

	var sb strings.Builder
	sb.WriteString("static " + MapType(ft.Return).Decl + " " + name + "(" + paramStr + ") {\n")
	for _, line := range prelude {
		sb.WriteString("    " + line + "\n")
	}
	sb.WriteString("    return " + body + ";\n")
	sb.WriteString("}\n")

	g.lambdas = append(g.lambdas, sb.String())
	return name
}

// -----------------------------------------------------------------------------

// emitFailProp lowers a postfix `!`: evaluate into a temporary, early-return
// the error arm, unwrap the success payload.
func (g *Generator) emitFailProp(expr *ast.FailProp) string {
	tmp := g.tmp()
	g.line("Prove_Result " + tmp + " = " + g.emitExpr(expr.Operand) + ";")

	if g.inMain {
		g.line("if (prove_result_is_err(" + tmp + ")) {")
		g.indent++
		g.line("if (" + tmp + ".err) fprintf(stderr, \"error: %.*s\\n\", (int)" + tmp + ".err->length, " + tmp + ".err->data);")
		g.line("prove_runtime_cleanup();")
		g.line("return 1;")
		g.indent--
		g.line("}")
	} else {
		g.line("if (prove_result_is_err(" + tmp + ")) { return prove_result_err(" + tmp + ".err); }")
	}

	okType, _, isResult := types.ResultParts(expr.Operand.Type())
	if !isResult {
		return tmp
	}

	ct := MapType(okType)
	switch {
	case ct.Decl == "void":
		return tmp
	case ct.Pointer || strings.HasSuffix(ct.Decl, "*"):
		return "(" + ct.Decl + ")" + tmp + ".ok.p"
	case ct.Decl == "double" || ct.Decl == "float":
		return "(" + ct.Decl + ")" + tmp + ".ok.d"
	case isIntDecl(ct.Decl) || ct.Decl == "bool" || ct.Decl == "char":
		return "(" + ct.Decl + ")" + tmp + ".ok.i"
	default:
		return "(*(" + ct.Decl + "*)" + tmp + ".ok.p)"
	}
}

// emitValid renders the valid forms: a bare reference becomes a function
// pointer to the validates variant, a call evaluates it.
func (g *Generator) emitValid(v *ast.Valid) string {
	if v.Sym == nil {
		return "false"
	}
	ft := v.Sym.Type.(*types.FuncType)
	mangled := MangleFunc("validates", v.Sym.Name, ft.Params)

	if v.Args == nil {
		return mangled
	}
	return mangled + "(" + g.emitArgs(v.Args) + ")"
}

// emitMatchValue lowers a match in value position through a result
// temporary.
func (g *Generator) emitMatchValue(m *ast.Match) string {
	resultType := m.Type()
	if isUnit(resultType) {
		g.emitMatch(m, "")
		return ""
	}

	dest := g.tmp()
	g.line(MapType(resultType).Decl + " " + dest + ";")
	g.emitMatch(m, dest)
	return dest
}

// emitBinary renders a binary operation with string-aware equality and
// concatenation.
func (g *Generator) emitBinary(expr *ast.Binary) string {
	lhs := g.emitExpr(expr.Lhs)
	rhs := g.emitExpr(expr.Rhs)

	if types.IsString(expr.Lhs.Type()) {
		switch expr.Op {
		case "+":
			return "prove_string_concat(" + lhs + ", " + rhs + ")"
		case "==":
			return "prove_string_eq(" + lhs + ", " + rhs + ")"
		case "!=":
			return "(!prove_string_eq(" + lhs + ", " + rhs + "))"
		}
	}

	return "(" + lhs + " " + expr.Op + " " + rhs + ")"
}

// emitInterp folds a format string into a chain of runtime concatenations.
func (g *Generator) emitInterp(expr *ast.InterpString) string {
	var parts []string
	for _, part := range expr.Parts {
		if lit, ok := part.(*ast.StringLit); ok {
			if lit.Value == "" {
				continue
			}
			parts = append(parts, `prove_string_from_cstr("`+escapeCString(lit.Value)+`")`)
			continue
		}
		parts = append(parts, g.toStringCall(g.emitExpr(part), part.Type()))
	}

	if len(parts) == 0 {
		return `prove_string_from_cstr("")`
	}

	result := parts[0]
	for _, part := range parts[1:] {
		result = "prove_string_concat(" + result + ", " + part + ")"
	}
	return result
}

// emitField renders field access; heap-typed roots use the arrow form.
func (g *Generator) emitField(expr *ast.FieldAccess) string {
	root := g.emitExpr(expr.Root)
	if MapType(expr.Root.Type()).Pointer {
		return root + "->" + expr.Field
	}
	return root + "." + expr.Field
}

// emitIndex renders list and string indexing.
func (g *Generator) emitIndex(expr *ast.Index) string {
	root := g.emitExpr(expr.Root)
	idx := g.emitExpr(expr.Subject)

	if lt, ok := types.StripRefinements(expr.Root.Type()).(*types.ListType); ok {
		elemCT := MapType(lt.Elem)
		g.headers["prove_list.h"] = struct{}{}
		return "(*(" + elemCT.Decl + "*)prove_list_get(" + root + ", " + idx + "))"
	}
	if types.IsString(expr.Root.Type()) {
		return "prove_string_char_at(" + root + ", " + idx + ")"
	}
	return root + "[" + idx + "]"
}

// emitListLit builds a list literal through a temporary.
func (g *Generator) emitListLit(expr *ast.ListLit) string {
	g.headers["prove_list.h"] = struct{}{}

	if len(expr.Elems) == 0 {
		return "prove_list_new(sizeof(int64_t), 4)"
	}

	elemCT := MapType(expr.Elems[0].Type())
	tmp := g.tmp()
	g.line("Prove_List *" + tmp + " = prove_list_new(sizeof(" + elemCT.Decl + "), " +
		fmt.Sprintf("%d", len(expr.Elems)) + ");")
	for _, elem := range expr.Elems {
		etmp := g.tmp()
		g.line(elemCT.Decl + " " + etmp + " = " + g.emitExpr(elem) + ";")
		g.line("prove_list_push(&" + tmp + ", &" + etmp + ");")
	}
	return tmp
}
