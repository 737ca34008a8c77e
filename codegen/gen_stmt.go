package codegen

import (
	"fmt"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/types"
)

// emitBody emits a function body.  The final non-var-decl expression is the
// return value; failable functions wrap it into the Result ok arm.
func (g *Generator) emitBody(body []ast.Stmt, retType types.Type, canFail bool) {
	for i, stmt := range body {
		if i < len(body)-1 {
			g.emitStmt(stmt)
			continue
		}

		terminal := terminalExpr(stmt)
		if terminal == nil {
			g.emitStmt(stmt)
			g.emitReleases("")
			if canFail {
				g.line("return prove_result_ok_unit();")
			}
			return
		}

		switch {
		case canFail:
			okType, _, _ := types.ResultParts(retType)
			value := g.emitExpr(terminal)
			if MapType(terminal.Type()).Decl == "Prove_Result" {
				tmp := g.tmp()
				g.line("Prove_Result " + tmp + " = " + value + ";")
				g.emitReleases("")
				g.line("return " + tmp + ";")
				return
			}
			g.emitOkReturn(value, okType, terminal.Type())

		case isUnit(retType):
			g.emitStmt(stmt)
			g.emitReleases("")

		default:
			// Returning an owned local directly elides its no-op
			// retain/release pair.
			if id, ok := terminal.(*ast.Identifier); ok && g.ownsLocal(id.Name) {
				g.emitReleases(id.Name)
				g.line("return " + id.Name + ";")
				return
			}

			ct := MapType(retType)
			tmp := g.tmp()
			g.line(ct.Decl + " " + tmp + " = " + g.emitExpr(terminal) + ";")
			g.emitReleases(tmp)
			g.line("return " + tmp + ";")
		}
	}

	if len(body) == 0 {
		if canFail {
			g.line("return prove_result_ok_unit();")
		}
	}
}

func isUnit(t types.Type) bool {
	_, ok := types.StripRefinements(t).(types.UnitType)
	return ok
}

func terminalExpr(stmt ast.Stmt) ast.Expr {
	if es, ok := stmt.(*ast.ExprStmt); ok {
		return es.Expr
	}
	return nil
}

// emitOkReturn wraps a success value into the payload-carrying Result.
func (g *Generator) emitOkReturn(value string, okType, actual types.Type) {
	if okType == nil {
		okType = actual
	}

	tmp := g.tmp()
	ct := MapType(okType)
	if ct.Decl == "void" {
		g.line(value + ";")
		g.emitReleases("")
		g.line("return prove_result_ok_unit();")
		return
	}

	g.line(ct.Decl + " " + tmp + " = " + value + ";")
	g.emitReleases(tmp)
	g.line("return " + g.okCtor(tmp, okType) + ";")
}

// okCtor renders the Result ok constructor for a value of the given type.
// Scalars ride the int or double payload arm; heap values the pointer arm;
// by-value structs are boxed.
func (g *Generator) okCtor(value string, t types.Type) string {
	ct := MapType(t)
	switch {
	case ct.Pointer || ct.Decl == "Prove_String*" || ct.Decl == "Prove_List*" || ct.Decl == "Prove_Table*":
		return "prove_result_ok_ptr(" + value + ")"
	case ct.Decl == "double" || ct.Decl == "float":
		return "prove_result_ok_double(" + value + ")"
	case ct.Decl == "bool" || ct.Decl == "char" || isIntDecl(ct.Decl):
		return "prove_result_ok_int((int64_t)" + value + ")"
	default:
		box := g.tmp()
		g.line(ct.Decl + " *" + box + " = prove_alloc(sizeof(" + ct.Decl + "));")
		g.line("*" + box + " = " + value + ";")
		return "prove_result_ok_ptr(" + box + ")"
	}
}

func isIntDecl(decl string) bool {
	switch decl {
	case "int8_t", "int16_t", "int32_t", "int64_t",
		"uint8_t", "uint16_t", "uint32_t", "uint64_t":
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// emitStmt emits one statement.
func (g *Generator) emitStmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.VarDecl:
		g.emitVarDecl(stmt)

	case *ast.Assign:
		g.line(stmt.Name + " = " + g.emitExpr(stmt.Value) + ";")

	case *ast.ExprStmt:
		if m, ok := stmt.Expr.(*ast.Match); ok {
			g.emitMatch(m, "")
			return
		}
		value := g.emitExpr(stmt.Expr)
		if value != "" {
			g.line(value + ";")
		}
	}
}

// emitVarDecl emits a local declaration, retaining heap values the local
// now owns and inserting the refinement check the checker requested.
func (g *Generator) emitVarDecl(vd *ast.VarDecl) {
	var declared types.Type = types.Unknown
	if vd.Sym != nil && vd.Sym.Type != nil {
		declared = vd.Sym.Type
	}

	ct := MapType(declared)
	g.line(ct.Decl + " " + vd.Name + " = " + g.emitExpr(vd.Value) + ";")

	arena := isArenaType(declared)
	if ct.Pointer && !arena {
		// Storing an existing value into a longer-lived local takes a new
		// reference; fresh values already hand over theirs.
		if aliasesExisting(vd.Value) {
			g.line("prove_retain(" + vd.Name + ");")
		}
		g.ownedLocals = append(g.ownedLocals, ownedLocal{name: vd.Name})
	}

	if vd.NeedsCheck {
		if refined, ok := declared.(types.RefinedType); ok {
			g.emitConstraintCheck(vd.Name, refined)
		}
	}
}

// aliasesExisting reports whether an initializer aliases a value that
// something else still owns, rather than producing a fresh one.
func aliasesExisting(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.FieldAccess, *ast.Index:
		return true
	default:
		return false
	}
}

// isArenaType reports whether a type carries the Arena modifier: arena
// values are freed en masse by the caller's arena scope, never ref-counted.
func isArenaType(t types.Type) bool {
	pt, ok := types.StripRefinements(t).(types.PrimitiveType)
	return ok && pt.HasMod("Arena")
}

// ownsLocal reports whether a name is an owned pointer local of the current
// function.
func (g *Generator) ownsLocal(name string) bool {
	for _, local := range g.ownedLocals {
		if local.name == name {
			return true
		}
	}
	return false
}

// emitReleases releases every owned local except the one being returned.
func (g *Generator) emitReleases(skip string) {
	for _, local := range g.ownedLocals {
		if local.name == skip || local.arena {
			continue
		}
		g.line("prove_release(" + local.name + ");")
	}
}

// -----------------------------------------------------------------------------

// emitConstraintCheck emits the runtime refinement check for a variable.
func (g *Generator) emitConstraintCheck(varName string, refined types.RefinedType) {
	cond := g.constraintCond(varName, refined.Constraint)
	if cond == "" {
		return
	}

	name := refined.Name
	if name == "" {
		name = refined.Base.Repr()
	}
	g.line("if (!(" + cond + `)) prove_panic("refinement of ` + name + ` violated");`)
}

// constraintCond renders a constraint as a C condition over a variable.
func (g *Generator) constraintCond(varName string, c types.Constraint) string {
	switch c := c.(type) {
	case types.RangeConstraint:
		return fmt.Sprintf("%s >= %dL && %s <= %dL", varName, c.Lo, varName, c.Hi)

	case types.CmpConstraint:
		return varName + " " + c.Op + " " + constValueC(c.Bound)

	case types.EqConstraint:
		return varName + " == " + constValueC(c.Value)

	case types.AndConstraint:
		cond := ""
		for _, sub := range c.Conjuncts {
			part := g.constraintCond(varName, sub)
			if part == "" {
				continue
			}
			if cond != "" {
				cond += " && "
			}
			cond += "(" + part + ")"
		}
		return cond

	case types.OpaqueConstraint:
		expr, ok := c.Expr.(ast.Expr)
		if !ok {
			return ""
		}
		savedSelf := g.selfName
		g.selfName = varName
		cond := g.emitExpr(expr)
		g.selfName = savedSelf
		return cond

	default:
		return ""
	}
}

func constValueC(cv types.ConstValue) string {
	switch cv.Kind {
	case types.ConstInt:
		return fmt.Sprintf("%dL", cv.Int)
	case types.ConstDec:
		return fmt.Sprintf("%g", cv.Dec)
	case types.ConstBool:
		return fmt.Sprintf("%t", cv.Bool)
	default:
		return `"` + escapeCString(cv.Str) + `"`
	}
}

// -----------------------------------------------------------------------------

// emitMatch emits a match.  With `dest` empty the match is a statement;
// otherwise the arm results assign into `dest`, which the caller declared.
func (g *Generator) emitMatch(m *ast.Match, dest string) {
	subject, subjectType := g.matchSubject(m)

	at, isAlgebraic := types.StripRefinements(subjectType).(*types.AlgebraicType)
	if !isAlgebraic {
		g.emitLiteralMatch(m, subject, dest)
		return
	}

	subjTmp := g.tmp()
	g.line(MapType(subjectType).Decl + " " + subjTmp + " = " + subject + ";")
	g.line("switch (" + subjTmp + ".tag) {")

	for _, arm := range m.Arms {
		switch pattern := arm.Pattern.(type) {
		case *ast.VariantPattern:
			g.line("case " + VariantTag(at.Name, pattern.Name) + ": {")
			g.indent++
			g.bindVariantFields(subjTmp, at, pattern)
			g.emitArmBody(arm.Body, dest)
			g.line("break;")
			g.indent--
			g.line("}")

		case *ast.WildcardPattern, *ast.BindingPattern:
			g.line("default: {")
			g.indent++
			if binding, ok := pattern.(*ast.BindingPattern); ok {
				g.line(MapType(subjectType).Decl + " " + binding.Name + " = " + subjTmp + ";")
			}
			g.emitArmBody(arm.Body, dest)
			g.line("break;")
			g.indent--
			g.line("}")
		}
	}

	g.line("}")
}

// matchSubject renders the scrutinee.  An implicit match scrutinizes the
// enclosing function's first parameter.
func (g *Generator) matchSubject(m *ast.Match) (string, types.Type) {
	if m.Subject != nil {
		return g.emitExpr(m.Subject), m.Subject.Type()
	}
	return g.implicitSubject, g.implicitSubjectType
}

// bindVariantFields declares a local per bound field of a variant pattern.
func (g *Generator) bindVariantFields(subjTmp string, at *types.AlgebraicType, pattern *ast.VariantPattern) {
	variant := at.VariantNamed(pattern.Name)
	if variant == nil {
		return
	}

	for i, sub := range pattern.Fields {
		binding, ok := sub.(*ast.BindingPattern)
		if !ok || i >= len(variant.Fields) {
			continue
		}
		field := variant.Fields[i]
		g.line(MapType(field.Type).Decl + " " + binding.Name + " = " +
			subjTmp + ".payload." + pattern.Name + "." + field.Name + ";")
	}
}

// emitArmBody emits an arm body, assigning the terminal value into `dest`
// when the match is used as a value.
func (g *Generator) emitArmBody(body []ast.Stmt, dest string) {
	for i, stmt := range body {
		if dest != "" && i == len(body)-1 {
			if terminal := terminalExpr(stmt); terminal != nil {
				g.line(dest + " = " + g.emitExpr(terminal) + ";")
				return
			}
		}
		g.emitStmt(stmt)
	}
}

// emitLiteralMatch lowers a non-algebraic match into an if/else chain.
func (g *Generator) emitLiteralMatch(m *ast.Match, subject, dest string) {
	subjTmp := g.tmp()
	var subjType types.Type = types.IntegerType
	if m.Subject != nil {
		subjType = m.Subject.Type()
	} else {
		subjType = g.implicitSubjectType
	}
	g.line(MapType(subjType).Decl + " " + subjTmp + " = " + subject + ";")

	first := true
	closed := false
	for _, arm := range m.Arms {
		switch pattern := arm.Pattern.(type) {
		case *ast.LiteralPattern:
			cond := g.literalCond(subjTmp, pattern, subjType)
			if first {
				g.line("if (" + cond + ") {")
			} else {
				g.line("} else if (" + cond + ") {")
			}
			g.indent++
			g.emitArmBody(arm.Body, dest)
			g.indent--
			first = false

		case *ast.WildcardPattern, *ast.BindingPattern:
			if first {
				g.line("{")
			} else {
				g.line("} else {")
			}
			g.indent++
			if binding, ok := pattern.(*ast.BindingPattern); ok {
				g.line(MapType(subjType).Decl + " " + binding.Name + " = " + subjTmp + ";")
			}
			g.emitArmBody(arm.Body, dest)
			g.indent--
			g.line("}")
			closed = true
		}
	}
	if !first && !closed {
		g.line("}")
	}
}

// literalCond renders the comparison for one literal pattern.
func (g *Generator) literalCond(subj string, pattern *ast.LiteralPattern, subjType types.Type) string {
	if types.IsString(subjType) {
		return `prove_string_eq_cstr(` + subj + `, "` + escapeCString(pattern.Value) + `")`
	}
	switch pattern.Value {
	case "true":
		return subj
	case "false":
		return "!(" + subj + ")"
	}
	return subj + " == " + pattern.Value + "L"
}
