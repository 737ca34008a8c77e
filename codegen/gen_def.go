package codegen

import (
	"strconv"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/types"
)

// emitTypeForwards emits a typedef forward for every user type so bodies
// can reference each other in any order.
func (g *Generator) emitTypeForwards() {
	emitted := false
	for _, def := range g.mod.Defs {
		td, ok := def.(*ast.TypeDef)
		if !ok || td.Sym == nil {
			continue
		}
		switch td.Sym.Type.(type) {
		case *types.RecordType, *types.AlgebraicType:
			cname := MangleTypeName(td.Name)
			g.line("typedef struct " + cname + " " + cname + ";")
			emitted = true
		}
	}
	if emitted {
		g.line("")
	}
}

// emitTypeDefs emits record structs and algebraic tagged unions with their
// constructor helpers.  Refinements erase to their base C type and emit
// nothing.
func (g *Generator) emitTypeDefs() {
	for _, def := range g.mod.Defs {
		td, ok := def.(*ast.TypeDef)
		if !ok || td.Sym == nil {
			continue
		}

		switch t := td.Sym.Type.(type) {
		case *types.RecordType:
			g.emitRecord(t)
		case *types.AlgebraicType:
			g.emitAlgebraic(t)
		}
	}
}

// emitRecord emits a C struct with the record's fields in declaration
// order.
func (g *Generator) emitRecord(rt *types.RecordType) {
	cname := MangleTypeName(rt.Name)

	g.line("struct " + cname + " {")
	g.indent++
	for _, field := range rt.Fields {
		g.line(MapType(field.Type).Decl + " " + field.Name + ";")
	}
	g.indent--
	g.line("};")
	g.line("")
}

// emitAlgebraic emits the tag enum, the tagged-union struct, and one inline
// constructor helper per variant.
func (g *Generator) emitAlgebraic(at *types.AlgebraicType) {
	cname := MangleTypeName(at.Name)

	g.line("enum {")
	g.indent++
	for i, variant := range at.Variants {
		g.line(VariantTag(at.Name, variant.Name) + " = " + strconv.Itoa(i) + ",")
	}
	g.indent--
	g.line("};")
	g.line("")

	g.line("struct " + cname + " {")
	g.indent++
	g.line("uint8_t tag;")
	g.line("union {")
	g.indent++
	for _, variant := range at.Variants {
		if len(variant.Fields) == 0 {
			g.line("uint8_t _" + variant.Name + ";")
			continue
		}
		g.line("struct {")
		g.indent++
		for _, field := range variant.Fields {
			g.line(MapType(field.Type).Decl + " " + field.Name + ";")
		}
		g.indent--
		g.line("} " + variant.Name + ";")
	}
	g.indent--
	g.line("} payload;")
	g.indent--
	g.line("};")
	g.line("")

	for _, variant := range at.Variants {
		g.emitVariantCtor(at, variant)
	}
}

func (g *Generator) emitVariantCtor(at *types.AlgebraicType, variant *types.Variant) {
	cname := MangleTypeName(at.Name)

	var params []string
	for _, field := range variant.Fields {
		params = append(params, MapType(field.Type).Decl+" "+field.Name)
	}
	paramStr := "void"
	if len(params) > 0 {
		paramStr = strings.Join(params, ", ")
	}

	g.line("static inline " + cname + " " + VariantCtor(at.Name, variant.Name) + "(" + paramStr + ") {")
	g.indent++
	g.line(cname + " _v;")
	g.line("_v.tag = " + VariantTag(at.Name, variant.Name) + ";")
	for _, field := range variant.Fields {
		g.line("_v.payload." + variant.Name + "." + field.Name + " = " + field.Name + ";")
	}
	g.line("return _v;")
	g.indent--
	g.line("}")
	g.line("")
}

// -----------------------------------------------------------------------------

// emitFunctionForwards emits forward declarations for every user function.
func (g *Generator) emitFunctionForwards() {
	emitted := false
	for _, def := range g.mod.Defs {
		fd, ok := def.(*ast.FuncDef)
		if !ok || fd.Sym == nil {
			continue
		}
		ft, ok := fd.Sym.Type.(*types.FuncType)
		if !ok || hasGenericSignature(ft) {
			continue
		}

		g.line(g.prototype(MangleFunc(fd.Verb, fd.Name, ft.Params), ft, nil) + ";")
		emitted = true
	}
	if emitted {
		g.line("")
	}
}

func hasGenericSignature(ft *types.FuncType) bool {
	for _, p := range ft.Params {
		if types.ContainsParams(p) {
			return true
		}
	}
	return types.ContainsParams(ft.Return)
}

// -----------------------------------------------------------------------------

// emitFunction emits one function definition.  Generic functions are
// emitted once per recorded instantiation; everything else once.
func (g *Generator) emitFunction(fd *ast.FuncDef) {
	if fd.Sym == nil {
		return
	}
	ft, ok := fd.Sym.Type.(*types.FuncType)
	if !ok {
		return
	}

	if hasGenericSignature(ft) {
		key := fd.Verb + "_" + fd.Name + "_" + types.ParamKey(ft.Params)
		for _, inst := range g.mono.Of(key) {
			mono := &types.FuncType{
				Verb:    ft.Verb,
				Params:  substituteAll(ft.Params, inst.Sub),
				Return:  types.Substitute(ft.Return, inst.Sub),
				CanFail: ft.CanFail,
			}
			g.emitFunctionBody(fd, mono)
		}
		return
	}

	g.emitFunctionBody(fd, ft)
}

func substituteAll(params []types.Type, sub types.Substitution) []types.Type {
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = types.Substitute(p, sub)
	}
	return out
}

// emitFunctionBody emits the C body of one (possibly monomorphized)
// function.
func (g *Generator) emitFunctionBody(fd *ast.FuncDef, ft *types.FuncType) {
	g.currentReturn = ft.Return
	g.currentCanFail = fd.CanFail
	g.inMain = false
	g.ownedLocals = nil

	g.implicitSubject = ""
	g.implicitSubjectType = types.Unknown
	if len(fd.Params) > 0 && len(ft.Params) > 0 {
		g.implicitSubject = fd.Params[0].Name
		g.implicitSubjectType = ft.Params[0]
	}

	paramNames := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		paramNames[i] = p.Name
	}

	g.line(g.prototype(MangleFunc(fd.Verb, fd.Name, ft.Params), ft, paramNames) + " {")
	g.indent++

	// Contract checks at the boundary: assume inserts a runtime validator,
	// and requires becomes a check when it was not discharged statically.
	for _, annot := range fd.Annots {
		switch annot.Kind {
		case ast.AnnotAssume:
			cond := g.emitExpr(annot.Expr)
			g.line(`if (!(` + cond + `)) prove_panic("assumption violated in ` + fd.Name + `");`)
		case ast.AnnotRequires:
			cond := g.emitExpr(annot.Expr)
			g.line(`if (!(` + cond + `)) prove_panic("requires violated in ` + fd.Name + `");`)
		}
	}

	// Parameter refinements become entry checks.
	for i, p := range fd.Params {
		if i >= len(ft.Params) {
			break
		}
		if refined, ok := ft.Params[i].(types.RefinedType); ok {
			g.emitConstraintCheck(p.Name, refined)
		}
	}

	g.emitBody(fd.Body, ft.Return, fd.CanFail)

	g.indent--
	g.line("}")
	g.line("")
}

// -----------------------------------------------------------------------------

// emitMain emits the C entry point: runtime init, argv handover, the user
// body, Result error handling, and cleanup.
func (g *Generator) emitMain(md *ast.MainDef) {
	g.currentReturn = types.Unit
	g.currentCanFail = md.CanFail
	g.inMain = true
	g.ownedLocals = nil

	g.line("int main(int argc, char **argv) {")
	g.indent++
	g.line("prove_runtime_init();")
	g.line("prove_io_init_args(argc, argv);")

	for _, stmt := range md.Body {
		g.emitStmt(stmt)
	}

	g.emitReleases("")
	g.line("prove_runtime_cleanup();")
	g.line("return 0;")
	g.indent--
	g.line("}")
	g.line("")

	g.inMain = false
}

