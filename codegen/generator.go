package codegen

import (
	"fmt"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
	"github.com/kennedyshead/prove/util"
)

// Unit is one generated C translation unit.
type Unit struct {
	// Name is the unit's file name, eg. "geometry.c".
	Name string

	// Source is the complete C source text.
	Source string

	// Libraries lists the system libraries foreign blocks bind, for the
	// driver's linker flags.
	Libraries []string
}

// Generator emits one module into a C translation unit.
type Generator struct {
	mod   *ast.Module
	table *symbols.Table
	mono  *types.MonoTable

	out    []string
	indent int

	tmpCounter int

	// Hoisted file-scope lambda definitions, inserted before the function
	// bodies that reference them.
	lambdas []string

	// headers is the set of runtime headers the unit needs.
	headers map[string]struct{}

	// ownedLocals tracks the pointer-typed locals of the current function
	// that own a reference and are released at scope exit.
	ownedLocals []ownedLocal

	// selfName substitutes for the identifier `self` while emitting an
	// inlined refinement check.
	selfName string

	currentReturn  types.Type
	currentCanFail bool
	inMain         bool

	// implicitSubject names the first parameter of the current function for
	// implicit-match bodies; implicitSubjectType is its type.
	implicitSubject     string
	implicitSubjectType types.Type

	foreignLibs map[string]struct{}
}

type ownedLocal struct {
	name  string
	arena bool
}

// NewGenerator creates a generator for a checked module.
func NewGenerator(mod *ast.Module, table *symbols.Table, mono *types.MonoTable) *Generator {
	g := &Generator{
		mod:         mod,
		table:       table,
		mono:        mono,
		headers:     make(map[string]struct{}),
		foreignLibs: make(map[string]struct{}),
	}
	for _, def := range mod.Defs {
		if fb, ok := def.(*ast.ForeignBlock); ok {
			g.foreignLibs[fb.Library] = struct{}{}
		}
	}
	return g
}

// Generate emits the complete translation unit for the module.  Emitting
// the same typed AST twice produces byte-identical C.
func (g *Generator) Generate(unitName string) *Unit {
	g.headers["prove_runtime.h"] = struct{}{}
	g.headers["prove_string.h"] = struct{}{}
	g.headers["prove_result.h"] = struct{}{}
	for _, def := range g.mod.Defs {
		if _, ok := def.(*ast.MainDef); ok {
			g.headers["prove_input_output.h"] = struct{}{}
		}
	}
	g.collectHeaders()

	g.emitIncludes()
	g.line("")
	g.emitTypeForwards()
	g.emitTypeDefs()
	g.emitConstants()
	g.emitForeignDecls()
	g.emitFunctionForwards()

	lambdaPos := len(g.out)

	for _, def := range g.mod.Defs {
		if fd, ok := def.(*ast.FuncDef); ok {
			g.emitFunction(fd)
		}
	}
	for _, def := range g.mod.Defs {
		if md, ok := def.(*ast.MainDef); ok {
			g.emitMain(md)
			break
		}
	}

	// Hoisted lambdas go before the functions that reference them.
	if len(g.lambdas) > 0 {
		hoisted := append([]string{}, g.lambdas...)
		rest := append([]string{}, g.out[lambdaPos:]...)
		g.out = append(g.out[:lambdaPos], hoisted...)
		g.out = append(g.out, rest...)
	}

	libs := util.SortedKeys(g.foreignLibs)

	return &Unit{
		Name:      unitName,
		Source:    strings.Join(g.out, "\n") + "\n",
		Libraries: libs,
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) line(text string) {
	if text == "" {
		g.out = append(g.out, "")
		return
	}
	g.out = append(g.out, strings.Repeat("    ", g.indent)+text)
}

func (g *Generator) tmp() string {
	g.tmpCounter++
	return fmt.Sprintf("_tmp%d", g.tmpCounter)
}

// collectHeaders pre-scans the symbol table for the runtime headers the
// unit's signatures need.
func (g *Generator) collectHeaders() {
	g.table.Functions(func(_ symbols.FuncKey, sym *symbols.Symbol) {
		ft, ok := sym.Type.(*types.FuncType)
		if !ok {
			return
		}
		for _, p := range ft.Params {
			if ct := MapType(p); ct.Header != "" {
				g.headers[ct.Header] = struct{}{}
			}
		}
		if ct := MapType(ft.Return); ct.Header != "" {
			g.headers[ct.Header] = struct{}{}
		}
	})
}

// foreignHeaders maps known foreign library names to their C headers.
var foreignHeaders = map[string]string{
	"libm":       "math.h",
	"libpthread": "pthread.h",
	"libdl":      "dlfcn.h",
	"librt":      "time.h",
}

func (g *Generator) emitIncludes() {
	g.line("#include <stdint.h>")
	g.line("#include <stdbool.h>")
	g.line("#include <stdlib.h>")
	g.line("#include <stdio.h>")

	for _, lib := range util.SortedKeys(g.foreignLibs) {
		if header, ok := foreignHeaders[lib]; ok {
			g.line("#include <" + header + ">")
		}
	}

	for _, h := range util.SortedKeys(g.headers) {
		g.line(`#include "` + h + `"`)
	}
}

// -----------------------------------------------------------------------------

// emitConstants emits module-level constants as C globals.
func (g *Generator) emitConstants() {
	emitted := false
	for _, def := range g.mod.Defs {
		cd, ok := def.(*ast.ConstDef)
		if !ok || cd.Sym == nil {
			continue
		}

		if types.IsString(cd.Sym.Type) {
			// String constants construct a runtime string at each use.
			if lit, ok := cd.Value.(*ast.StringLit); ok {
				g.line("#define " + cd.Name + ` prove_string_from_cstr("` + escapeCString(lit.Value) + `")`)
				emitted = true
			}
			continue
		}

		ct := MapType(cd.Sym.Type)
		value := g.emitConstValue(cd.Value)
		g.line("static const " + ct.Decl + " " + cd.Name + " = " + value + ";")
		emitted = true
	}
	if emitted {
		g.line("")
	}
}

// emitConstValue renders a constant initializer.  Non-literal initializers
// were folded by the checker; anything still dynamic falls back to zero.
func (g *Generator) emitConstValue(expr ast.Expr) string {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%dL", expr.Value)
	case *ast.DecimalLit:
		return expr.Text
	case *ast.BoolLit:
		return fmt.Sprintf("%t", expr.Value)
	case *ast.StringLit:
		return `"` + escapeCString(expr.Value) + `"`
	case *ast.Unary:
		if expr.Op == "-" {
			return "-" + g.emitConstValue(expr.Operand)
		}
	case *ast.Binary:
		return "(" + g.emitConstValue(expr.Lhs) + " " + expr.Op + " " + g.emitConstValue(expr.Rhs) + ")"
	}
	return "0"
}

// emitForeignDecls emits extern declarations for foreign bindings.
func (g *Generator) emitForeignDecls() {
	emitted := false
	for _, def := range g.mod.Defs {
		fb, ok := def.(*ast.ForeignBlock)
		if !ok {
			continue
		}
		for _, ff := range fb.Funcs {
			if ff.Sym == nil {
				continue
			}
			ft := ff.Sym.Type.(*types.FuncType)
			g.line("extern " + g.prototype(ff.Name, ft, nil) + ";")
			emitted = true
		}
	}
	if emitted {
		g.line("")
	}
}

// prototype renders a C function prototype.  Parameter names come from
// `paramNames` when given.
func (g *Generator) prototype(cname string, ft *types.FuncType, paramNames []string) string {
	ret := MapType(ft.Return).Decl
	if ft.CanFail {
		ret = "Prove_Result"
	}

	var params []string
	for i, p := range ft.Params {
		decl := MapType(p).Decl
		if paramNames != nil && i < len(paramNames) {
			decl += " " + paramNames[i]
		}
		params = append(params, decl)
	}
	paramStr := "void"
	if len(params) > 0 {
		paramStr = strings.Join(params, ", ")
	}

	return ret + " " + cname + "(" + paramStr + ")"
}

// escapeCString escapes a string for a C source literal.
func escapeCString(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		`"`, `\"`,
		"\n", "\\n",
		"\r", "\\r",
		"\t", "\\t",
		"\x00", "\\0",
	)
	return r.Replace(s)
}
