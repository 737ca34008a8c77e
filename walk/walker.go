// Package walk implements the type and verb checker.  It types every
// expression bidirectionally, enforces purity, fallibility, exhaustiveness,
// and refinement bounds, and records generic instantiations for the
// emitter's monomorphization.
package walk

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// Walker checks one module.
type Walker struct {
	mod   *ast.Module
	table *symbols.Table
	mono  *types.MonoTable

	// The function currently being checked, nil inside main.
	currentFunc *ast.FuncDef
	currentMain *ast.MainDef

	// comptimeDepth is positive inside comptime blocks, the only context
	// where if/else is legal.
	comptimeDepth int

	// lambdaDepth is positive inside lambda bodies, which must stay pure.
	lambdaDepth int

	// Calls records the user functions each checked function calls, for the
	// verifier's chain analysis.
	Calls map[*symbols.Symbol][]*symbols.Symbol
}

// NewWalker creates a checker over a resolved module.
func NewWalker(mod *ast.Module, table *symbols.Table) *Walker {
	return &Walker{
		mod:   mod,
		table: table,
		mono:  types.NewMonoTable(),
		Calls: make(map[*symbols.Symbol][]*symbols.Symbol),
	}
}

// Mono returns the module's monomorphization table.
func (w *Walker) Mono() *types.MonoTable {
	return w.mono
}

// Walk checks every definition in the module.  The return value is false if
// checking reported any errors.
func (w *Walker) Walk() bool {
	before := report.ErrorCount()

	for _, def := range w.mod.Defs {
		w.walkDef(def)
	}

	// Termination runs once the whole call graph is recorded, so
	// same-module cycles through later functions are seen.
	for _, def := range w.mod.Defs {
		if fd, ok := def.(*ast.FuncDef); ok {
			w.checkTermination(fd)
		}
	}

	return report.ErrorCount() == before
}

// walkDef checks one definition, catching stage-local panics.
func (w *Walker) walkDef(def ast.Def) {
	defer report.CatchErrors()

	switch def := def.(type) {
	case *ast.FuncDef:
		w.walkFunc(def)
	case *ast.MainDef:
		w.walkMain(def)
	case *ast.ConstDef:
		w.walkConst(def)
	}
}

// -----------------------------------------------------------------------------

// walkFunc checks one function definition: verb rules, the annotation
// contracts, the body, and the terminal value against the return type.
func (w *Walker) walkFunc(fd *ast.FuncDef) {
	if fd.Sym == nil {
		return
	}

	ft, ok := fd.Sym.Type.(*types.FuncType)
	if !ok {
		return
	}

	w.currentFunc = fd
	w.currentMain = nil
	defer func() {
		w.currentFunc = nil
	}()

	w.checkAnnotContracts(fd, ft)
	w.checkMatchesShape(fd, ft)

	bodyType := w.walkBody(fd.Body, ft.Return)

	if types.IsUnknown(bodyType) {
		return
	}

	// The terminal expression must produce the declared return type.  A
	// failable function's body yields the success arm.
	expected := ft.Return
	if fd.CanFail {
		if okType, _, isResult := types.ResultParts(ft.Return); isResult {
			if !w.assignable(bodyType, okType) && !w.assignable(bodyType, ft.Return) {
				report.Error(w.bodySpan(fd), "E322",
					"return type mismatch: expected `%s`, got `%s`", okType.Repr(), bodyType.Repr())
			}
			return
		}
	}

	if _, isUnit := expected.(types.UnitType); !isUnit && !w.assignable(bodyType, expected) {
		report.Error(w.bodySpan(fd), "E322",
			"return type mismatch: expected `%s`, got `%s`", expected.Repr(), bodyType.Repr())
	}
}

func (w *Walker) bodySpan(fd *ast.FuncDef) report.Span {
	if len(fd.Body) > 0 {
		return fd.Body[len(fd.Body)-1].Span()
	}
	return fd.Span()
}

// walkMain checks the entry point body.
func (w *Walker) walkMain(md *ast.MainDef) {
	w.currentMain = md
	w.currentFunc = nil
	defer func() {
		w.currentMain = nil
	}()

	w.walkBody(md.Body, types.Unit)
}

// walkConst checks a constant's initializer against its declared type.
func (w *Walker) walkConst(cd *ast.ConstDef) {
	var expected types.Type
	if cd.Sym != nil && cd.Sym.Type != nil && !types.IsUnknown(cd.Sym.Type) {
		expected = cd.Sym.Type
	}

	inferred := w.inferExpr(cd.Value, expected)

	if expected != nil && !w.assignable(inferred, expected) {
		report.Error(cd.Value.Span(), "E321",
			"type mismatch: expected `%s`, got `%s`", expected.Repr(), inferred.Repr())
		return
	}

	if cd.Sym != nil && expected == nil {
		cd.Sym.Type = inferred
	}

	w.checkRefinementAssign(cd.Value, expected, nil)
}

// -----------------------------------------------------------------------------

// checkAnnotContracts type-checks the contract annotations of a function.
func (w *Walker) checkAnnotContracts(fd *ast.FuncDef, ft *types.FuncType) {
	for _, annot := range fd.Annots {
		switch annot.Kind {
		case ast.AnnotRequires:
			w.requireBoolean(annot.Expr, "E381", "requires")
		case ast.AnnotEnsures:
			w.requireBoolean(annot.Expr, "E380", "ensures")
		case ast.AnnotKnow:
			w.requireBoolean(annot.Expr, "E384", "know")
		case ast.AnnotAssume:
			w.requireBoolean(annot.Expr, "E385", "assume")
		case ast.AnnotBelieve:
			w.requireBoolean(annot.Expr, "E386", "believe")
		case ast.AnnotTerminates:
			t := w.inferExpr(annot.Expr, nil)
			if !types.IsUnknown(t) && !measurableType(t) {
				report.Error(annot.Expr.Span(), "E383",
					"terminates measure must be numeric, got `%s`", t.Repr())
			}
		case ast.AnnotNearMiss:
			w.inferExpr(annot.Input, nil)
			w.inferExpr(annot.Expected, nil)
		}
	}
}

// measurableType accepts the types a terminates measure may have: numbers
// shrink by decrement, lists by length, algebraic values structurally.
func measurableType(t types.Type) bool {
	if types.IsNumeric(t) {
		return true
	}
	switch types.StripRefinements(t).(type) {
	case *types.ListType, *types.AlgebraicType:
		return true
	default:
		return false
	}
}

func (w *Walker) requireBoolean(expr ast.Expr, code, what string) {
	t := w.inferExpr(expr, types.BooleanType)
	if !types.IsUnknown(t) && !types.IsBoolean(t) {
		report.Error(expr.Span(), code, "%s expression must be Boolean, got `%s`", what, t.Repr())
	}
}

// checkMatchesShape enforces the shape rules of the matches verb: an
// algebraic first parameter and an implicit-match body.
func (w *Walker) checkMatchesShape(fd *ast.FuncDef, ft *types.FuncType) {
	if fd.Verb != "matches" {
		return
	}

	if len(ft.Params) == 0 {
		report.Error(fd.NameSpan, "E369", "matches requires an algebraic first parameter")
		return
	}

	if _, ok := types.StripRefinements(ft.Params[0]).(*types.AlgebraicType); !ok {
		if !types.IsUnknown(ft.Params[0]) {
			report.Error(fd.Params[0].NameSpan, "E369",
				"matches requires an algebraic first parameter, got `%s`", ft.Params[0].Repr())
		}
	}
}

// -----------------------------------------------------------------------------

// assignable reports whether a value of type `from` may flow into a slot of
// type `to`, with refinement subsumption but without inserting checks.
func (w *Walker) assignable(from, to types.Type) bool {
	if types.IsUnknown(from) || types.IsUnknown(to) {
		return true
	}

	from = types.EraseStorageMods(from)
	to = types.EraseStorageMods(to)
	if _, never := types.StripRefinements(from).(types.NeverType); never {
		return true
	}

	if types.SubsumedBy(from, to) {
		return true
	}

	// A refinement target accepts its base; the static/runtime split is
	// handled by checkRefinementAssign.
	if _, isRef := to.(types.RefinedType); isRef {
		return types.Equal(types.StripRefinements(from), types.StripRefinements(to))
	}

	sub := types.Substitution{}
	return types.Unify(to, from, sub)
}
