package walk

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
)

// checkTermination enforces the recursion rules: a recursive function
// (directly or through a same-module cycle) must declare a terminates
// measure, and each recursive call site must pass a provably smaller
// argument for the measured parameter.
func (w *Walker) checkTermination(fd *ast.FuncDef) {
	if fd.Sym == nil {
		return
	}
	if !w.onCycle(fd.Sym) {
		return
	}

	var measure *ast.Annot
	trusted := false
	for _, annot := range fd.Annots {
		switch annot.Kind {
		case ast.AnnotTerminates:
			measure = annot
		case ast.AnnotTrusted:
			trusted = true
		}
	}
	if trusted {
		return
	}

	if measure == nil {
		report.Add(&report.Diagnostic{
			Severity: report.SevError,
			Code:     "E366",
			Message:  "recursive function `" + fd.Name + "` missing terminates",
			Labels:   []report.Label{{Span: fd.NameSpan}},
			Notes:    []string{"declare `terminates: <measure>` naming the shrinking parameter"},
		})
		return
	}

	w.checkMeasure(fd, measure)
}

// onCycle reports whether a function can reach itself through the module's
// call graph, which covers both direct recursion and same-module cycles.
func (w *Walker) onCycle(sym *symbols.Symbol) bool {
	visited := make(map[*symbols.Symbol]bool)

	var reach func(from *symbols.Symbol) bool
	reach = func(from *symbols.Symbol) bool {
		for _, callee := range w.Calls[from] {
			if callee == sym {
				return true
			}
			if !visited[callee] {
				visited[callee] = true
				if reach(callee) {
					return true
				}
			}
		}
		return false
	}

	return reach(sym)
}

// -----------------------------------------------------------------------------

// checkMeasure verifies syntactically that the declared measure shrinks at
// every recursive call site: `len(p)` shrinking, integer decrement on the
// measured parameter, or an algebraic structural shrink through a pattern
// binding.
func (w *Walker) checkMeasure(fd *ast.FuncDef, measure *ast.Annot) {
	paramIdx := w.measuredParam(fd, measure.Expr)
	if paramIdx < 0 {
		report.Error(measure.Expr.Span(), "E366",
			"terminates measure must reference a parameter of `%s`", fd.Name)
		return
	}

	for _, site := range w.recursiveCallSites(fd) {
		if paramIdx >= len(site.Args) {
			continue
		}
		if !w.argStrictlySmaller(fd, paramIdx, site.Args[paramIdx]) {
			report.Add(&report.Diagnostic{
				Severity: report.SevError,
				Code:     "E366",
				Message:  "cannot verify that the terminates measure shrinks at this recursive call",
				Labels: []report.Label{
					{Span: site.Args[paramIdx].Span()},
					{Span: measure.Expr.Span(), Message: "measure declared here", Secondary: true},
				},
			})
		}
	}
}

// measuredParam finds the parameter index the measure expression references:
// either the parameter itself or `len(param)`.
func (w *Walker) measuredParam(fd *ast.FuncDef, measure ast.Expr) int {
	var name string

	switch measure := measure.(type) {
	case *ast.Identifier:
		name = measure.Name
	case *ast.Call:
		if fn, ok := measure.Func.(*ast.Identifier); ok && fn.Name == "len" && len(measure.Args) == 1 {
			if arg, ok := measure.Args[0].(*ast.Identifier); ok {
				name = arg.Name
			}
		}
	case *ast.Binary:
		if lhs, ok := measure.Lhs.(*ast.Identifier); ok {
			name = lhs.Name
		}
	}

	for i, param := range fd.Params {
		if param.Name == name {
			return i
		}
	}
	return -1
}

// argStrictlySmaller applies the three syntactic shrink rules to the
// argument passed for the measured parameter at a recursive call site.
func (w *Walker) argStrictlySmaller(fd *ast.FuncDef, paramIdx int, arg ast.Expr) bool {
	paramName := fd.Params[paramIdx].Name

	switch arg := arg.(type) {
	case *ast.Binary:
		// Integer decrement: `p - k` with a positive constant k.
		if arg.Op == "-" {
			if lhs, ok := arg.Lhs.(*ast.Identifier); ok && lhs.Name == paramName {
				if k, ok := arg.Rhs.(*ast.IntLit); ok && k.Value >= 1 {
					return true
				}
			}
		}
		return false

	case *ast.Identifier:
		// Algebraic structural shrink: an identifier bound by destructuring
		// a pattern, which is strictly inside the matched value.
		if arg.Sym != nil {
			if _, bound := arg.Sym.Decl.(*ast.BindingPattern); bound {
				return true
			}
		}
		return false

	case *ast.Call:
		// len(x) shrinking through an explicit tail: accept a call named
		// rest, tail, or drop whose first argument is the measured parameter.
		if fn, ok := arg.Func.(*ast.Identifier); ok {
			switch fn.Name {
			case "rest", "tail", "drop":
				if len(arg.Args) > 0 {
					if inner, ok := arg.Args[0].(*ast.Identifier); ok && inner.Name == paramName {
						return true
					}
				}
			}
		}
		return false

	default:
		return false
	}
}

// recursiveCallSites collects every call to `fd` inside its own body.
func (w *Walker) recursiveCallSites(fd *ast.FuncDef) []*ast.Call {
	var sites []*ast.Call
	for _, stmt := range fd.Body {
		w.findCallsInStmt(stmt, fd, &sites)
	}
	return sites
}

func (w *Walker) findCallsInStmt(stmt ast.Stmt, fd *ast.FuncDef, sites *[]*ast.Call) {
	switch stmt := stmt.(type) {
	case *ast.VarDecl:
		w.findCallsInExpr(stmt.Value, fd, sites)
	case *ast.Assign:
		w.findCallsInExpr(stmt.Value, fd, sites)
	case *ast.ExprStmt:
		w.findCallsInExpr(stmt.Expr, fd, sites)
	}
}

func (w *Walker) findCallsInExpr(expr ast.Expr, fd *ast.FuncDef, sites *[]*ast.Call) {
	switch expr := expr.(type) {
	case *ast.Call:
		if fn, ok := expr.Func.(*ast.Identifier); ok && fn.Sym == fd.Sym {
			*sites = append(*sites, expr)
		}
		for _, arg := range expr.Args {
			w.findCallsInExpr(arg, fd, sites)
		}
	case *ast.Binary:
		w.findCallsInExpr(expr.Lhs, fd, sites)
		w.findCallsInExpr(expr.Rhs, fd, sites)
	case *ast.Unary:
		w.findCallsInExpr(expr.Operand, fd, sites)
	case *ast.Pipe:
		if expr.Desugared != nil {
			w.findCallsInExpr(expr.Desugared, fd, sites)
		} else {
			w.findCallsInExpr(expr.Lhs, fd, sites)
			w.findCallsInExpr(expr.Rhs, fd, sites)
		}
	case *ast.FailProp:
		w.findCallsInExpr(expr.Operand, fd, sites)
	case *ast.Lambda:
		w.findCallsInExpr(expr.Body, fd, sites)
	case *ast.FieldAccess:
		w.findCallsInExpr(expr.Root, fd, sites)
	case *ast.Index:
		w.findCallsInExpr(expr.Root, fd, sites)
		w.findCallsInExpr(expr.Subject, fd, sites)
	case *ast.Range:
		w.findCallsInExpr(expr.Lo, fd, sites)
		w.findCallsInExpr(expr.Hi, fd, sites)
	case *ast.ListLit:
		for _, elem := range expr.Elems {
			w.findCallsInExpr(elem, fd, sites)
		}
	case *ast.InterpString:
		for _, part := range expr.Parts {
			w.findCallsInExpr(part, fd, sites)
		}
	case *ast.Match:
		if expr.Subject != nil {
			w.findCallsInExpr(expr.Subject, fd, sites)
		}
		for _, arm := range expr.Arms {
			for _, stmt := range arm.Body {
				w.findCallsInStmt(stmt, fd, sites)
			}
		}
	case *ast.If:
		w.findCallsInExpr(expr.Cond, fd, sites)
		for _, stmt := range expr.Then {
			w.findCallsInStmt(stmt, fd, sites)
		}
		for _, stmt := range expr.Else {
			w.findCallsInStmt(stmt, fd, sites)
		}
	case *ast.Comptime:
		for _, stmt := range expr.Body {
			w.findCallsInStmt(stmt, fd, sites)
		}
	case *ast.Valid:
		for _, arg := range expr.Args {
			w.findCallsInExpr(arg, fd, sites)
		}
	}
}
