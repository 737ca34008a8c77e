package resolve

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// -----------------------------------------------------------------------------
// Pass 2: reference resolution.

// resolveReferences walks every function body, opening a new scope per
// lambda, per match arm, and per block, and attaches symbols to identifier
// nodes.  Call-site identifiers with several verb-variants stay unbound
// here: context-aware resolution runs in the checker, where expected types
// are known.
func (r *Resolver) resolveReferences() {
	for _, def := range r.mod.Defs {
		switch def := def.(type) {
		case *ast.FuncDef:
			r.resolveFunc(def)
		case *ast.MainDef:
			r.resolveMain(def)
		case *ast.ConstDef:
			r.resolveExpr(def.Value)
		case *ast.TypeDef:
			r.resolveTypeDefConstraints(def)
		case *ast.InvariantNetwork:
			for _, c := range def.Constraints {
				r.resolveNetworkConstraint(c)
			}
		}
	}
}

// resolveFunc resolves one function definition.
func (r *Resolver) resolveFunc(fd *ast.FuncDef) {
	saved := r.scope
	r.scope = r.root.Child()

	ft, _ := fd.Sym.Type.(*types.FuncType)

	// Each parameter becomes a local symbol in the function's root body
	// scope.
	for i, param := range fd.Params {
		var pt types.Type = types.Unknown
		if ft != nil && i < len(ft.Params) {
			pt = ft.Params[i]
		}
		sym := r.table.New(symbols.KindParameter, param.Name, param.NameSpan, pt)
		param.Sym = sym
		if existing := r.scope.Define(sym); existing != nil {
			report.Error(param.NameSpan, "E302", "duplicate parameter `%s`", param.Name)
		}

		if param.Where != nil {
			r.resolveRefinementExpr(param.Where)
		}
	}

	var retType types.Type = types.Unit
	if ft != nil {
		retType = ft.Return
	}

	r.resolveAnnots(fd.Annots, retType)

	for _, stmt := range fd.Body {
		r.resolveStmt(stmt)
	}

	r.closeLocalScopes(saved)
}

func (r *Resolver) resolveMain(md *ast.MainDef) {
	saved := r.scope
	r.scope = r.root.Child()

	for _, stmt := range md.Body {
		r.resolveStmt(stmt)
	}

	r.closeLocalScopes(saved)
}

// closeLocalScopes emits unused-variable warnings for the function scope and
// restores the saved scope.
func (r *Resolver) closeLocalScopes(saved *symbols.Scope) {
	r.scope.Each(func(sym *symbols.Symbol) {
		if sym.Kind == symbols.KindLocal && !sym.Used {
			report.Warn(sym.Span, "W300", "unused variable `%s`", sym.Name)
		}
	})
	r.scope = saved
}

// resolveAnnots resolves the expressions inside annotations.  The
// postcondition forms (`ensures`, `believe`) see `result` bound to the
// return type.
func (r *Resolver) resolveAnnots(annots []*ast.Annot, retType types.Type) {
	for _, annot := range annots {
		switch annot.Kind {
		case ast.AnnotEnsures, ast.AnnotBelieve:
			saved := r.scope
			r.scope = r.scope.Child()
			result := r.table.New(symbols.KindLocal, "result", annot.Span(), retType)
			result.Used = true
			r.scope.Define(result)
			r.resolveExpr(annot.Expr)
			r.scope = saved

		case ast.AnnotRequires, ast.AnnotKnow, ast.AnnotAssume, ast.AnnotTerminates:
			r.resolveExpr(annot.Expr)

		case ast.AnnotNearMiss:
			r.resolveExpr(annot.Input)
			r.resolveExpr(annot.Expected)
		}
	}
}

// resolveTypeDefConstraints resolves the refinement constraint of a type
// definition with `self` bound to the refined value.
func (r *Resolver) resolveTypeDefConstraints(td *ast.TypeDef) {
	rb, ok := td.Body.(*ast.RefinementBody)
	if !ok {
		return
	}
	r.resolveRefinementExpr(rb.Constraint)
}

// resolveRefinementExpr resolves a constraint expression, binding `self`.
func (r *Resolver) resolveRefinementExpr(expr ast.Expr) {
	saved := r.scope
	r.scope = r.scope.Child()
	self := r.table.New(symbols.KindLocal, "self", expr.Span(), types.Unknown)
	self.Used = true
	r.scope.Define(self)
	r.resolveExpr(expr)
	r.scope = saved
}

// resolveNetworkConstraint resolves an invariant-network constraint.  Only
// function references resolve strictly; bare identifiers stand for the
// quantified values the network ranges over and stay unbound.
func (r *Resolver) resolveNetworkConstraint(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.Call:
		r.resolveCallee(expr)
		for _, arg := range expr.Args {
			r.resolveNetworkConstraint(arg)
		}
	case *ast.Binary:
		r.resolveNetworkConstraint(expr.Lhs)
		r.resolveNetworkConstraint(expr.Rhs)
	case *ast.Unary:
		r.resolveNetworkConstraint(expr.Operand)
	case *ast.Pipe:
		r.resolveNetworkConstraint(expr.Lhs)
		r.resolveNetworkConstraint(expr.Rhs)
	case *ast.FieldAccess:
		r.resolveNetworkConstraint(expr.Root)
	case *ast.Identifier:
		// Quantified over by the network; unbound by construction.
	default:
	}
}

// -----------------------------------------------------------------------------

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.VarDecl:
		r.resolveExpr(stmt.Value)

		var declared types.Type
		if stmt.Type != nil {
			declared = r.ResolveTypeExpr(stmt.Type, nil)
		}

		sym := r.table.New(symbols.KindLocal, stmt.Name, stmt.NameSpan, declared)
		sym.Decl = stmt
		if mt, ok := stmt.Type.(*ast.ModifiedType); ok {
			for _, m := range mt.Mods {
				if m.Value == "Mutable" {
					sym.Mutable = true
				}
			}
		}
		stmt.Sym = sym

		if existing := r.scope.LookupLocal(stmt.Name); existing != nil {
			report.Error(stmt.NameSpan, "E302", "variable `%s` already defined in this scope", stmt.Name)
			return
		}
		r.scope.Define(sym)

	case *ast.Assign:
		sym := r.scope.Lookup(stmt.Name)
		if sym == nil {
			report.Error(stmt.Span(), "E310", "undefined name `%s`", stmt.Name)
		} else {
			sym.Used = true
			stmt.Sym = sym
			if !sym.Mutable {
				report.Error(stmt.Span(), "E312",
					"cannot assign to `%s`: only identifiers typed Mutable can be assigned", stmt.Name)
			}
		}
		r.resolveExpr(stmt.Value)

	case *ast.ExprStmt:
		r.resolveExpr(stmt.Expr)
	}
}

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.Identifier:
		r.resolveIdentifier(expr)

	case *ast.TypeIdent:
		if sym := r.table.LookupType(expr.Name); sym != nil {
			sym.Used = true
			expr.Sym = sym
		} else {
			report.Error(expr.Span(), "E310", "undefined name `%s`", expr.Name)
		}

	case *ast.Call:
		r.resolveCallee(expr)
		for _, arg := range expr.Args {
			r.resolveExpr(arg)
		}

	case *ast.FieldAccess:
		// Module-qualified names (`Text.trim`) resolve through the function
		// table at the call site; plain field access resolves its root.
		if _, qualified := expr.Root.(*ast.TypeIdent); !qualified {
			r.resolveExpr(expr.Root)
		}

	case *ast.Index:
		r.resolveExpr(expr.Root)
		r.resolveExpr(expr.Subject)

	case *ast.Pipe:
		r.resolveExpr(expr.Lhs)
		r.resolvePipeTarget(expr.Rhs)

	case *ast.FailProp:
		r.resolveExpr(expr.Operand)

	case *ast.Lambda:
		r.resolveLambda(expr)

	case *ast.Valid:
		r.resolveValid(expr)

	case *ast.Match:
		if expr.Subject != nil {
			r.resolveExpr(expr.Subject)
		}
		for _, arm := range expr.Arms {
			saved := r.scope
			r.scope = r.scope.Child()
			r.resolvePattern(arm.Pattern)
			for _, stmt := range arm.Body {
				r.resolveStmt(stmt)
			}
			r.scope = saved
		}

	case *ast.If:
		r.resolveExpr(expr.Cond)
		saved := r.scope
		r.scope = r.scope.Child()
		for _, stmt := range expr.Then {
			r.resolveStmt(stmt)
		}
		r.scope = saved
		r.scope = r.scope.Child()
		for _, stmt := range expr.Else {
			r.resolveStmt(stmt)
		}
		r.scope = saved

	case *ast.Binary:
		r.resolveExpr(expr.Lhs)
		r.resolveExpr(expr.Rhs)

	case *ast.Unary:
		r.resolveExpr(expr.Operand)

	case *ast.Range:
		r.resolveExpr(expr.Lo)
		r.resolveExpr(expr.Hi)

	case *ast.ListLit:
		for _, elem := range expr.Elems {
			r.resolveExpr(elem)
		}

	case *ast.InterpString:
		for _, part := range expr.Parts {
			if _, isLit := part.(*ast.StringLit); !isLit {
				r.resolveExpr(part)
			}
		}

	case *ast.Comptime:
		saved := r.scope
		r.scope = r.scope.Child()
		for _, stmt := range expr.Body {
			r.resolveStmt(stmt)
		}
		r.scope = saved
	}
}

// resolveIdentifier resolves a value identifier, leaving call-site
// identifiers with several function candidates for the checker.
func (r *Resolver) resolveIdentifier(expr *ast.Identifier) {
	if sym := r.scope.Lookup(expr.Name); sym != nil {
		sym.Used = true
		expr.Sym = sym
		r.checkLambdaCapture(expr, sym)
		return
	}

	candidates := r.table.Candidates(expr.Name)
	if len(candidates) == 1 {
		expr.Sym = candidates[0]
		candidates[0].Used = true
		return
	}
	if len(candidates) > 1 {
		// Deferred to context-aware resolution in the checker.
		return
	}

	report.Error(expr.Span(), "E310", "undefined name `%s`", expr.Name)
}

// resolveCallee resolves the callee of a call expression.
func (r *Resolver) resolveCallee(call *ast.Call) {
	switch fn := call.Func.(type) {
	case *ast.Identifier:
		if sym := r.scope.Lookup(fn.Name); sym != nil {
			sym.Used = true
			fn.Sym = sym
			r.checkLambdaCapture(fn, sym)
			return
		}

		candidates := r.table.Candidates(fn.Name)
		switch len(candidates) {
		case 0:
			report.Error(fn.Span(), "E311", "undefined function `%s`", fn.Name)
		case 1:
			fn.Sym = candidates[0]
			candidates[0].Used = true
		default:
			// Context-aware resolution happens in the checker.
		}

	case *ast.TypeIdent:
		if sym := r.table.LookupType(fn.Name); sym != nil {
			sym.Used = true
			fn.Sym = sym
		} else {
			report.Error(fn.Span(), "E311", "undefined constructor `%s`", fn.Name)
		}

	case *ast.FieldAccess:
		r.resolveExpr(call.Func)

	default:
		r.resolveExpr(call.Func)
	}
}

// resolvePipeTarget resolves the right side of a pipe.  A bare identifier
// names a function; a call gets its result argument appended at desugar
// time.
func (r *Resolver) resolvePipeTarget(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.Identifier:
		candidates := r.table.Candidates(expr.Name)
		switch len(candidates) {
		case 0:
			if sym := r.scope.Lookup(expr.Name); sym != nil {
				sym.Used = true
				expr.Sym = sym
				return
			}
			report.Error(expr.Span(), "E311", "undefined function `%s`", expr.Name)
		case 1:
			expr.Sym = candidates[0]
			candidates[0].Used = true
		}
	case *ast.Call:
		r.resolveCallee(expr)
		for _, arg := range expr.Args {
			r.resolveExpr(arg)
		}
	default:
		r.resolveExpr(expr)
	}
}

// resolveLambda resolves a lambda body in a fresh scope containing only the
// lambda's parameters.  References to outer locals are capture errors.
func (r *Resolver) resolveLambda(lam *ast.Lambda) {
	saved := r.scope
	savedBoundary := r.lambdaBoundary

	r.scope = r.scope.Child()
	r.lambdaBoundary = r.scope

	for i, name := range lam.Params {
		span := lam.Span()
		if i < len(lam.ParamSpans) {
			span = lam.ParamSpans[i]
		}
		sym := r.table.New(symbols.KindParameter, name, span, types.Unknown)
		sym.Used = true
		lam.ParamSyms = append(lam.ParamSyms, sym)
		r.scope.Define(sym)
	}

	r.resolveExpr(lam.Body)

	r.lambdaBoundary = savedBoundary
	r.scope = saved
}

// checkLambdaCapture rejects references from a lambda body to locals or
// parameters bound outside the lambda: all values flow through parameters.
func (r *Resolver) checkLambdaCapture(expr *ast.Identifier, sym *symbols.Symbol) {
	if r.lambdaBoundary == nil {
		return
	}
	if sym.Kind != symbols.KindLocal && sym.Kind != symbols.KindParameter {
		return
	}
	if r.lambdaBoundary.LookupLocal(expr.Name) == sym {
		return
	}

	report.Error(expr.Span(), "E364",
		"lambda captures `%s` from an outer scope: all values flow through parameters", expr.Name)
}

// resolveValid binds the validates variant of a function name.
func (r *Resolver) resolveValid(v *ast.Valid) {
	var match *symbols.Symbol
	for _, cand := range r.table.Candidates(v.Name) {
		if cand.Verb == "validates" {
			match = cand
			break
		}
	}

	if match == nil {
		report.Error(v.Span(), "E311", "no validates variant of `%s` in scope", v.Name)
		return
	}

	match.Used = true
	v.Sym = match

	if v.Args != nil {
		for _, arg := range v.Args {
			r.resolveExpr(arg)
		}
	}
}

// resolvePattern resolves a pattern, binding pattern names as fresh locals.
// Variant heads resolve in the type namespace; arity and variant membership
// are checked against the scrutinee's type by the checker.
func (r *Resolver) resolvePattern(pattern ast.Pattern) {
	switch pattern := pattern.(type) {
	case *ast.VariantPattern:
		if sym := r.table.LookupType(pattern.Name); sym != nil {
			pattern.Sym = sym
			sym.Used = true
		}
		for _, sub := range pattern.Fields {
			r.resolvePattern(sub)
		}

	case *ast.BindingPattern:
		sym := r.table.New(symbols.KindLocal, pattern.Name, pattern.Span(), nil)
		sym.Decl = pattern
		sym.Used = true
		pattern.Sym = sym
		r.scope.Define(sym)
	}
}
