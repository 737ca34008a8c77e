// Package resolve implements the two-pass name resolver: declaration
// collection over a module's top level, then reference resolution through
// every function body.  It builds the flat symbol table and the scope tree
// and attaches symbols to AST nodes for the checker.
package resolve

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
)

// Resolver resolves one module.
type Resolver struct {
	mod   *ast.Module
	table *symbols.Table
	root  *symbols.Scope

	// networks indexes invariant networks by name for `satisfies` lookup.
	networks map[string]*ast.InvariantNetwork

	scope *symbols.Scope

	// lambdaBoundary marks the innermost scope opened for a lambda; locals
	// and parameters bound outside it may not be referenced inside (E364).
	lambdaBoundary *symbols.Scope
}

// NewResolver creates a resolver for a module.
func NewResolver(mod *ast.Module) *Resolver {
	table := symbols.NewTable()
	root := symbols.NewScope(table)
	return &Resolver{
		mod:      mod,
		table:    table,
		root:     root,
		scope:    root,
		networks: make(map[string]*ast.InvariantNetwork),
	}
}

// Table returns the flat symbol table built by resolution.
func (r *Resolver) Table() *symbols.Table {
	return r.table
}

// Networks returns the module's invariant networks by name.
func (r *Resolver) Networks() map[string]*ast.InvariantNetwork {
	return r.networks
}

// Resolve runs both passes.  Diagnostics go to the reporter; the return
// value is false if resolution reported any errors.
func (r *Resolver) Resolve() bool {
	defer report.CatchErrors()

	before := report.ErrorCount()

	r.declareBuiltins()
	r.collectDeclarations()
	r.resolveReferences()

	return report.ErrorCount() == before
}

// -----------------------------------------------------------------------------
// Pass 1: declaration collection.

// collectDeclarations registers every top-level definition under the
// module's root scope.  Type definitions are registered before functions so
// signatures can reference any declared type.
func (r *Resolver) collectDeclarations() {
	// Type names register first as empty shells so bodies can reference
	// each other and themselves; the bodies fill in afterwards.
	var shells []*ast.TypeDef
	for _, def := range r.mod.Defs {
		if td, ok := def.(*ast.TypeDef); ok {
			if r.declareTypeShell(td) {
				shells = append(shells, td)
			}
		}
	}
	for _, td := range shells {
		r.fillTypeBody(td)
	}

	for _, imp := range r.mod.Imports {
		r.declareImport(imp)
	}

	for _, def := range r.mod.Defs {
		switch def := def.(type) {
		case *ast.FuncDef:
			r.declareFunc(def)
		case *ast.ConstDef:
			r.declareConst(def)
		case *ast.ForeignBlock:
			r.declareForeignBlock(def)
		case *ast.InvariantNetwork:
			if _, dup := r.networks[def.Name]; dup {
				report.Error(def.Span(), "E301", "duplicate invariant network `%s`", def.Name)
				continue
			}
			r.networks[def.Name] = def
		}
	}
}

// declareTypeShell registers a type definition's name with an empty shell.
// Algebraic and record shells are pointers that fillTypeBody completes in
// place, so recursive and mutually-referencing types resolve.
func (r *Resolver) declareTypeShell(td *ast.TypeDef) bool {
	if existing := r.table.LookupType(td.Name); existing != nil {
		report.Error(td.NameSpan, "E301", "duplicate definition of `%s`", td.Name)
		return false
	}

	var shell types.Type
	switch td.Body.(type) {
	case *ast.AlgebraicBody:
		shell = &types.AlgebraicType{Name: td.Name}
	case *ast.RecordBody:
		shell = &types.RecordType{Name: td.Name}
	default:
		// Refinement bases resolve in declaration order.
		shell = nil
	}

	sym := r.table.New(symbols.KindTypeDef, td.Name, td.NameSpan, shell)
	sym.Decl = td
	sym.TypeParams = td.TypeParams
	td.Sym = sym
	r.table.DefineType(td.Name, sym)
	r.root.Define(sym)
	return true
}

// fillTypeBody resolves a type definition body into its shell and registers
// any variant constructors.
func (r *Resolver) fillTypeBody(td *ast.TypeDef) {
	resolved := r.resolveTypeBody(td, td.Sym.Type)
	td.Sym.Type = resolved

	// Each algebraic variant is retrievable both as a constructor callable
	// and as a pattern head.
	if at, ok := resolved.(*types.AlgebraicType); ok {
		body := td.Body.(*ast.AlgebraicBody)
		for i, variant := range at.Variants {
			params := make([]types.Type, len(variant.Fields))
			for j, f := range variant.Fields {
				params[j] = f.Type
			}

			ctor := r.table.New(symbols.KindVariantConstructor, variant.Name, body.Variants[i].Span(),
				&types.FuncType{Params: params, Return: at})
			ctor.Decl = td

			if existing := r.table.DefineType(variant.Name, ctor); existing != nil {
				report.Error(body.Variants[i].Span(), "E301",
					"duplicate variant constructor `%s`", variant.Name)
				continue
			}
			r.table.DefineFunc(symbols.FuncKey{Name: variant.Name, ParamKey: types.ParamKey(params)}, ctor)
		}
	}
}

// resolveTypeBody converts a syntactic type body into its canonical type,
// completing the pre-registered shell in place.
func (r *Resolver) resolveTypeBody(td *ast.TypeDef, shell types.Type) types.Type {
	rigid := make(map[string]struct{}, len(td.TypeParams))
	for _, p := range td.TypeParams {
		rigid[p] = struct{}{}
	}

	switch body := td.Body.(type) {
	case *ast.RecordBody:
		rt := shell.(*types.RecordType)
		for _, f := range body.Fields {
			rt.Fields = append(rt.Fields, types.VariantField{
				Name: f.Name,
				Type: r.ResolveTypeExpr(f.Type, rigid),
			})
		}
		return rt

	case *ast.AlgebraicBody:
		at := shell.(*types.AlgebraicType)
		for _, v := range body.Variants {
			variant := &types.Variant{Name: v.Name}
			for _, f := range v.Fields {
				variant.Fields = append(variant.Fields, types.VariantField{
					Name: f.Name,
					Type: r.ResolveTypeExpr(f.Type, rigid),
				})
			}
			at.Variants = append(at.Variants, variant)
		}
		return at

	case *ast.RefinementBody:
		base := r.ResolveTypeExpr(body.Base, rigid)
		return types.RefinedType{
			Name:       td.Name,
			Base:       base,
			Constraint: ConstraintOf(body.Constraint),
		}

	default:
		return types.Unknown
	}
}

// declareFunc registers a function under its verb-dispatched identity.
func (r *Resolver) declareFunc(fd *ast.FuncDef) {
	paramTypes := make([]types.Type, len(fd.Params))
	rigid := map[string]struct{}{}
	for i, param := range fd.Params {
		paramTypes[i] = r.ResolveTypeExpr(param.Type, rigid)
		if param.Where != nil {
			paramTypes[i] = types.RefinedType{
				Base:       types.StripRefinements(paramTypes[i]),
				Constraint: ConstraintOf(param.Where),
			}
		}
	}

	var retType types.Type
	switch {
	case fd.Verb == "validates":
		retType = types.BooleanType
	case fd.ReturnType != nil:
		retType = r.ResolveTypeExpr(fd.ReturnType, rigid)
	default:
		retType = types.Unit
	}

	ft := &types.FuncType{Verb: fd.Verb, Params: paramTypes, Return: retType, CanFail: fd.CanFail}
	sym := r.table.New(symbols.KindFunction, fd.Name, fd.NameSpan, ft)
	sym.Verb = fd.Verb
	sym.Decl = fd
	fd.Sym = sym

	key := symbols.FuncKey{Verb: fd.Verb, Name: fd.Name, ParamKey: types.ParamKey(paramTypes)}
	if existing := r.table.DefineFunc(key, sym); existing != nil {
		code := "E301"
		if isIOVerb(fd.Verb) && isIOVerb(existing.Verb) {
			code = "E365"
		}
		report.Add(&report.Diagnostic{
			Severity: report.SevError,
			Code:     code,
			Message:  "duplicate function identity `" + key.String() + "`",
			Labels: []report.Label{
				{Span: fd.NameSpan},
				{Span: existing.Span, Message: "previously declared here", Secondary: true},
			},
		})
	}
}

func isIOVerb(verb string) bool {
	return verb == "inputs" || verb == "outputs"
}

// declareConst registers a module-level constant.
func (r *Resolver) declareConst(cd *ast.ConstDef) {
	var declared types.Type = types.Unknown
	if cd.Type != nil {
		declared = r.ResolveTypeExpr(cd.Type, nil)
	}

	sym := r.table.New(symbols.KindConstant, cd.Name, cd.NameSpan, declared)
	sym.Decl = cd
	cd.Sym = sym

	if existing := r.root.Define(sym); existing != nil {
		report.Error(cd.NameSpan, "E301", "duplicate definition of `%s`", cd.Name)
	}
}

// declareForeignBlock registers the C bindings of a foreign block.  Foreign
// functions are callable by bare name and emitted unmangled.
func (r *Resolver) declareForeignBlock(fb *ast.ForeignBlock) {
	for _, ff := range fb.Funcs {
		paramTypes := make([]types.Type, len(ff.Params))
		for i, param := range ff.Params {
			paramTypes[i] = r.ResolveTypeExpr(param.Type, nil)
		}

		var retType types.Type = types.Unit
		if ff.Return != nil {
			retType = r.ResolveTypeExpr(ff.Return, nil)
		}

		sym := r.table.New(symbols.KindForeign, ff.Name, ff.Span(),
			&types.FuncType{Params: paramTypes, Return: retType})
		sym.ForeignLib = fb.Library
		sym.Decl = ff
		ff.Sym = sym

		key := symbols.FuncKey{Name: ff.Name, ParamKey: types.ParamKey(paramTypes)}
		if existing := r.table.DefineFunc(key, sym); existing != nil {
			report.Error(ff.Span(), "E301", "duplicate foreign binding `%s`", ff.Name)
		}
	}
}

// declareImport registers imported names.  Cross-module signatures are not
// resolved here: imported symbols carry unknown types the checker lets pass.
func (r *Resolver) declareImport(imp *ast.ImportDecl) {
	for _, group := range imp.Groups {
		for i, name := range group.Names {
			span := imp.Span()
			if i < len(group.Spans) {
				span = group.Spans[i]
			}

			if group.Verb == "types" {
				sym := r.table.New(symbols.KindTypeDef, name, span, types.Unknown)
				r.table.DefineType(name, sym)
				continue
			}

			sym := r.table.New(symbols.KindFunction, name, span,
				&types.FuncType{Verb: group.Verb, Params: nil, Return: types.Unknown})
			sym.Verb = group.Verb
			r.table.DefineFunc(symbols.FuncKey{Verb: group.Verb, Name: name, ParamKey: "<import>"}, sym)
		}
	}
}

// -----------------------------------------------------------------------------

// ResolveTypeExpr converts a syntactic type expression into a canonical
// type.  Names in `rigid` resolve to generic parameters.
func (r *Resolver) ResolveTypeExpr(te ast.TypeExpr, rigid map[string]struct{}) types.Type {
	switch te := te.(type) {
	case *ast.SimpleType:
		return r.resolveTypeName(te.Name, nil, te.Span(), rigid)

	case *ast.GenericType:
		args := make([]types.Type, len(te.Args))
		for i, a := range te.Args {
			args[i] = r.ResolveTypeExpr(a, rigid)
		}
		return r.resolveTypeName(te.Name, args, te.Span(), rigid)

	case *ast.ModifiedType:
		base := r.resolveTypeName(te.Name, nil, te.Span(), rigid)
		pt, ok := base.(types.PrimitiveType)
		if !ok {
			report.Error(te.Span(), "E300", "type `%s` does not accept modifiers", te.Name)
			return base
		}

		seen := make(map[int]string)
		var mods []string
		for _, m := range te.Mods {
			mods = append(mods, m.Value)
			axis := types.ModAxis(m.Value)
			if axis == types.AxisOther {
				continue
			}
			if prev, dup := seen[axis]; dup {
				report.Error(m.Span, "E304",
					"modifier `%s` conflicts with `%s` on the same axis", m.Value, prev)
				continue
			}
			seen[axis] = m.Value
		}
		return types.PrimitiveType{Name: pt.Name, Mods: mods}

	default:
		return types.Unknown
	}
}

func (r *Resolver) resolveTypeName(name string, args []types.Type, span report.Span, rigid map[string]struct{}) types.Type {
	if rigid != nil {
		if _, ok := rigid[name]; ok {
			return types.ParamType{Name: name}
		}
	}

	// Single-letter uppercase names act as generic parameters in function
	// signatures even without an explicit parameter list.
	if len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z' {
		if rigid != nil {
			rigid[name] = struct{}{}
		}
		return types.ParamType{Name: name}
	}

	switch name {
	case "List":
		if len(args) == 1 {
			return &types.ListType{Elem: args[0]}
		}
	case "Option":
		if len(args) == 1 {
			return types.OptionOf(args[0])
		}
	case "Result":
		if len(args) == 2 {
			return types.ResultOf(args[0], args[1])
		}
		if len(args) == 1 {
			return types.ResultOf(args[0], types.StringType)
		}
	}

	if prim, ok := types.Primitives[name]; ok && len(args) == 0 {
		return prim
	}

	if sym := r.table.LookupType(name); sym != nil {
		sym.Used = true
		if len(args) > 0 {
			return &types.AppliedType{Name: name, Args: args}
		}
		if sym.Type == nil {
			return types.Unknown
		}
		return sym.Type
	}

	report.Error(span, "E300", "undefined type `%s`", name)
	return types.Unknown
}
