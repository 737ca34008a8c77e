// Package verify implements the contract and proof verifier.  It runs over
// the typed AST, turning annotations into checked obligations: proof and
// explain block shape, near-miss distinctness, belief/knowledge rules, and
// the verification-chain walk behind the coverage summary.
package verify

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/types"
	"github.com/kennedyshead/prove/walk"
)

// ChainGap records a call from a function with ensures to a callee with
// neither ensures nor a trusted marker.
type ChainGap struct {
	From   *symbols.Symbol
	Callee *symbols.Symbol
}

// Verifier verifies one module's contracts.
type Verifier struct {
	mod      *ast.Module
	table    *symbols.Table
	calls    map[*symbols.Symbol][]*symbols.Symbol
	networks map[string]*ast.InvariantNetwork

	cnl *cnlVocabulary

	// Gaps accumulates verification-chain gaps for the coverage summary.
	Gaps []ChainGap
}

// NewVerifier creates a verifier.  The extra operations and connectors come
// from the manifest's [explain] section.
func NewVerifier(mod *ast.Module, table *symbols.Table, w *walk.Walker,
	networks map[string]*ast.InvariantNetwork, extraOps, extraConnectors []string) *Verifier {

	return &Verifier{
		mod:      mod,
		table:    table,
		calls:    w.Calls,
		networks: networks,
		cnl:      newCNLVocabulary(extraOps, extraConnectors),
	}
}

// Verify runs every contract check.  The return value is false if any
// errors were reported.
func (v *Verifier) Verify() bool {
	before := report.ErrorCount()

	for _, def := range v.mod.Defs {
		if fd, ok := def.(*ast.FuncDef); ok {
			v.verifyFunc(fd)
		}
	}

	v.walkChains()

	return report.ErrorCount() == before
}

// -----------------------------------------------------------------------------

// annotSummary gathers one function's annotations by kind.
type annotSummary struct {
	requires   []*ast.Annot
	ensures    []*ast.Annot
	believes   []*ast.Annot
	knows      []*ast.Annot
	nearMisses []*ast.Annot
	satisfies  []*ast.Annot
	intent     *ast.Annot
	explain    *ast.Annot
	proof      *ast.Annot
	trusted    bool
}

func summarize(fd *ast.FuncDef) annotSummary {
	var s annotSummary
	for _, annot := range fd.Annots {
		switch annot.Kind {
		case ast.AnnotRequires:
			s.requires = append(s.requires, annot)
		case ast.AnnotEnsures:
			s.ensures = append(s.ensures, annot)
		case ast.AnnotBelieve:
			s.believes = append(s.believes, annot)
		case ast.AnnotKnow:
			s.knows = append(s.knows, annot)
		case ast.AnnotNearMiss:
			s.nearMisses = append(s.nearMisses, annot)
		case ast.AnnotSatisfies:
			s.satisfies = append(s.satisfies, annot)
		case ast.AnnotIntent:
			s.intent = annot
		case ast.AnnotExplain:
			s.explain = annot
		case ast.AnnotProof:
			s.proof = annot
		case ast.AnnotTrusted:
			s.trusted = true
		}
	}
	return s
}

func (v *Verifier) verifyFunc(fd *ast.FuncDef) {
	s := summarize(fd)

	// believe is an adversarial test seed against a stated contract: it
	// needs an ensures to attack.
	if len(s.believes) > 0 && len(s.ensures) == 0 {
		report.Error(s.believes[0].Span(), "E393",
			"function `%s` has believe but no ensures", fd.Name)
	}

	// know claims static provability: a decided-false predicate is
	// rejected; undecidable ones are flagged for the prover backlog.
	for _, know := range s.knows {
		v.checkKnow(know)
	}

	// near_miss inputs are rejection tests: duplicates add nothing.
	v.checkNearMisses(s.nearMisses)

	// satisfies must reference a declared invariant network.
	for _, sat := range s.satisfies {
		if _, ok := v.networks[sat.Name]; !ok {
			report.Error(sat.Span(), "E382",
				"satisfies references unknown invariant network `%s`", sat.Name)
		}
	}

	if s.intent != nil && len(s.ensures) == 0 && len(s.requires) == 0 {
		report.Warn(s.intent.Span(), "W310",
			"intent declared but no ensures or requires to validate it")
	}

	if len(s.ensures) > 0 && len(s.requires) == 0 {
		report.Warn(fd.NameSpan, "W324", "function `%s` has ensures but no requires", fd.Name)
	}

	if !s.trusted {
		if len(s.ensures) > 0 && s.explain == nil && s.proof == nil {
			report.Warn(fd.NameSpan, "W323", "function `%s` has ensures but no explain", fd.Name)
		}
		if s.explain != nil && len(s.ensures) == 0 {
			report.Warn(s.explain.Span(), "W325", "function `%s` has explain but no ensures", fd.Name)
		}
	}

	if s.explain != nil {
		v.verifyExplain(fd, s.explain, len(s.ensures) > 0)
	}
	if s.proof != nil {
		v.verifyProof(fd, s.proof, len(s.ensures))
	}
}

// checkKnow evaluates a know predicate at compile time.
func (v *Verifier) checkKnow(know *ast.Annot) {
	cv, decided := constEvalPredicate(know.Expr)
	switch {
	case decided && cv:
		// Provably true.
	case decided && !cv:
		report.Error(know.Expr.Span(), "E388", "know predicate is provably false")
	default:
		report.Warn(know.Expr.Span(), "W320",
			"know predicate cannot be proven statically: consider `assume` for a runtime check")
	}
}

// constEvalPredicate decides a constant Boolean predicate.
func constEvalPredicate(expr ast.Expr) (value, decided bool) {
	switch expr := expr.(type) {
	case *ast.BoolLit:
		return expr.Value, true
	case *ast.Binary:
		lhs, lok := constOperand(expr.Lhs)
		rhs, rok := constOperand(expr.Rhs)
		if !lok || !rok {
			return false, false
		}
		holds, ok := types.EvalConstraint(types.CmpConstraint{Op: expr.Op, Bound: rhs}, lhs)
		return holds, ok
	case *ast.Unary:
		if expr.Op == "!" {
			inner, decided := constEvalPredicate(expr.Operand)
			return !inner, decided
		}
	}
	return false, false
}

func constOperand(expr ast.Expr) (types.ConstValue, bool) {
	switch expr := expr.(type) {
	case *ast.IntLit:
		return types.IntValue(expr.Value), true
	case *ast.DecimalLit:
		return types.DecValue(expr.Value), true
	case *ast.StringLit:
		return types.StrValue(expr.Value), true
	case *ast.BoolLit:
		return types.BoolValue(expr.Value), true
	}
	return types.ConstValue{}, false
}

// checkNearMisses warns on duplicate near-miss inputs.
func (v *Verifier) checkNearMisses(misses []*ast.Annot) {
	for i, nm := range misses {
		for _, prev := range misses[:i] {
			if resolve.ExprText(nm.Input) == resolve.ExprText(prev.Input) {
				report.Warn(nm.Span(), "W322", "duplicate near-miss input")
				break
			}
		}
	}
}

// -----------------------------------------------------------------------------

// verifyProof checks a legacy proof block: unique obligation names (E391),
// at least one obligation per ensures clause (E392), and at least one
// concept reference per obligation (W321).
func (v *Verifier) verifyProof(fd *ast.FuncDef, proof *ast.Annot, ensuresCount int) {
	seen := make(map[string]struct{})
	for _, row := range proof.Rows {
		if _, dup := seen[row.Name]; dup {
			report.Error(row.Span(), "E391", "duplicate proof obligation name `%s`", row.Name)
		}
		seen[row.Name] = struct{}{}
	}

	if len(proof.Rows) < ensuresCount {
		report.Error(proof.Span(), "E392",
			"proof has %d obligation(s) but %d ensures clause(s)", len(proof.Rows), ensuresCount)
	}

	concepts := conceptNames(fd)
	for _, row := range proof.Rows {
		if !mentionsAny(row.Text, concepts) {
			report.Warn(row.Span(), "W321",
				"proof obligation `%s` doesn't reference any function concepts", row.Name)
		}
	}
}

// conceptNames collects the referenceable names of a function: its own
// name, parameters, locals, and `result`.
func conceptNames(fd *ast.FuncDef) map[string]struct{} {
	concepts := map[string]struct{}{
		fd.Name:  {},
		"result": {},
	}
	for _, param := range fd.Params {
		concepts[param.Name] = struct{}{}
	}
	collectLocals(fd.Body, concepts)
	return concepts
}

func collectLocals(body []ast.Stmt, concepts map[string]struct{}) {
	for _, stmt := range body {
		switch stmt := stmt.(type) {
		case *ast.VarDecl:
			concepts[stmt.Name] = struct{}{}
		case *ast.ExprStmt:
			if m, ok := stmt.Expr.(*ast.Match); ok {
				for _, arm := range m.Arms {
					collectPatternNames(arm.Pattern, concepts)
					collectLocals(arm.Body, concepts)
				}
			}
		}
	}
}

func collectPatternNames(pattern ast.Pattern, concepts map[string]struct{}) {
	switch pattern := pattern.(type) {
	case *ast.BindingPattern:
		concepts[pattern.Name] = struct{}{}
	case *ast.VariantPattern:
		for _, sub := range pattern.Fields {
			collectPatternNames(sub, concepts)
		}
	}
}

// -----------------------------------------------------------------------------

// walkChains walks the callees of every function with ensures, recording a
// gap for each callee that has neither ensures nor a trusted marker.  The
// gaps feed the `prove check` coverage summary.
func (v *Verifier) walkChains() {
	for _, def := range v.mod.Defs {
		fd, ok := def.(*ast.FuncDef)
		if !ok || fd.Sym == nil {
			continue
		}

		s := summarize(fd)
		if len(s.ensures) == 0 {
			continue
		}

		seen := make(map[*symbols.Symbol]struct{})
		for _, callee := range v.calls[fd.Sym] {
			if _, dup := seen[callee]; dup {
				continue
			}
			seen[callee] = struct{}{}

			calleeFd, isUser := callee.Decl.(*ast.FuncDef)
			if !isUser {
				continue
			}

			cs := summarize(calleeFd)
			if len(cs.ensures) == 0 && !cs.trusted {
				v.Gaps = append(v.Gaps, ChainGap{From: fd.Sym, Callee: callee})
			}
		}
	}
}
