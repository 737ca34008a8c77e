package walk

import (
	"sort"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/types"
)

// inferMatch types a match expression, binding pattern names and enforcing
// exhaustiveness over the scrutinee's algebraic type.
func (w *Walker) inferMatch(m *ast.Match, expected types.Type) types.Type {
	subjectType := w.matchSubjectType(m)

	if at, ok := types.StripRefinements(subjectType).(*types.AlgebraicType); ok {
		w.checkExhaustiveness(m, at)
	} else {
		w.checkWildcardTermination(m, subjectType)
	}

	var resultType types.Type = types.Unit
	for i, arm := range m.Arms {
		w.checkPattern(arm.Pattern, subjectType)

		armType := w.walkBody(arm.Body, expected)
		if i == 0 {
			resultType = armType
			continue
		}
		if !types.IsUnknown(armType) && !w.assignable(armType, resultType) && !w.assignable(resultType, armType) {
			report.Error(arm.Span(), "E321",
				"match arms disagree: expected `%s`, got `%s`", resultType.Repr(), armType.Repr())
		}
	}

	return resultType
}

// matchSubjectType determines the scrutinee type.  An implicit match (nil
// subject) scrutinizes the enclosing function's first parameter.
func (w *Walker) matchSubjectType(m *ast.Match) types.Type {
	if m.Subject != nil {
		return w.inferExpr(m.Subject, nil)
	}

	if w.currentFunc == nil || len(w.currentFunc.Params) == 0 {
		report.Error(m.Span(), "E369", "implicit match needs an enclosing function parameter")
		return types.Unknown
	}

	param := w.currentFunc.Params[0]
	if param.Sym == nil || param.Sym.Type == nil {
		return types.Unknown
	}
	return param.Sym.Type
}

// checkExhaustiveness verifies every variant of the scrutinee's algebraic
// type appears in some arm or a wildcard closes the match, and warns on
// arms made unreachable by an earlier wildcard.
func (w *Walker) checkExhaustiveness(m *ast.Match, at *types.AlgebraicType) {
	covered := make(map[string]struct{})
	wildcardSeen := false
	hasWildcard := false

	for _, arm := range m.Arms {
		if wildcardSeen {
			report.Warn(arm.Span(), "W301", "unreachable match arm after wildcard")
		}

		switch pattern := arm.Pattern.(type) {
		case *ast.VariantPattern:
			if at.VariantNamed(pattern.Name) == nil {
				report.Error(pattern.Span(), "E370",
					"type `%s` has no variant `%s`", at.Name, pattern.Name)
				continue
			}
			covered[pattern.Name] = struct{}{}

		case *ast.WildcardPattern, *ast.BindingPattern:
			hasWildcard = true
			wildcardSeen = true
		}
	}

	if hasWildcard {
		return
	}

	var missing []string
	for _, variant := range at.Variants {
		if _, ok := covered[variant.Name]; !ok {
			missing = append(missing, variant.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		report.Add(&report.Diagnostic{
			Severity: report.SevError,
			Code:     "E371",
			Message:  "non-exhaustive match: missing " + strings.Join(missing, ", "),
			Labels:   []report.Label{{Span: m.Span()}},
			Notes:    []string{"add the missing arms or end with a wildcard `_ =>` arm"},
		})
	}
}

// checkWildcardTermination requires non-algebraic matches (over literals)
// to end with a wildcard or binding arm.
func (w *Walker) checkWildcardTermination(m *ast.Match, subjectType types.Type) {
	if types.IsUnknown(subjectType) || len(m.Arms) == 0 {
		return
	}

	wildcardSeen := false
	for _, arm := range m.Arms {
		if wildcardSeen {
			report.Warn(arm.Span(), "W301", "unreachable match arm after wildcard")
			continue
		}
		switch arm.Pattern.(type) {
		case *ast.WildcardPattern, *ast.BindingPattern:
			wildcardSeen = true
		}
	}

	if !wildcardSeen {
		report.Error(m.Span(), "E371",
			"match over `%s` must end with a wildcard arm", subjectType.Repr())
	}
}

// checkPattern types a pattern against the scrutinee type, binding pattern
// names.
func (w *Walker) checkPattern(pattern ast.Pattern, subjectType types.Type) {
	switch pattern := pattern.(type) {
	case *ast.BindingPattern:
		if pattern.Sym != nil {
			pattern.Sym.Type = subjectType
		}

	case *ast.VariantPattern:
		at, ok := types.StripRefinements(subjectType).(*types.AlgebraicType)
		if !ok {
			if !types.IsUnknown(subjectType) {
				report.Error(pattern.Span(), "E370",
					"variant pattern needs an algebraic scrutinee, got `%s`", subjectType.Repr())
			}
			return
		}

		variant := at.VariantNamed(pattern.Name)
		if variant == nil {
			// Unknown variants are reported by the exhaustiveness pass.
			return
		}

		if len(pattern.Fields) != len(variant.Fields) {
			report.Error(pattern.Span(), "E330",
				"variant `%s` has %d fields, pattern binds %d",
				variant.Name, len(variant.Fields), len(pattern.Fields))
		}

		for i, sub := range pattern.Fields {
			var fieldType types.Type = types.Unknown
			if i < len(variant.Fields) {
				fieldType = variant.Fields[i].Type
			}
			w.checkPattern(sub, fieldType)
		}

	case *ast.LiteralPattern:
		// Literal patterns carry their own value; nothing to bind.
	}
}
