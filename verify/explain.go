package verify

import (
	"strconv"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
)

// cnlVocabulary is the vocabulary of the controlled-natural-language
// tokenizer: recognized operation verbs and connector prepositions, both
// extensible through the manifest's [explain] section.
type cnlVocabulary struct {
	operations map[string]struct{}
	connectors map[string]struct{}
}

// builtinOperations is the built-in operation verb set.
var builtinOperations = []string{
	"sum", "reduce", "add", "subtract", "multiply", "divide",
	"bound", "clamp", "limit",
	"filter", "map", "fold", "collect", "gather",
	"check", "validate", "verify", "reject", "accept",
	"trim", "lower", "upper", "normalize", "strip",
	"parse", "decode", "encode", "format", "render",
	"read", "load", "fetch", "store", "write",
	"build", "create", "make", "construct",
	"return", "compute", "apply", "transform", "convert",
	"split", "join", "append", "remove", "drop", "take",
	"compare", "sort", "order", "count", "measure",
}

// builtinConnectors is the fixed preposition set.
var builtinConnectors = []string{
	"from", "to", "with", "by", "using", "of", "in", "into",
	"over", "under", "below", "above", "between", "against",
	"for", "as", "on", "at", "and", "then",
}

// sugarWords are ignored entirely by the tokenizer.
var sugarWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "all": {},
	"applicable": {}, "every": {}, "some": {},
}

// operationContracts maps operation verbs to the contract shape the claimed
// callee's ensures clauses are expected to state.
var operationContracts = map[string]string{
	"sum":    "monotone non-decreasing on non-negative inputs",
	"reduce": "output-shape statement",
	"add":    "commutativity check",
	"clamp":  "result bounded by the given limits",
	"bound":  "result bounded by the given limits",
	"filter": "output is a subset of the input",
	"sort":   "output is a permutation of the input",
}

func newCNLVocabulary(extraOps, extraConnectors []string) *cnlVocabulary {
	v := &cnlVocabulary{
		operations: make(map[string]struct{}),
		connectors: make(map[string]struct{}),
	}
	for _, op := range builtinOperations {
		v.operations[op] = struct{}{}
	}
	for _, op := range extraOps {
		v.operations[strings.ToLower(op)] = struct{}{}
	}
	for _, c := range builtinConnectors {
		v.connectors[c] = struct{}{}
	}
	for _, c := range extraConnectors {
		v.connectors[strings.ToLower(c)] = struct{}{}
	}
	return v
}

// cnlRow is one tokenized explain row.
type cnlRow struct {
	operation  string
	connectors []string
	references []string
}

// tokenizeRow extracts the operation (first recognized verb), connectors,
// and references from one row.  Sugar words are ignored; words that match a
// known concept name become references.
func (v *cnlVocabulary) tokenizeRow(text string, concepts map[string]struct{}) (cnlRow, []string) {
	var row cnlRow
	var unknownRefs []string

	for _, word := range strings.Fields(text) {
		lower := strings.ToLower(strings.Trim(word, ".,;:"))
		if lower == "" {
			continue
		}

		if _, sugar := sugarWords[lower]; sugar {
			continue
		}

		if row.operation == "" {
			if _, isOp := v.operations[lower]; isOp {
				row.operation = lower
				continue
			}
		}

		if _, isConn := v.connectors[lower]; isConn {
			row.connectors = append(row.connectors, lower)
			continue
		}

		if _, isConcept := concepts[lower]; isConcept {
			row.references = append(row.references, lower)
			continue
		}

		// Field chains reference a parameter through their head.
		if head, _, isChain := strings.Cut(lower, "."); isChain {
			if _, isConcept := concepts[head]; isConcept {
				row.references = append(row.references, lower)
				continue
			}
		}

		// Code-shaped words that match nothing are broken references;
		// ordinary prose nouns pass through.
		if strings.ContainsAny(lower, "_.") {
			unknownRefs = append(unknownRefs, lower)
		}
	}

	return row, unknownRefs
}

// -----------------------------------------------------------------------------

// verifyExplain checks an explain block.  Strict mode (the function has at
// least one ensures) requires one row per top-level body statement and runs
// the full CNL pass; loose mode only checks well-formedness and reference
// existence.
func (v *Verifier) verifyExplain(fd *ast.FuncDef, explain *ast.Annot, strict bool) {
	concepts := conceptNames(fd)

	if strict {
		stmtCount := countTopLevelStatements(fd.Body)
		if len(explain.Rows) != stmtCount {
			report.Add(&report.Diagnostic{
				Severity: report.SevError,
				Code:     "E390",
				Message:  "explain row count does not match the body",
				Labels:   []report.Label{{Span: explain.Span()}},
				Notes: []string{
					"explain has " + strconv.Itoa(len(explain.Rows)) + " row(s) but the body has " +
						strconv.Itoa(stmtCount) + " top-level statement(s)",
				},
			})
		}

		seen := make(map[string]struct{})
		for _, row := range explain.Rows {
			normalized := strings.Join(strings.Fields(strings.ToLower(row.Text)), " ")
			if _, dup := seen[normalized]; dup {
				report.Error(row.Span(), "E391", "duplicate explain row")
			}
			seen[normalized] = struct{}{}
		}
	}

	for _, row := range explain.Rows {
		parsed, unknownRefs := v.cnl.tokenizeRow(row.Text, concepts)

		for _, ref := range unknownRefs {
			report.Error(row.Span(), "E392", "explain row references unknown name `%s`", ref)
		}

		if !strict {
			continue
		}

		if parsed.operation == "" {
			report.Error(row.Span(), "E394",
				"explain row has no recognized operation: extend [explain].operations or rephrase")
			continue
		}

		v.checkOperationClaim(fd, row, parsed.operation)
	}
}

// checkOperationClaim cross-checks a claimed operation against the declared
// contract of the called function it names.
func (v *Verifier) checkOperationClaim(fd *ast.FuncDef, row *ast.AnnotRow, operation string) {
	expectedShape, known := operationContracts[operation]
	if !known || fd.Sym == nil {
		return
	}

	for _, callee := range v.calls[fd.Sym] {
		if callee.Name != operation {
			continue
		}
		calleeFd, isUser := callee.Decl.(*ast.FuncDef)
		if !isUser {
			continue
		}
		if len(summarize(calleeFd).ensures) == 0 {
			report.Warn(row.Span(), "W326",
				"row claims `%s` but `%s` declares no ensures stating %s",
				operation, callee.Name, expectedShape)
		}
		return
	}
}

// countTopLevelStatements counts the statements an explain block must
// cover: each var-decl, assignment, or terminal expression is one, and each
// arm of an implicit match counts as one.
func countTopLevelStatements(body []ast.Stmt) int {
	count := 0
	for _, stmt := range body {
		if es, ok := stmt.(*ast.ExprStmt); ok {
			if m, isMatch := es.Expr.(*ast.Match); isMatch && m.Subject == nil {
				count += len(m.Arms)
				continue
			}
		}
		count++
	}
	return count
}

// mentionsAny reports whether the text mentions at least one concept name.
func mentionsAny(text string, concepts map[string]struct{}) bool {
	lower := strings.ToLower(text)
	for concept := range concepts {
		if strings.Contains(lower, strings.ToLower(concept)) {
			return true
		}
	}
	return false
}

