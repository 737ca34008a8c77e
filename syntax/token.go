package syntax

import "github.com/kennedyshead/prove/report"

// Token represents a single lexical token.
type Token struct {
	// The kind of the token.  This must be one of the enumerated token kinds.
	Kind int

	// The string value of the token.  For string tokens the quotes are
	// already trimmed; for INDENT/DEDENT it is empty.
	Value string

	// The span of source text the token covers.
	Span report.Span
}

// Enumeration of token kinds.
const (
	// Verbs.
	TOK_TRANSFORMS = iota
	TOK_VALIDATES
	TOK_READS
	TOK_CREATES
	TOK_MATCHES
	TOK_INPUTS
	TOK_OUTPUTS

	// Keywords.
	TOK_MAIN
	TOK_MODULE
	TOK_TYPE
	TOK_IS
	TOK_AS
	TOK_WITH
	TOK_USE
	TOK_WHERE
	TOK_MATCH
	TOK_IF
	TOK_ELSE
	TOK_FROM
	TOK_VALID
	TOK_COMPTIME
	TOK_FOREIGN

	// Contract keywords.
	TOK_ENSURES
	TOK_REQUIRES
	TOK_PROOF
	TOK_EXPLAIN
	TOK_TERMINATES
	TOK_TRUSTED
	TOK_WHY_NOT
	TOK_CHOSEN
	TOK_NEAR_MISS
	TOK_KNOW
	TOK_ASSUME
	TOK_BELIEVE
	TOK_INTENT
	TOK_NARRATIVE
	TOK_TEMPORAL
	TOK_SATISFIES
	TOK_INVARIANT_NETWORK

	// Literals.
	TOK_INTLIT
	TOK_DECIMALLIT
	TOK_STRINGLIT
	TOK_TRIPLESTRINGLIT
	TOK_RAWSTRINGLIT
	TOK_BOOLLIT
	TOK_CHARLIT
	TOK_REGEXLIT

	// Format-string interpolation delimiters.
	TOK_INTERP_START
	TOK_INTERP_END

	// Operators.
	TOK_PLUS
	TOK_MINUS
	TOK_STAR
	TOK_SLASH
	TOK_PERCENT
	TOK_EQ
	TOK_NEQ
	TOK_LT
	TOK_GT
	TOK_LTEQ
	TOK_GTEQ
	TOK_LAND
	TOK_LOR
	TOK_BANG
	TOK_PIPEARROW
	TOK_FATARROW
	TOK_ARROW
	TOK_RANGE
	TOK_DOT
	TOK_ASSIGN

	// Punctuation.
	TOK_LPAREN
	TOK_RPAREN
	TOK_LBRACKET
	TOK_RBRACKET
	TOK_COMMA
	TOK_COLON
	TOK_PIPE

	// Layout.
	TOK_NEWLINE
	TOK_INDENT
	TOK_DEDENT

	// Comments.
	TOK_DOCCOMMENT

	// Identifiers.
	TOK_IDENT
	TOK_TYPEIDENT
	TOK_CONSTIDENT

	TOK_EOF
)

// keywordPatterns maps keyword strings to their token kind.  The keyword
// table takes precedence over identifier classification.
var keywordPatterns = map[string]int{
	"transforms": TOK_TRANSFORMS,
	"validates":  TOK_VALIDATES,
	"reads":      TOK_READS,
	"creates":    TOK_CREATES,
	"matches":    TOK_MATCHES,
	"inputs":     TOK_INPUTS,
	"outputs":    TOK_OUTPUTS,

	"main":     TOK_MAIN,
	"module":   TOK_MODULE,
	"type":     TOK_TYPE,
	"is":       TOK_IS,
	"as":       TOK_AS,
	"with":     TOK_WITH,
	"use":      TOK_USE,
	"where":    TOK_WHERE,
	"match":    TOK_MATCH,
	"if":       TOK_IF,
	"else":     TOK_ELSE,
	"from":     TOK_FROM,
	"valid":    TOK_VALID,
	"comptime": TOK_COMPTIME,
	"foreign":  TOK_FOREIGN,

	"ensures":           TOK_ENSURES,
	"requires":          TOK_REQUIRES,
	"proof":             TOK_PROOF,
	"explain":           TOK_EXPLAIN,
	"terminates":        TOK_TERMINATES,
	"trusted":           TOK_TRUSTED,
	"why_not":           TOK_WHY_NOT,
	"chosen":            TOK_CHOSEN,
	"near_miss":         TOK_NEAR_MISS,
	"know":              TOK_KNOW,
	"assume":            TOK_ASSUME,
	"believe":           TOK_BELIEVE,
	"intent":            TOK_INTENT,
	"narrative":         TOK_NARRATIVE,
	"temporal":          TOK_TEMPORAL,
	"satisfies":         TOK_SATISFIES,
	"invariant_network": TOK_INVARIANT_NETWORK,

	"true":  TOK_BOOLLIT,
	"false": TOK_BOOLLIT,
}

// verbKinds is the set of verb token kinds that may begin a function
// definition.
var verbKinds = map[int]struct{}{
	TOK_TRANSFORMS: {},
	TOK_VALIDATES:  {},
	TOK_READS:      {},
	TOK_CREATES:    {},
	TOK_MATCHES:    {},
	TOK_INPUTS:     {},
	TOK_OUTPUTS:    {},
}

// suppressesNewline is the set of token kinds after which a physical newline
// is not logical: the next line continues the current logical line.
var suppressesNewline = map[int]struct{}{
	TOK_PLUS:      {},
	TOK_MINUS:     {},
	TOK_STAR:      {},
	TOK_SLASH:     {},
	TOK_PERCENT:   {},
	TOK_EQ:        {},
	TOK_NEQ:       {},
	TOK_LT:        {},
	TOK_GT:        {},
	TOK_LTEQ:      {},
	TOK_GTEQ:      {},
	TOK_LAND:      {},
	TOK_LOR:       {},
	TOK_PIPEARROW: {},
	TOK_FATARROW:  {},
	TOK_ARROW:     {},
	TOK_RANGE:     {},
	TOK_DOT:       {},
	TOK_ASSIGN:    {},
	TOK_COMMA:     {},
	TOK_COLON:     {},
	TOK_PIPE:      {},
	TOK_LPAREN:    {},
	TOK_LBRACKET:  {},
}

// valueTokens is the set of token kinds that can end a value.  A `/` after
// one of these is division; anywhere else it begins a regex literal.  A `!`
// immediately after one of these is the postfix fail marker.
var valueTokens = map[int]struct{}{
	TOK_IDENT:           {},
	TOK_TYPEIDENT:       {},
	TOK_CONSTIDENT:      {},
	TOK_INTLIT:          {},
	TOK_DECIMALLIT:      {},
	TOK_STRINGLIT:       {},
	TOK_TRIPLESTRINGLIT: {},
	TOK_RAWSTRINGLIT:    {},
	TOK_BOOLLIT:         {},
	TOK_CHARLIT:         {},
	TOK_REGEXLIT:        {},
	TOK_RPAREN:          {},
	TOK_RBRACKET:        {},
	TOK_BANG:            {},
	TOK_INTERP_END:      {},
}

// tokenKindNames maps token kinds to the names used in syntax errors.
var tokenKindNames = map[int]string{
	TOK_INTLIT:          "integer literal",
	TOK_DECIMALLIT:      "decimal literal",
	TOK_STRINGLIT:       "string literal",
	TOK_TRIPLESTRINGLIT: "string literal",
	TOK_RAWSTRINGLIT:    "string literal",
	TOK_BOOLLIT:         "boolean literal",
	TOK_CHARLIT:         "character literal",
	TOK_REGEXLIT:        "regex literal",
	TOK_IDENT:           "identifier",
	TOK_TYPEIDENT:       "type identifier",
	TOK_CONSTIDENT:      "constant identifier",
	TOK_NEWLINE:         "newline",
	TOK_INDENT:          "indent",
	TOK_DEDENT:          "dedent",
	TOK_EOF:             "end of file",
	TOK_FROM:            "`from`",
	TOK_FATARROW:        "`=>`",
	TOK_ASSIGN:          "`=`",
	TOK_LPAREN:          "`(`",
	TOK_RPAREN:          "`)`",
	TOK_LBRACKET:        "`[`",
	TOK_RBRACKET:        "`]`",
	TOK_COMMA:           "`,`",
	TOK_COLON:           "`:`",
	TOK_IS:              "`is`",
	TOK_GT:              "`>`",
}

// KindName returns a human-readable name for a token kind.
func KindName(kind int) string {
	if name, ok := tokenKindNames[kind]; ok {
		return name
	}
	for kw, k := range keywordPatterns {
		if k == kind {
			return "`" + kw + "`"
		}
	}
	return "token"
}

// IsVerb reports whether a token kind is a function verb.
func IsVerb(kind int) bool {
	_, ok := verbKinds[kind]
	return ok
}
