package syntax

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/source"
)

// Parser parses a token stream into a module AST.  Declarations are parsed
// by recursive descent; expressions by a Pratt parser.  All parsing
// functions begin positioned on the first token of their production and
// consume through its last token.
type Parser struct {
	file   *source.File
	tokens []Token
	pos    int

	failed bool
}

// parseBail is panicked to abandon the current declaration after an error;
// the top-level loop recovers and synchronizes.
type parseBail struct{}

// NewParser creates a parser over a lexed token stream.
func NewParser(file *source.File, tokens []Token) *Parser {
	return &Parser{file: file, tokens: tokens}
}

// Parse parses the whole token stream into a module.  The returned flag is
// false if any syntax errors were reported.
func (p *Parser) Parse() (*ast.Module, bool) {
	mod := &ast.Module{NodeBase: ast.NewNodeBaseOn(report.Span{File: p.file.Name, End: len(p.file.Content)})}

	p.skipNewlines()
	for !p.at(TOK_EOF) {
		p.parseTopLevel(mod)
		p.skipNewlines()
	}

	return mod, !p.failed
}

// -----------------------------------------------------------------------------

// tok returns the current token.
func (p *Parser) tok() *Token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return &p.tokens[len(p.tokens)-1]
}

// peek returns the token at the given offset without advancing.
func (p *Parser) peek(offset int) *Token {
	if p.pos+offset < len(p.tokens) {
		return &p.tokens[p.pos+offset]
	}
	return &p.tokens[len(p.tokens)-1]
}

// at returns whether the parser is positioned on a token of the given kind.
func (p *Parser) at(kind int) bool {
	return p.tok().Kind == kind
}

// atAny returns whether the current token is one of the given kinds.
func (p *Parser) atAny(kinds ...int) bool {
	for _, kind := range kinds {
		if p.tok().Kind == kind {
			return true
		}
	}
	return false
}

// advance moves the parser forward one token and returns the token it was
// positioned on.
func (p *Parser) advance() Token {
	tok := *p.tok()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// expect asserts the current token's kind, consuming and returning it on a
// match and rejecting it otherwise.
func (p *Parser) expect(kind int) Token {
	if p.at(kind) {
		return p.advance()
	}

	tok := p.tok()
	p.errorOn(tok, "expected %s, got %s", KindName(kind), p.describe(tok))
	panic(parseBail{})
}

// accept consumes the current token if it has the given kind.
func (p *Parser) accept(kind int) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	return false
}

// skipNewlines moves the parser past any run of NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.at(TOK_NEWLINE) {
		p.advance()
	}
}

func (p *Parser) describe(tok *Token) string {
	switch tok.Kind {
	case TOK_NEWLINE:
		return "newline"
	case TOK_INDENT:
		return "indent"
	case TOK_DEDENT:
		return "dedent"
	case TOK_EOF:
		return "end of file"
	default:
		return "`" + tok.Value + "`"
	}
}

// errorOn reports a syntax error on a given token.
func (p *Parser) errorOn(tok *Token, msg string, args ...interface{}) {
	p.failed = true
	report.Error(tok.Span, "E200", msg, args...)
}

// errorAt reports a syntax error at a span.
func (p *Parser) errorAt(span report.Span, code, msg string, args ...interface{}) {
	p.failed = true
	report.Error(span, code, msg, args...)
}

// reject reports an unexpected-token error on the current token and bails.
func (p *Parser) reject() {
	p.errorOn(p.tok(), "unexpected token: %s", p.describe(p.tok()))
	panic(parseBail{})
}

// synchronize skips tokens to a declaration boundary after an error.
func (p *Parser) synchronize() {
	depth := 0
	for !p.at(TOK_EOF) {
		switch p.tok().Kind {
		case TOK_INDENT:
			depth++
		case TOK_DEDENT:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		case TOK_NEWLINE:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// spanFrom builds a span from a starting span to the end of the previous
// token.
func (p *Parser) spanFrom(start report.Span) report.Span {
	if p.pos > 0 {
		return report.SpanOver(start, p.tokens[p.pos-1].Span)
	}
	return start
}
