package syntax

import (
	"strconv"
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
)

// Binding powers for the Pratt expression parser, low to high.
var infixBindingPower = map[int][2]int{
	TOK_PIPEARROW: {1, 2},
	TOK_LOR:       {3, 4},
	TOK_LAND:      {5, 6},
	TOK_EQ:        {7, 8},
	TOK_NEQ:       {7, 8},
	TOK_LT:        {7, 8},
	TOK_GT:        {7, 8},
	TOK_LTEQ:      {7, 8},
	TOK_GTEQ:      {7, 8},
	TOK_RANGE:     {9, 10},
	TOK_PLUS:      {11, 12},
	TOK_MINUS:     {11, 12},
	TOK_STAR:      {13, 14},
	TOK_SLASH:     {13, 14},
	TOK_PERCENT:   {13, 14},
}

const (
	prefixBindingPower  = 15
	postfixBindingPower = 17
)

// -----------------------------------------------------------------------------

// parseBody parses a function body after `from`: an indented block of
// statements, or match arms when the body is an implicit match.
func (p *Parser) parseBody() []ast.Stmt {
	if !p.at(TOK_INDENT) {
		return []ast.Stmt{p.parseStmt()}
	}

	p.advance() // INDENT

	var stmts []ast.Stmt
	for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
		p.skipNewlines()
		if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
			break
		}

		if p.looksLikeMatchArm() {
			start := p.tok().Span
			arms := p.parseImplicitMatchArms()

			m := &ast.Match{Arms: arms}
			m.ExprBase = ast.NewExprBase(p.spanFrom(start))

			es := &ast.ExprStmt{Expr: m}
			es.NodeBase = ast.NewNodeBaseOn(m.Span())
			stmts = append(stmts, es)
			continue
		}

		stmts = append(stmts, p.parseStmt())
		p.skipNewlines()
	}

	p.accept(TOK_DEDENT)
	return stmts
}

// looksLikeMatchArm checks whether the current position begins an implicit
// match arm: a pattern followed by `=>`.
func (p *Parser) looksLikeMatchArm() bool {
	tok := p.tok()

	switch tok.Kind {
	case TOK_TYPEIDENT:
		return p.scanForFatArrow()
	case TOK_IDENT:
		return tok.Value == "_" && p.peek(1).Kind == TOK_FATARROW
	case TOK_INTLIT, TOK_DECIMALLIT, TOK_STRINGLIT, TOK_BOOLLIT, TOK_CHARLIT:
		return p.peek(1).Kind == TOK_FATARROW
	default:
		return false
	}
}

// scanForFatArrow scans past a variant pattern head to check for `=>`.
func (p *Parser) scanForFatArrow() bool {
	idx := p.pos + 1
	if idx < len(p.tokens) && p.tokens[idx].Kind == TOK_LPAREN {
		depth := 1
		idx++
		for idx < len(p.tokens) && depth > 0 {
			switch p.tokens[idx].Kind {
			case TOK_LPAREN:
				depth++
			case TOK_RPAREN:
				depth--
			}
			idx++
		}
	}
	return idx < len(p.tokens) && p.tokens[idx].Kind == TOK_FATARROW
}

// parseImplicitMatchArms parses a run of match arms at the body indent.
func (p *Parser) parseImplicitMatchArms() []*ast.MatchArm {
	var arms []*ast.MatchArm
	for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
		p.skipNewlines()
		if p.at(TOK_DEDENT) || p.at(TOK_EOF) || !p.looksLikeMatchArm() {
			break
		}
		arms = append(arms, p.parseMatchArm())
		p.skipNewlines()
	}
	return arms
}

// -----------------------------------------------------------------------------

// parseStmt parses a statement: a var declaration, an assignment, or an
// expression.
func (p *Parser) parseStmt() ast.Stmt {
	if p.at(TOK_IDENT) && p.peek(1).Kind == TOK_AS {
		return p.parseVarDecl()
	}

	if p.at(TOK_IDENT) && p.peek(1).Kind == TOK_ASSIGN {
		return p.parseAssign()
	}

	expr := p.parseExpr(0)
	es := &ast.ExprStmt{Expr: expr}
	es.NodeBase = ast.NewNodeBaseOn(expr.Span())
	return es
}

// parseVarDecl parses `name as [Type] = expr`.
func (p *Parser) parseVarDecl() *ast.VarDecl {
	start := p.tok().Span
	nameTok := p.advance()
	p.advance() // as

	vd := &ast.VarDecl{Name: nameTok.Value, NameSpan: nameTok.Span}

	if p.at(TOK_TYPEIDENT) {
		vd.Type = p.parseTypeExpr()
	}

	p.expect(TOK_ASSIGN)
	vd.Value = p.parseExpr(0)

	vd.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return vd
}

// parseAssign parses `name = expr`.
func (p *Parser) parseAssign() *ast.Assign {
	start := p.tok().Span
	nameTok := p.advance()
	p.advance() // =

	a := &ast.Assign{Name: nameTok.Value, Value: p.parseExpr(0)}
	a.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return a
}

// -----------------------------------------------------------------------------

// parseExpr parses an expression with the Pratt algorithm.
func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.parsePrefix()

	for {
		tok := p.tok()

		// Postfix fail propagation: a `!` with no whitespace after a value.
		if tok.Kind == TOK_BANG && tok.Span.Start == left.Span().End {
			if postfixBindingPower < minBP {
				break
			}
			p.advance()

			fp := &ast.FailProp{Operand: left}
			fp.ExprBase = ast.NewExprBase(report.SpanOver(left.Span(), tok.Span))
			left = fp
			continue
		}

		if tok.Kind == TOK_DOT {
			if postfixBindingPower < minBP {
				break
			}
			p.advance()
			fieldTok := p.expect(TOK_IDENT)

			fa := &ast.FieldAccess{Root: left, Field: fieldTok.Value}
			fa.ExprBase = ast.NewExprBase(report.SpanOver(left.Span(), fieldTok.Span))
			left = fa
			continue
		}

		if tok.Kind == TOK_LPAREN {
			if _, callable := left.(*ast.Identifier); !callable {
				if _, callable := left.(*ast.TypeIdent); !callable {
					if _, callable := left.(*ast.FieldAccess); !callable {
						break
					}
				}
			}
			if postfixBindingPower < minBP {
				break
			}
			left = p.parseCall(left)
			continue
		}

		if tok.Kind == TOK_LBRACKET {
			if postfixBindingPower < minBP {
				break
			}
			p.advance()
			index := p.parseExpr(0)
			endTok := p.expect(TOK_RBRACKET)

			ix := &ast.Index{Root: left, Subject: index}
			ix.ExprBase = ast.NewExprBase(report.SpanOver(left.Span(), endTok.Span))
			left = ix
			continue
		}

		// `TypeIdent<…>` is a type-argument list only when it closes as a
		// well-formed one; otherwise `<` reverts to comparison.
		if tok.Kind == TOK_LT {
			if ti, ok := left.(*ast.TypeIdent); ok && p.tryTypeArgs() {
				left = ti
				continue
			}
		}

		bp, isInfix := infixBindingPower[tok.Kind]
		if !isInfix || bp[0] < minBP {
			break
		}

		opTok := p.advance()
		p.skipNewlines()
		right := p.parseExpr(bp[1])
		span := report.SpanOver(left.Span(), right.Span())

		switch opTok.Kind {
		case TOK_PIPEARROW:
			pipe := &ast.Pipe{Lhs: left, Rhs: right}
			pipe.ExprBase = ast.NewExprBase(span)
			left = pipe
		case TOK_RANGE:
			r := &ast.Range{Lo: left, Hi: right}
			r.ExprBase = ast.NewExprBase(span)
			left = r
		default:
			bin := &ast.Binary{Op: opTok.Value, Lhs: left, Rhs: right}
			bin.ExprBase = ast.NewExprBase(span)
			left = bin
		}
	}

	return left
}

// tryTypeArgs attempts to consume `'<' type {',' type} '>'` with restricted
// lookahead, backtracking to comparison on failure.
func (p *Parser) tryTypeArgs() bool {
	save := p.pos
	ok := func() (ok bool) {
		defer func() {
			if x := recover(); x != nil {
				if _, bail := x.(parseBail); !bail {
					panic(x)
				}
				ok = false
			}
		}()

		p.advance() // <
		p.parseTypeExpr()
		for p.accept(TOK_COMMA) {
			p.parseTypeExpr()
		}
		return p.at(TOK_GT)
	}()

	if !ok {
		p.pos = save
		return false
	}
	p.advance() // >
	return true
}

// parseCall parses `func '(' args ')'`.
func (p *Parser) parseCall(fn ast.Expr) *ast.Call {
	p.advance() // (

	call := &ast.Call{Func: fn}
	for !p.at(TOK_RPAREN) && !p.at(TOK_EOF) {
		if len(call.Args) > 0 {
			p.expect(TOK_COMMA)
		}
		call.Args = append(call.Args, p.parseExpr(0))
	}
	endTok := p.expect(TOK_RPAREN)

	call.ExprBase = ast.NewExprBase(report.SpanOver(fn.Span(), endTok.Span))
	return call
}

// -----------------------------------------------------------------------------

// parsePrefix parses an atom or prefix operator application.
func (p *Parser) parsePrefix() ast.Expr {
	tok := p.tok()

	switch tok.Kind {
	case TOK_BANG, TOK_MINUS:
		opTok := p.advance()
		operand := p.parseExpr(prefixBindingPower)

		u := &ast.Unary{Op: opTok.Value, Operand: operand}
		u.ExprBase = ast.NewExprBase(report.SpanOver(opTok.Span, operand.Span()))
		return u

	case TOK_PIPE:
		return p.parseLambda()

	case TOK_INTLIT:
		p.advance()
		value, err := strconv.ParseInt(strings.TrimPrefix(tok.Value, "+"), 0, 64)
		if err != nil {
			p.errorOn(tok, "integer literal out of range")
		}
		lit := &ast.IntLit{Value: value, Text: tok.Value}
		lit.ExprBase = ast.NewExprBase(tok.Span)
		return lit

	case TOK_DECIMALLIT:
		p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorOn(tok, "malformed decimal literal")
		}
		lit := &ast.DecimalLit{Value: value, Text: tok.Value}
		lit.ExprBase = ast.NewExprBase(tok.Span)
		return lit

	case TOK_BOOLLIT:
		p.advance()
		lit := &ast.BoolLit{Value: tok.Value == "true"}
		lit.ExprBase = ast.NewExprBase(tok.Span)
		return lit

	case TOK_STRINGLIT:
		return p.parseStringOrInterp()

	case TOK_TRIPLESTRINGLIT, TOK_RAWSTRINGLIT:
		p.advance()
		lit := &ast.StringLit{Value: tok.Value}
		lit.ExprBase = ast.NewExprBase(tok.Span)
		return lit

	case TOK_CHARLIT:
		p.advance()
		lit := &ast.CharLit{}
		if len(tok.Value) > 0 {
			lit.Value = tok.Value[0]
		}
		lit.ExprBase = ast.NewExprBase(tok.Span)
		return lit

	case TOK_REGEXLIT:
		p.advance()
		lit := &ast.RegexLit{Pattern: tok.Value}
		lit.ExprBase = ast.NewExprBase(tok.Span)
		return lit

	case TOK_LPAREN:
		p.advance()
		expr := p.parseExpr(0)
		p.expect(TOK_RPAREN)
		return expr

	case TOK_LBRACKET:
		return p.parseListLit()

	case TOK_VALID:
		return p.parseValid()

	case TOK_MATCH:
		return p.parseMatch()

	case TOK_IF:
		return p.parseIf()

	case TOK_COMPTIME:
		return p.parseComptime()

	case TOK_IDENT, TOK_CONSTIDENT:
		p.advance()
		id := &ast.Identifier{Name: tok.Value}
		id.ExprBase = ast.NewExprBase(tok.Span)
		return id

	case TOK_TYPEIDENT:
		p.advance()
		ti := &ast.TypeIdent{Name: tok.Value}
		ti.ExprBase = ast.NewExprBase(tok.Span)
		return ti

	default:
		p.reject()
		panic("unreachable")
	}
}

// parseStringOrInterp parses a string literal, gathering interpolation
// segments when the lexer produced them.
func (p *Parser) parseStringOrInterp() ast.Expr {
	start := p.tok().Span
	var parts []ast.Expr

	for p.atAny(TOK_STRINGLIT, TOK_INTERP_START) {
		if p.at(TOK_STRINGLIT) {
			tok := p.advance()
			lit := &ast.StringLit{Value: tok.Value}
			lit.ExprBase = ast.NewExprBase(tok.Span)
			parts = append(parts, lit)
		} else {
			p.advance() // INTERP_START
			parts = append(parts, p.parseExpr(0))
			p.accept(TOK_INTERP_END)
		}
	}

	if len(parts) == 1 {
		if lit, ok := parts[0].(*ast.StringLit); ok {
			return lit
		}
	}

	interp := &ast.InterpString{Parts: parts}
	interp.ExprBase = ast.NewExprBase(p.spanFrom(start))
	return interp
}

// parseListLit parses `'[' [expr {',' expr}] ']'`.
func (p *Parser) parseListLit() *ast.ListLit {
	start := p.tok().Span
	p.advance() // [

	lit := &ast.ListLit{}
	for !p.at(TOK_RBRACKET) && !p.at(TOK_EOF) {
		if len(lit.Elems) > 0 {
			p.expect(TOK_COMMA)
		}
		lit.Elems = append(lit.Elems, p.parseExpr(0))
	}
	p.expect(TOK_RBRACKET)

	lit.ExprBase = ast.NewExprBase(p.spanFrom(start))
	return lit
}

// parseValid parses `valid f` (first-class validates reference) or
// `valid f(args)` (forced validates call).
func (p *Parser) parseValid() *ast.Valid {
	start := p.tok().Span
	p.advance() // valid

	v := &ast.Valid{Name: p.expect(TOK_IDENT).Value}

	if p.accept(TOK_LPAREN) {
		v.Args = []ast.Expr{}
		for !p.at(TOK_RPAREN) && !p.at(TOK_EOF) {
			if len(v.Args) > 0 {
				p.expect(TOK_COMMA)
			}
			v.Args = append(v.Args, p.parseExpr(0))
		}
		p.expect(TOK_RPAREN)
	}

	v.ExprBase = ast.NewExprBase(p.spanFrom(start))
	return v
}

// parseMatch parses `match expr` plus its arm block.
func (p *Parser) parseMatch() *ast.Match {
	start := p.tok().Span
	p.advance() // match

	m := &ast.Match{Subject: p.parseExpr(0)}
	p.skipNewlines()

	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			m.Arms = append(m.Arms, p.parseMatchArm())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
	} else {
		m.Arms = append(m.Arms, p.parseMatchArm())
	}

	m.ExprBase = ast.NewExprBase(p.spanFrom(start))
	return m
}

// parseMatchArm parses `pattern '=>' body`.
func (p *Parser) parseMatchArm() *ast.MatchArm {
	start := p.tok().Span
	pattern := p.parsePattern()
	p.expect(TOK_FATARROW)
	p.skipNewlines()

	arm := &ast.MatchArm{Pattern: pattern}

	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			arm.Body = append(arm.Body, p.parseStmt())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
	} else {
		arm.Body = append(arm.Body, p.parseStmt())
	}

	arm.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return arm
}

// parseIf parses an if/else expression.  The checker rejects `if` outside
// comptime blocks.
func (p *Parser) parseIf() *ast.If {
	start := p.tok().Span
	p.advance() // if

	ie := &ast.If{Cond: p.parseExpr(0)}
	p.skipNewlines()
	ie.Then = p.parseBranchBody()

	p.skipNewlines()
	if p.accept(TOK_ELSE) {
		p.skipNewlines()
		ie.Else = p.parseBranchBody()
	}

	ie.ExprBase = ast.NewExprBase(p.spanFrom(start))
	return ie
}

func (p *Parser) parseBranchBody() []ast.Stmt {
	if !p.accept(TOK_INDENT) {
		return []ast.Stmt{p.parseStmt()}
	}

	var stmts []ast.Stmt
	for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
		p.skipNewlines()
		if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
			break
		}
		stmts = append(stmts, p.parseStmt())
		p.skipNewlines()
	}
	p.accept(TOK_DEDENT)
	return stmts
}

// parseLambda parses `'|' params '|' expr`.
func (p *Parser) parseLambda() *ast.Lambda {
	start := p.tok().Span
	p.advance() // |

	lam := &ast.Lambda{}
	for !p.at(TOK_PIPE) && !p.at(TOK_EOF) {
		if len(lam.Params) > 0 {
			p.expect(TOK_COMMA)
		}
		tok := p.expect(TOK_IDENT)
		lam.Params = append(lam.Params, tok.Value)
		lam.ParamSpans = append(lam.ParamSpans, tok.Span)
	}
	p.expect(TOK_PIPE)

	lam.Body = p.parseExpr(0)
	lam.ExprBase = ast.NewExprBase(report.SpanOver(start, lam.Body.Span()))
	return lam
}

// -----------------------------------------------------------------------------

// parsePattern parses a match pattern.
func (p *Parser) parsePattern() ast.Pattern {
	tok := p.tok()

	switch tok.Kind {
	case TOK_TYPEIDENT:
		return p.parseVariantPattern()

	case TOK_IDENT:
		p.advance()
		if tok.Value == "_" {
			wp := &ast.WildcardPattern{}
			wp.NodeBase = ast.NewNodeBaseOn(tok.Span)
			return wp
		}
		bp := &ast.BindingPattern{Name: tok.Value}
		bp.NodeBase = ast.NewNodeBaseOn(tok.Span)
		return bp

	case TOK_INTLIT, TOK_DECIMALLIT, TOK_STRINGLIT, TOK_BOOLLIT, TOK_CHARLIT:
		p.advance()
		lp := &ast.LiteralPattern{Kind: tok.Kind, Value: tok.Value}
		lp.NodeBase = ast.NewNodeBaseOn(tok.Span)
		return lp

	default:
		p.errorOn(tok, "expected pattern, got %s", p.describe(tok))
		panic(parseBail{})
	}
}

// parseVariantPattern parses `Name ['(' pattern {',' pattern} ')']`.
func (p *Parser) parseVariantPattern() *ast.VariantPattern {
	start := p.tok().Span
	nameTok := p.advance()

	vp := &ast.VariantPattern{Name: nameTok.Value}

	if p.accept(TOK_LPAREN) {
		for !p.at(TOK_RPAREN) && !p.at(TOK_EOF) {
			if len(vp.Fields) > 0 {
				p.expect(TOK_COMMA)
			}
			vp.Fields = append(vp.Fields, p.parsePattern())
		}
		p.expect(TOK_RPAREN)
	}

	vp.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return vp
}
