package syntax

import (
	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
)

// parseTypeExpr parses a type expression: `Type`, `Type<T, U>`, or
// `Type:[mod1 mod2 …]`.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	start := p.tok().Span
	nameTok := p.expect(TOK_TYPEIDENT)
	name := nameTok.Value

	// Modified type: Type:[mods]
	if p.at(TOK_COLON) && p.peek(1).Kind == TOK_LBRACKET {
		p.advance() // :
		p.advance() // [

		var mods []ast.TypeModifier
		for !p.at(TOK_RBRACKET) && !p.at(TOK_EOF) {
			mods = append(mods, p.parseTypeModifier())
		}
		p.expect(TOK_RBRACKET)

		mt := &ast.ModifiedType{Name: name, Mods: mods}
		mt.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
		return mt
	}

	// Generic type: Type<A, B>
	if p.at(TOK_LT) {
		p.advance()

		var args []ast.TypeExpr
		for !p.at(TOK_GT) && !p.at(TOK_EOF) {
			if len(args) > 0 {
				p.expect(TOK_COMMA)
			}
			args = append(args, p.parseTypeExpr())
		}
		p.expect(TOK_GT)

		gt := &ast.GenericType{Name: name, Args: args}
		gt.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
		return gt
	}

	st := &ast.SimpleType{Name: name}
	st.NodeBase = ast.NewNodeBaseOn(nameTok.Span)
	return st
}

// parseTypeModifier parses one modifier inside `:[ ]`: either positional
// (`Unsigned`, `32`) or named (`Size:32`).
func (p *Parser) parseTypeModifier() ast.TypeModifier {
	tok := p.tok()

	if tok.Kind == TOK_TYPEIDENT && p.peek(1).Kind == TOK_COLON {
		name := p.advance().Value
		p.advance() // :
		valTok := p.advance()
		return ast.TypeModifier{Name: name, Value: valTok.Value, Span: report.SpanOver(tok.Span, valTok.Span)}
	}

	valTok := p.advance()
	return ast.TypeModifier{Value: valTok.Value, Span: valTok.Span}
}

// -----------------------------------------------------------------------------

// parseTypeBody determines and parses the right-hand side of a type
// definition: a record, an algebraic variant list, or a refinement.
func (p *Parser) parseTypeBody() ast.TypeBody {
	if p.at(TOK_INDENT) {
		return p.parseIndentedTypeBody()
	}
	return p.parseInlineTypeBody()
}

// parseIndentedTypeBody parses an indented type body.  A leading lowercase
// identifier means a record; a leading TypeIdent means algebraic variants.
func (p *Parser) parseIndentedTypeBody() ast.TypeBody {
	start := p.tok().Span
	p.advance() // INDENT
	p.skipNewlines()

	if p.at(TOK_IDENT) {
		body := &ast.RecordBody{}
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			body.Fields = append(body.Fields, p.parseFieldDef())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
		body.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
		return body
	}

	if p.at(TOK_TYPEIDENT) || p.at(TOK_PIPE) {
		body := &ast.AlgebraicBody{}
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			p.accept(TOK_PIPE)
			body.Variants = append(body.Variants, p.parseVariantDef())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
		body.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
		return body
	}

	p.errorOn(p.tok(), "expected field or variant name in type body")
	panic(parseBail{})
}

// parseInlineTypeBody parses a single-line type body: a refinement
// (`Integer where 1..65535`) or an inline algebraic variant list
// (`Circle(r Decimal) | Rect(w Decimal, h Decimal)`).
func (p *Parser) parseInlineTypeBody() ast.TypeBody {
	start := p.tok().Span

	if !p.at(TOK_TYPEIDENT) {
		p.errorOn(p.tok(), "expected type body")
		panic(parseBail{})
	}

	if p.looksLikeRefinement() {
		base := p.parseTypeExpr()
		p.expect(TOK_WHERE)
		constraint := p.parseRefinementConstraint()

		body := &ast.RefinementBody{Base: base, Constraint: constraint}
		body.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
		return body
	}

	body := &ast.AlgebraicBody{}
	body.Variants = append(body.Variants, p.parseVariantDef())

	for p.at(TOK_PIPE) {
		p.advance()
		p.skipNewlines()
		body.Variants = append(body.Variants, p.parseVariantDef())
	}

	// Variants may continue on an indented block.
	p.skipNewlines()
	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			p.accept(TOK_PIPE)
			body.Variants = append(body.Variants, p.parseVariantDef())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
	}

	body.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return body
}

// looksLikeRefinement scans ahead over a type expression to decide whether
// the inline body is `Type … where constraint` rather than a variant list.
func (p *Parser) looksLikeRefinement() bool {
	idx := p.pos + 1
	for idx < len(p.tokens) {
		tok := &p.tokens[idx]
		switch tok.Kind {
		case TOK_WHERE:
			return true
		case TOK_COLON:
			if idx+1 < len(p.tokens) && p.tokens[idx+1].Kind == TOK_LBRACKET {
				idx += 2
				depth := 1
				for idx < len(p.tokens) && depth > 0 {
					switch p.tokens[idx].Kind {
					case TOK_LBRACKET:
						depth++
					case TOK_RBRACKET:
						depth--
					}
					idx++
				}
				continue
			}
			return false
		case TOK_LT:
			idx++
			depth := 1
			for idx < len(p.tokens) && depth > 0 {
				switch p.tokens[idx].Kind {
				case TOK_LT:
					depth++
				case TOK_GT:
					depth--
				}
				idx++
			}
			continue
		case TOK_LPAREN, TOK_PIPE, TOK_NEWLINE, TOK_EOF, TOK_INDENT, TOK_DEDENT:
			return false
		default:
			idx++
		}
	}
	return false
}

// parseRefinementConstraint parses the constraint after `where`.  The
// comparison shorthand `>= 0` desugars to `self >= 0`.
func (p *Parser) parseRefinementConstraint() ast.Expr {
	tok := p.tok()

	switch tok.Kind {
	case TOK_GTEQ, TOK_LTEQ, TOK_GT, TOK_LT, TOK_EQ, TOK_NEQ:
		opTok := p.advance()
		right := p.parseExpr(0)

		self := &ast.Identifier{Name: "self"}
		self.ExprBase = ast.NewExprBase(opTok.Span)

		bin := &ast.Binary{Op: opTok.Value, Lhs: self, Rhs: right}
		bin.ExprBase = ast.NewExprBase(report.SpanOver(opTok.Span, right.Span()))
		return bin
	}

	return p.parseExpr(0)
}

// parseVariantDef parses `Name ['(' field {',' field} ')']`.
func (p *Parser) parseVariantDef() *ast.VariantDef {
	start := p.tok().Span
	nameTok := p.expect(TOK_TYPEIDENT)

	vd := &ast.VariantDef{Name: nameTok.Value}

	if p.accept(TOK_LPAREN) {
		for !p.at(TOK_RPAREN) && !p.at(TOK_EOF) {
			if len(vd.Fields) > 0 {
				p.expect(TOK_COMMA)
			}
			vd.Fields = append(vd.Fields, p.parseFieldDef())
		}
		p.expect(TOK_RPAREN)
	}

	vd.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return vd
}

// parseFieldDef parses `name Type ['where' constraint]`.
func (p *Parser) parseFieldDef() *ast.FieldDef {
	start := p.tok().Span
	nameTok := p.expect(TOK_IDENT)

	fd := &ast.FieldDef{Name: nameTok.Value, Type: p.parseTypeExpr()}
	if p.accept(TOK_WHERE) {
		fd.Where = p.parseRefinementConstraint()
	}

	fd.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return fd
}
