package syntax

import (
	"strings"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
)

// parseTopLevel parses one top-level declaration into the module, recovering
// to a declaration boundary on error.
func (p *Parser) parseTopLevel(mod *ast.Module) {
	defer func() {
		if x := recover(); x != nil {
			if _, ok := x.(parseBail); !ok {
				panic(x)
			}
			p.synchronize()
		}
	}()

	doc := p.parseDocComments()
	tok := p.tok()

	switch {
	case IsVerb(tok.Kind):
		mod.Defs = append(mod.Defs, p.parseFuncDef(doc))
	case tok.Kind == TOK_MAIN:
		mod.Defs = append(mod.Defs, p.parseMainDef(doc))
	case tok.Kind == TOK_TYPE:
		mod.Defs = append(mod.Defs, p.parseTypeDef(doc))
	case tok.Kind == TOK_WITH:
		mod.Imports = append(mod.Imports, p.parseImportDecl())
	case tok.Kind == TOK_MODULE:
		p.parseModuleDecl(mod)
	case tok.Kind == TOK_FOREIGN:
		mod.Defs = append(mod.Defs, p.parseForeignBlock())
	case tok.Kind == TOK_INVARIANT_NETWORK:
		mod.Defs = append(mod.Defs, p.parseInvariantNetwork())
	case tok.Kind == TOK_CONSTIDENT:
		mod.Defs = append(mod.Defs, p.parseConstDef())
	case tok.Kind == TOK_IDENT:
		p.errorAt(tok.Span, "E203", "function declarations begin with a verb: did you mean `transforms %s`?", tok.Value)
		panic(parseBail{})
	default:
		p.reject()
	}
}

// parseDocComments collects a run of adjacent doc comments, concatenating
// them in order.
func (p *Parser) parseDocComments() string {
	var lines []string
	for p.at(TOK_DOCCOMMENT) {
		lines = append(lines, p.advance().Value)
		p.skipNewlines()
	}
	return strings.Join(lines, "\n")
}

// -----------------------------------------------------------------------------

// parseFuncDef parses a verb-prefixed function definition:
//
//	verb name '(' params ')' [Type] ['!'] NEWLINE [INDENT] annots* 'from' body [DEDENT]
func (p *Parser) parseFuncDef(doc string) *ast.FuncDef {
	start := p.tok().Span
	verbTok := p.advance()
	verb := verbTok.Value

	nameTok := p.expectFuncName()

	fd := &ast.FuncDef{
		Verb:     verb,
		Name:     nameTok.Value,
		NameSpan: nameTok.Span,
		Doc:      doc,
	}

	fd.Params = p.parseParamList()

	if p.at(TOK_TYPEIDENT) {
		retType := p.parseTypeExpr()
		if verb == "validates" {
			p.errorAt(retType.Span(), "E360", "validates has implicit Boolean return")
		} else {
			fd.ReturnType = retType
		}
	}

	if p.at(TOK_BANG) {
		bang := p.advance()
		switch verb {
		case "inputs", "outputs":
			fd.CanFail = true
		default:
			p.errorAt(bang.Span, "E361", "pure verb `%s` cannot declare the `!` fail marker", verb)
		}
	}

	p.skipNewlines()
	inIndent := p.accept(TOK_INDENT)

	fd.Annots = p.parseAnnotations()

	p.expect(TOK_FROM)
	p.skipNewlines()
	fd.Body = p.parseBody()

	if inIndent {
		p.accept(TOK_DEDENT)
	}

	fd.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return fd
}

// expectFuncName accepts a function name, rejecting wrong-case declarations
// with a rewritten-name hint.
func (p *Parser) expectFuncName() Token {
	if p.at(TOK_IDENT) {
		return p.advance()
	}

	if p.atAny(TOK_TYPEIDENT, TOK_CONSTIDENT) {
		tok := p.advance()
		report.Add(&report.Diagnostic{
			Severity:    report.SevError,
			Code:        "E303",
			Message:     "function names are snake_case",
			Labels:      []report.Label{{Span: tok.Span}},
			Suggestions: []string{toSnakeCase(tok.Value)},
		})
		p.failed = true
		return tok
	}

	return p.expect(TOK_IDENT)
}

// toSnakeCase rewrites a wrong-case identifier into its snake_case form.
func toSnakeCase(name string) string {
	var sb strings.Builder
	prevLower := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if prevLower {
				sb.WriteByte('_')
			}
			sb.WriteByte(c - 'A' + 'a')
			prevLower = false
		} else {
			sb.WriteByte(c)
			prevLower = c >= 'a' && c <= 'z'
		}
	}
	return sb.String()
}

// toCamelCase rewrites a wrong-case identifier into its CamelCase form.
func toCamelCase(name string) string {
	var sb strings.Builder
	upper := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			sb.WriteByte(c - 'a' + 'A')
		} else {
			sb.WriteByte(c)
		}
		upper = false
	}
	return sb.String()
}

// parseMainDef parses the entry point: `main() [Type] ['!'] … from body`.
func (p *Parser) parseMainDef(doc string) *ast.MainDef {
	start := p.tok().Span
	p.advance() // main
	p.expect(TOK_LPAREN)
	p.expect(TOK_RPAREN)

	md := &ast.MainDef{Doc: doc}

	if p.at(TOK_TYPEIDENT) {
		md.ReturnType = p.parseTypeExpr()
	}
	if p.accept(TOK_BANG) {
		md.CanFail = true
	}

	p.skipNewlines()
	inIndent := p.accept(TOK_INDENT)

	p.expect(TOK_FROM)
	p.skipNewlines()
	md.Body = p.parseBody()

	if inIndent {
		p.accept(TOK_DEDENT)
	}

	md.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return md
}

// parseParamList parses `'(' [param {',' param}] ')'`.
func (p *Parser) parseParamList() []*ast.Param {
	p.expect(TOK_LPAREN)

	var params []*ast.Param
	for !p.at(TOK_RPAREN) && !p.at(TOK_EOF) {
		if len(params) > 0 {
			p.expect(TOK_COMMA)
		}
		params = append(params, p.parseParam())
	}

	p.expect(TOK_RPAREN)
	return params
}

// parseParam parses `name Type ['where' constraint]`.
func (p *Parser) parseParam() *ast.Param {
	nameTok := p.expect(TOK_IDENT)

	param := &ast.Param{
		Name:     nameTok.Value,
		NameSpan: nameTok.Span,
		Type:     p.parseTypeExpr(),
	}

	if p.accept(TOK_WHERE) {
		param.Where = p.parseRefinementConstraint()
	}

	return param
}

// -----------------------------------------------------------------------------

// parseAnnotations parses the annotation block between a signature and
// `from`.  Annotations are recorded in source order; the verifier enforces
// canonical ordering only for formatter output.
func (p *Parser) parseAnnotations() []*ast.Annot {
	var annots []*ast.Annot

	for !p.at(TOK_FROM) && !p.at(TOK_EOF) {
		start := p.tok().Span

		switch p.tok().Kind {
		case TOK_REQUIRES:
			p.advance()
			annots = append(annots, p.finishExprAnnot(ast.AnnotRequires, start))
		case TOK_ENSURES:
			p.advance()
			annots = append(annots, p.finishExprAnnot(ast.AnnotEnsures, start))
		case TOK_TERMINATES:
			p.advance()
			p.accept(TOK_COLON)
			annots = append(annots, p.finishExprAnnot(ast.AnnotTerminates, start))
		case TOK_KNOW:
			p.advance()
			p.expect(TOK_COLON)
			annots = append(annots, p.finishExprAnnot(ast.AnnotKnow, start))
		case TOK_ASSUME:
			p.advance()
			p.expect(TOK_COLON)
			annots = append(annots, p.finishExprAnnot(ast.AnnotAssume, start))
		case TOK_BELIEVE:
			p.advance()
			p.expect(TOK_COLON)
			annots = append(annots, p.finishExprAnnot(ast.AnnotBelieve, start))
		case TOK_TRUSTED:
			p.advance()
			annot := &ast.Annot{Kind: ast.AnnotTrusted}
			if p.at(TOK_STRINGLIT) {
				annot.Text = p.advance().Value
			}
			annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
			annots = append(annots, annot)
		case TOK_WHY_NOT:
			p.advance()
			p.expect(TOK_COLON)
			annots = append(annots, p.finishTextAnnot(ast.AnnotWhyNot, start))
		case TOK_CHOSEN:
			p.advance()
			p.expect(TOK_COLON)
			annots = append(annots, p.finishTextAnnot(ast.AnnotChosen, start))
		case TOK_INTENT:
			p.advance()
			p.expect(TOK_COLON)
			annots = append(annots, p.finishTextAnnot(ast.AnnotIntent, start))
		case TOK_NEAR_MISS:
			p.advance()
			p.expect(TOK_COLON)
			annot := &ast.Annot{Kind: ast.AnnotNearMiss}
			annot.Input = p.parseExpr(0)
			p.expect(TOK_FATARROW)
			annot.Expected = p.parseExpr(0)
			annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
			annots = append(annots, annot)
		case TOK_SATISFIES:
			p.advance()
			nameTok := p.expect(TOK_TYPEIDENT)
			annot := &ast.Annot{Kind: ast.AnnotSatisfies, Name: nameTok.Value}
			annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
			annots = append(annots, annot)
		case TOK_EXPLAIN:
			annots = append(annots, p.parseExplainBlock())
		case TOK_PROOF:
			annots = append(annots, p.parseProofBlock())
		default:
			return annots
		}

		p.skipNewlines()
	}

	return annots
}

func (p *Parser) finishExprAnnot(kind int, start report.Span) *ast.Annot {
	annot := &ast.Annot{Kind: kind, Expr: p.parseExpr(0)}
	annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return annot
}

func (p *Parser) finishTextAnnot(kind int, start report.Span) *ast.Annot {
	annot := &ast.Annot{Kind: kind}
	if p.atAny(TOK_STRINGLIT, TOK_TRIPLESTRINGLIT) {
		annot.Text = p.advance().Value
	} else {
		p.errorOn(p.tok(), "expected string literal")
	}
	annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return annot
}

// parseExplainBlock parses an explain annotation: each row is the remainder
// of a physical line plus any indented continuation lines.  Row text is
// preserved verbatim for the controlled-natural-language pass.
func (p *Parser) parseExplainBlock() *ast.Annot {
	start := p.tok().Span
	p.advance() // explain
	p.skipNewlines()

	annot := &ast.Annot{Kind: ast.AnnotExplain}

	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			annot.Rows = append(annot.Rows, p.parseAnnotRow(""))
		}
		p.accept(TOK_DEDENT)
	} else {
		// Inline single row.
		annot.Rows = append(annot.Rows, p.parseAnnotRow(""))
	}

	annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return annot
}

// parseProofBlock parses a proof annotation (legacy syntax): rows of the
// form `name ':' text`.
func (p *Parser) parseProofBlock() *ast.Annot {
	start := p.tok().Span
	p.advance() // proof
	p.skipNewlines()

	annot := &ast.Annot{Kind: ast.AnnotProof}

	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			nameTok := p.expect(TOK_IDENT)
			p.expect(TOK_COLON)
			annot.Rows = append(annot.Rows, p.parseAnnotRow(nameTok.Value))
		}
		p.accept(TOK_DEDENT)
	} else {
		nameTok := p.expect(TOK_IDENT)
		p.expect(TOK_COLON)
		annot.Rows = append(annot.Rows, p.parseAnnotRow(nameTok.Value))
	}

	annot.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return annot
}

// parseAnnotRow collects token text to the end of the logical line plus any
// indented continuation block, joining values with single spaces.
func (p *Parser) parseAnnotRow(name string) *ast.AnnotRow {
	start := p.tok().Span
	var words []string

	for !p.atAny(TOK_NEWLINE, TOK_DEDENT, TOK_EOF) {
		words = append(words, p.advance().Value)
	}
	p.accept(TOK_NEWLINE)

	// Indented continuation lines belong to this row.
	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			if p.at(TOK_NEWLINE) {
				p.advance()
				continue
			}
			words = append(words, p.advance().Value)
		}
		p.accept(TOK_DEDENT)
	}

	row := &ast.AnnotRow{Name: name, Text: strings.Join(words, " ")}
	row.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return row
}

// -----------------------------------------------------------------------------

// parseTypeDef parses `type Name ['<' params '>'] is body`.
func (p *Parser) parseTypeDef(doc string) *ast.TypeDef {
	start := p.tok().Span
	p.advance() // type

	td := &ast.TypeDef{Doc: doc}

	if p.at(TOK_TYPEIDENT) {
		nameTok := p.advance()
		td.Name = nameTok.Value
		td.NameSpan = nameTok.Span
	} else if p.atAny(TOK_IDENT, TOK_CONSTIDENT) {
		tok := p.advance()
		report.Add(&report.Diagnostic{
			Severity:    report.SevError,
			Code:        "E303",
			Message:     "type names are CamelCase",
			Labels:      []report.Label{{Span: tok.Span}},
			Suggestions: []string{toCamelCase(tok.Value)},
		})
		p.failed = true
		td.Name = tok.Value
		td.NameSpan = tok.Span
	} else {
		p.expect(TOK_TYPEIDENT)
	}

	if p.accept(TOK_LT) {
		for !p.at(TOK_GT) && !p.at(TOK_EOF) {
			if len(td.TypeParams) > 0 {
				p.expect(TOK_COMMA)
			}
			td.TypeParams = append(td.TypeParams, p.expect(TOK_TYPEIDENT).Value)
		}
		p.expect(TOK_GT)
	}

	p.expect(TOK_IS)
	p.skipNewlines()

	td.Body = p.parseTypeBody()
	td.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return td
}

// -----------------------------------------------------------------------------

// parseConstDef parses `CONST_NAME ['as' Type] '=' (expr | comptime block)`.
func (p *Parser) parseConstDef() *ast.ConstDef {
	start := p.tok().Span
	nameTok := p.advance()

	cd := &ast.ConstDef{Name: nameTok.Value, NameSpan: nameTok.Span}

	if p.accept(TOK_AS) {
		cd.Type = p.parseTypeExpr()
	}

	p.expect(TOK_ASSIGN)

	if p.at(TOK_COMPTIME) {
		cd.Value = p.parseComptime()
	} else {
		cd.Value = p.parseExpr(0)
	}

	cd.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return cd
}

// parseComptime parses a `comptime` block.
func (p *Parser) parseComptime() *ast.Comptime {
	start := p.tok().Span
	p.advance() // comptime
	p.skipNewlines()

	ct := &ast.Comptime{}
	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			ct.Body = append(ct.Body, p.parseStmt())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
	} else {
		ct.Body = append(ct.Body, p.parseStmt())
	}

	ct.ExprBase = ast.NewExprBase(p.spanFrom(start))
	return ct
}

// -----------------------------------------------------------------------------

// parseImportDecl parses `with Module use group {',' group}` where a group
// is an optional verb qualifier (or the literal `types`) followed by
// space-separated names.
func (p *Parser) parseImportDecl() *ast.ImportDecl {
	start := p.tok().Span
	p.advance() // with

	moduleTok := p.expect(TOK_TYPEIDENT)
	p.expect(TOK_USE)

	decl := &ast.ImportDecl{ModuleName: moduleTok.Value}

	for {
		decl.Groups = append(decl.Groups, p.parseImportGroup())
		if !p.accept(TOK_COMMA) {
			break
		}
	}

	decl.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return decl
}

func (p *Parser) parseImportGroup() ast.ImportGroup {
	group := ast.ImportGroup{}

	if IsVerb(p.tok().Kind) {
		group.Verb = p.advance().Value
	} else if p.at(TOK_IDENT) && p.tok().Value == "types" {
		group.Verb = "types"
		p.advance()
	}

	if group.Verb == "types" {
		for p.at(TOK_TYPEIDENT) {
			tok := p.advance()
			group.Names = append(group.Names, tok.Value)
			group.Spans = append(group.Spans, tok.Span)
		}
	} else {
		for p.at(TOK_IDENT) {
			tok := p.advance()
			group.Names = append(group.Names, tok.Value)
			group.Spans = append(group.Spans, tok.Span)
		}
	}

	if len(group.Names) == 0 {
		p.errorOn(p.tok(), "expected imported names")
	}

	return group
}

// -----------------------------------------------------------------------------

// parseModuleDecl parses a `module Name` block.  The narrative, temporal
// chain, and nested definitions merge into the enclosing file module.
func (p *Parser) parseModuleDecl(mod *ast.Module) {
	p.advance() // module
	nameTok := p.expect(TOK_TYPEIDENT)
	mod.Name = nameTok.Value
	p.skipNewlines()

	if !p.accept(TOK_INDENT) {
		return
	}

	for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
		p.skipNewlines()
		if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
			break
		}

		switch p.tok().Kind {
		case TOK_NARRATIVE:
			p.advance()
			p.expect(TOK_COLON)
			if p.atAny(TOK_STRINGLIT, TOK_TRIPLESTRINGLIT) {
				mod.Narrative = p.advance().Value
			} else {
				p.errorOn(p.tok(), "expected narrative string")
			}
		case TOK_TEMPORAL:
			p.advance()
			p.expect(TOK_COLON)
			mod.Temporal = append(mod.Temporal, p.expect(TOK_IDENT).Value)
			for p.accept(TOK_ARROW) {
				mod.Temporal = append(mod.Temporal, p.expect(TOK_IDENT).Value)
			}
		case TOK_FOREIGN:
			mod.Defs = append(mod.Defs, p.parseForeignBlock())
		case TOK_WITH:
			mod.Imports = append(mod.Imports, p.parseImportDecl())
		default:
			doc := p.parseDocComments()
			switch {
			case IsVerb(p.tok().Kind):
				mod.Defs = append(mod.Defs, p.parseFuncDef(doc))
			case p.at(TOK_MAIN):
				mod.Defs = append(mod.Defs, p.parseMainDef(doc))
			case p.at(TOK_TYPE):
				mod.Defs = append(mod.Defs, p.parseTypeDef(doc))
			case p.at(TOK_CONSTIDENT):
				mod.Defs = append(mod.Defs, p.parseConstDef())
			case p.at(TOK_INVARIANT_NETWORK):
				mod.Defs = append(mod.Defs, p.parseInvariantNetwork())
			default:
				p.reject()
			}
		}

		p.skipNewlines()
	}

	p.accept(TOK_DEDENT)
}

// -----------------------------------------------------------------------------

// parseForeignBlock parses `foreign "lib"` plus an indented list of C
// function bindings `name(params) [Type]`.
func (p *Parser) parseForeignBlock() *ast.ForeignBlock {
	start := p.tok().Span
	p.advance() // foreign

	fb := &ast.ForeignBlock{}
	if p.at(TOK_STRINGLIT) {
		fb.Library = p.advance().Value
	} else {
		p.errorOn(p.tok(), "expected library name string")
	}
	p.skipNewlines()

	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			fb.Funcs = append(fb.Funcs, p.parseForeignFunc())
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
	}

	fb.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return fb
}

func (p *Parser) parseForeignFunc() *ast.ForeignFunc {
	start := p.tok().Span
	nameTok := p.expect(TOK_IDENT)

	ff := &ast.ForeignFunc{Name: nameTok.Value}
	ff.Params = p.parseParamList()
	if p.at(TOK_TYPEIDENT) {
		ff.Return = p.parseTypeExpr()
	}

	ff.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return ff
}

// -----------------------------------------------------------------------------

// parseInvariantNetwork parses `invariant_network Name` plus an indented
// list of constraint expressions.
func (p *Parser) parseInvariantNetwork() *ast.InvariantNetwork {
	start := p.tok().Span
	p.advance() // invariant_network

	in := &ast.InvariantNetwork{Name: p.expect(TOK_TYPEIDENT).Value}
	p.skipNewlines()

	if p.accept(TOK_INDENT) {
		for !p.at(TOK_DEDENT) && !p.at(TOK_EOF) {
			p.skipNewlines()
			if p.at(TOK_DEDENT) || p.at(TOK_EOF) {
				break
			}
			in.Constraints = append(in.Constraints, p.parseExpr(0))
			p.skipNewlines()
		}
		p.accept(TOK_DEDENT)
	}

	in.NodeBase = ast.NewNodeBaseOn(p.spanFrom(start))
	return in
}
