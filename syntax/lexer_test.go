package syntax

import (
	"testing"

	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/source"
)

func lexSource(t *testing.T, src string) ([]Token, bool) {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)
	file := source.NewFile("test.prv", []byte(src))
	return NewLexer(file).Lex()
}

func kindsOf(tokens []Token) []int {
	kinds := make([]int, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestLexBasicTokens(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []int
	}{
		{
			"verb signature",
			"transforms add(a Integer, b Integer) Integer",
			[]int{TOK_TRANSFORMS, TOK_IDENT, TOK_LPAREN, TOK_IDENT, TOK_TYPEIDENT,
				TOK_COMMA, TOK_IDENT, TOK_TYPEIDENT, TOK_RPAREN, TOK_TYPEIDENT, TOK_EOF},
		},
		{
			"operators",
			"a |> f == b && c",
			[]int{TOK_IDENT, TOK_PIPEARROW, TOK_IDENT, TOK_EQ, TOK_IDENT,
				TOK_LAND, TOK_IDENT, TOK_EOF},
		},
		{
			"range",
			"1..65535",
			[]int{TOK_INTLIT, TOK_RANGE, TOK_INTLIT, TOK_EOF},
		},
		{
			"constant and type idents",
			"MAX_SIZE Port snake_name",
			[]int{TOK_CONSTIDENT, TOK_TYPEIDENT, TOK_IDENT, TOK_EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, ok := lexSource(t, tt.src)
			if !ok {
				t.Fatalf("lex failed: %v", report.Diagnostics())
			}
			kinds := kindsOf(tokens)
			if len(kinds) != len(tt.kinds) {
				t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(tt.kinds), kinds)
			}
			for i := range kinds {
				if kinds[i] != tt.kinds[i] {
					t.Errorf("token %d: got kind %d, want %d", i, kinds[i], tt.kinds[i])
				}
			}
		})
	}
}

func TestLexIndentation(t *testing.T) {
	src := "main()!\nfrom\n    println(\"hi\")\n"
	tokens, ok := lexSource(t, src)
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}

	indents, dedents := 0, 0
	for _, tok := range tokens {
		switch tok.Kind {
		case TOK_INDENT:
			indents++
		case TOK_DEDENT:
			dedents++
		}
	}
	if indents != 1 || dedents != 1 {
		t.Errorf("got %d INDENT / %d DEDENT, want 1/1", indents, dedents)
	}
}

func TestIndentDedentBalance(t *testing.T) {
	srcs := []string{
		"main()!\nfrom\n    a as Integer = 1\n    match a\n        1 => 2\n        _ => 3\n",
		"transforms f(x Integer) Integer\nfrom\n    x\n",
		"type Shape is\n    Circle(r Decimal)\n    Rect(w Decimal, h Decimal)\n",
	}

	for _, src := range srcs {
		tokens, ok := lexSource(t, src)
		if !ok {
			t.Fatalf("lex failed for %q: %v", src, report.Diagnostics())
		}
		depth := 0
		for _, tok := range tokens {
			switch tok.Kind {
			case TOK_INDENT:
				depth++
			case TOK_DEDENT:
				depth--
			}
			if depth < 0 {
				t.Fatalf("DEDENT below zero in %q", src)
			}
		}
		if depth != 0 {
			t.Errorf("unbalanced INDENT/DEDENT (%d) in %q", depth, src)
		}
	}
}

func TestInconsistentIndentation(t *testing.T) {
	_, ok := lexSource(t, "main()!\nfrom\n        a as Integer = 1\n    b as Integer = 2\n      c as Integer = 3\n")
	if ok {
		t.Error("expected a lexical error for inconsistent indentation")
	}
}

func TestNewlineSuppression(t *testing.T) {
	// The newline after `+` continues the logical line: no NEWLINE, no
	// INDENT from the continuation's deeper indentation.
	src := "x as Integer = 1 +\n    2\n"
	tokens, ok := lexSource(t, src)
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	for _, tok := range tokens {
		if tok.Kind == TOK_INDENT {
			t.Error("continuation line must not produce INDENT")
		}
	}
}

func TestSpansContainedInSource(t *testing.T) {
	src := "transforms add(a Integer) Integer\nfrom\n    a + 1\n"
	tokens, ok := lexSource(t, src)
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	for _, tok := range tokens {
		if tok.Span.Start < 0 || tok.Span.End > len(src) || tok.Span.Start > tok.Span.End {
			t.Errorf("token kind %d span [%d,%d) outside source of length %d",
				tok.Kind, tok.Span.Start, tok.Span.End, len(src))
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		src   string
		kind  int
		value string
	}{
		{"1_000_000", TOK_INTLIT, "1000000"},
		{"3.14", TOK_DECIMALLIT, "3.14"},
		{"0xFF", TOK_INTLIT, "0xFF"},
		{"0b1010", TOK_INTLIT, "0b1010"},
		{"0o755", TOK_INTLIT, "0o755"},
	}

	for _, tt := range tests {
		tokens, ok := lexSource(t, tt.src)
		if !ok {
			t.Fatalf("lex failed for %q: %v", tt.src, report.Diagnostics())
		}
		if tokens[0].Kind != tt.kind {
			t.Errorf("%q: got kind %d, want %d", tt.src, tokens[0].Kind, tt.kind)
		}
		if tokens[0].Value != tt.value {
			t.Errorf("%q: got value %q, want %q", tt.src, tokens[0].Value, tt.value)
		}
	}
}

func TestDecimalRequiresTrailingDigit(t *testing.T) {
	tokens, ok := lexSource(t, "1.f()")
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	if tokens[0].Kind != TOK_INTLIT {
		t.Errorf("`1.` must lex as integer + dot, got kind %d", tokens[0].Kind)
	}
	if tokens[1].Kind != TOK_DOT {
		t.Errorf("expected dot after integer, got kind %d", tokens[1].Kind)
	}
}

func TestStringForms(t *testing.T) {
	tokens, ok := lexSource(t, `"plain\n" r"raw\n" """tri"ple"""`)
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	if tokens[0].Kind != TOK_STRINGLIT || tokens[0].Value != "plain\n" {
		t.Errorf("plain string: got %q", tokens[0].Value)
	}
	if tokens[1].Kind != TOK_RAWSTRINGLIT || tokens[1].Value != `raw\n` {
		t.Errorf("raw string: got %q", tokens[1].Value)
	}
	if tokens[2].Kind != TOK_TRIPLESTRINGLIT || tokens[2].Value != `tri"ple` {
		t.Errorf("triple string: got %q", tokens[2].Value)
	}
}

func TestFormatStringSegments(t *testing.T) {
	tokens, ok := lexSource(t, `f"ok={flag} n={n}"`)
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}

	want := []int{
		TOK_STRINGLIT, TOK_INTERP_START, TOK_IDENT, TOK_INTERP_END,
		TOK_STRINGLIT, TOK_INTERP_START, TOK_IDENT, TOK_INTERP_END,
		TOK_EOF,
	}
	kinds := kindsOf(tokens)
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("segment %d: got kind %d, want %d", i, kinds[i], want[i])
		}
	}
}

func TestRegexVersusDivision(t *testing.T) {
	// After `=` a slash begins a regex; after an identifier it is division.
	tokens, ok := lexSource(t, "p as Regex = /a+b/")
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	foundRegex := false
	for _, tok := range tokens {
		if tok.Kind == TOK_REGEXLIT && tok.Value == "a+b" {
			foundRegex = true
		}
	}
	if !foundRegex {
		t.Error("expected a regex literal after `=`")
	}

	tokens, ok = lexSource(t, "a / b")
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	if tokens[1].Kind != TOK_SLASH {
		t.Errorf("expected division, got kind %d", tokens[1].Kind)
	}
}

func TestDocCommentsAttach(t *testing.T) {
	tokens, ok := lexSource(t, "/// Adds two numbers.\ntransforms add(a Integer) Integer\nfrom\n    a\n")
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	if tokens[0].Kind != TOK_DOCCOMMENT || tokens[0].Value != "Adds two numbers." {
		t.Errorf("doc comment: got kind %d value %q", tokens[0].Kind, tokens[0].Value)
	}
}

func TestLineCommentsDiscarded(t *testing.T) {
	tokens, ok := lexSource(t, "a // comment\nb")
	if !ok {
		t.Fatalf("lex failed: %v", report.Diagnostics())
	}
	for _, tok := range tokens {
		if tok.Kind == TOK_DOCCOMMENT {
			t.Error("line comment must be discarded")
		}
	}
}
