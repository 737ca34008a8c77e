package syntax

import (
	"testing"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/source"
)

func parseSource(t *testing.T, src string) (*ast.Module, bool) {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)
	file := source.NewFile("test.prv", []byte(src))
	tokens, lexOK := NewLexer(file).Lex()
	mod, parseOK := NewParser(file, tokens).Parse()
	return mod, lexOK && parseOK
}

func hasCode(code string) bool {
	for _, d := range report.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestParseFunctionDef(t *testing.T) {
	src := `transforms add(a Integer, b Integer) Integer
from
    a + b
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}
	if len(mod.Defs) != 1 {
		t.Fatalf("got %d defs, want 1", len(mod.Defs))
	}

	fd, isFunc := mod.Defs[0].(*ast.FuncDef)
	if !isFunc {
		t.Fatalf("got %T, want *ast.FuncDef", mod.Defs[0])
	}
	if fd.Verb != "transforms" || fd.Name != "add" {
		t.Errorf("got %s %s", fd.Verb, fd.Name)
	}
	if len(fd.Params) != 2 {
		t.Errorf("got %d params, want 2", len(fd.Params))
	}
	if fd.ReturnType == nil {
		t.Error("missing return type")
	}
	if len(fd.Body) != 1 {
		t.Errorf("got %d body statements, want 1", len(fd.Body))
	}
}

func TestValidatesRejectsReturnType(t *testing.T) {
	src := `validates email(a String) Boolean
from
    true
`
	parseSource(t, src)
	if !hasCode("E360") {
		t.Error("expected E360 for explicit return type on validates")
	}
}

func TestPureVerbRejectsFailMarker(t *testing.T) {
	src := `transforms parse_port(raw String) Integer!
from
    1
`
	parseSource(t, src)
	if !hasCode("E361") {
		t.Error("expected E361 for fail marker on transforms")
	}
}

func TestInputsAcceptsFailMarker(t *testing.T) {
	src := `inputs load(path String) Config!
from
    read_file(path)!
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}
	fd := mod.Defs[0].(*ast.FuncDef)
	if !fd.CanFail {
		t.Error("fail marker not recorded")
	}
}

func TestParseAnnotationsInOrder(t *testing.T) {
	src := `transforms clamp_it(x Integer, lo Integer, hi Integer) Integer
    requires lo <= hi
    ensures result >= lo
    ensures result <= hi
    intent: "keep x inside the window"
    from
        x
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	kinds := make([]int, len(fd.Annots))
	for i, annot := range fd.Annots {
		kinds[i] = annot.Kind
	}
	want := []int{ast.AnnotRequires, ast.AnnotEnsures, ast.AnnotEnsures, ast.AnnotIntent}
	if len(kinds) != len(want) {
		t.Fatalf("got %d annotations %v, want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("annotation %d: got kind %d, want %d", i, kinds[i], want[i])
		}
	}
}

func TestParseExplainRows(t *testing.T) {
	src := `transforms normalize(raw String) String
    ensures len(result) <= len(raw)
    explain
        trim whitespace from raw
        lower the result
    from
        a as String = trim(raw)
        lower(a)
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	var explain *ast.Annot
	for _, annot := range fd.Annots {
		if annot.Kind == ast.AnnotExplain {
			explain = annot
		}
	}
	if explain == nil {
		t.Fatal("explain annotation missing")
	}
	if len(explain.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(explain.Rows))
	}
	if explain.Rows[0].Text != "trim whitespace from raw" {
		t.Errorf("row 0 text: %q", explain.Rows[0].Text)
	}
}

func TestParseProofBlock(t *testing.T) {
	src := `transforms double(x Integer) Integer
    ensures result >= x
    proof
        growth: result is twice x so it is never below x
    from
        x * 2
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	var proof *ast.Annot
	for _, annot := range fd.Annots {
		if annot.Kind == ast.AnnotProof {
			proof = annot
		}
	}
	if proof == nil {
		t.Fatal("proof annotation missing")
	}
	if len(proof.Rows) != 1 || proof.Rows[0].Name != "growth" {
		t.Fatalf("proof rows: %+v", proof.Rows)
	}
}

func TestParseMatchesImplicitBody(t *testing.T) {
	src := `matches area(s Shape) Decimal
from
    Circle(r) => 3.14 * r * r
    Rect(w, h) => w * h
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	if len(fd.Body) != 1 {
		t.Fatalf("got %d body statements, want 1 implicit match", len(fd.Body))
	}
	es, isExpr := fd.Body[0].(*ast.ExprStmt)
	if !isExpr {
		t.Fatalf("got %T", fd.Body[0])
	}
	m, isMatch := es.Expr.(*ast.Match)
	if !isMatch {
		t.Fatalf("got %T, want *ast.Match", es.Expr)
	}
	if m.Subject != nil {
		t.Error("implicit match must have nil subject")
	}
	if len(m.Arms) != 2 {
		t.Errorf("got %d arms, want 2", len(m.Arms))
	}
}

func TestParseTypeDefs(t *testing.T) {
	src := `type Port is Integer where 1..65535

type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

type Point is
    x Decimal
    y Decimal
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}
	if len(mod.Defs) != 3 {
		t.Fatalf("got %d defs, want 3", len(mod.Defs))
	}

	port := mod.Defs[0].(*ast.TypeDef)
	if _, isRef := port.Body.(*ast.RefinementBody); !isRef {
		t.Errorf("Port: got %T, want refinement", port.Body)
	}

	shape := mod.Defs[1].(*ast.TypeDef)
	alg, isAlg := shape.Body.(*ast.AlgebraicBody)
	if !isAlg {
		t.Fatalf("Shape: got %T, want algebraic", shape.Body)
	}
	if len(alg.Variants) != 2 {
		t.Errorf("Shape: got %d variants, want 2", len(alg.Variants))
	}

	point := mod.Defs[2].(*ast.TypeDef)
	rec, isRec := point.Body.(*ast.RecordBody)
	if !isRec {
		t.Fatalf("Point: got %T, want record", point.Body)
	}
	if len(rec.Fields) != 2 {
		t.Errorf("Point: got %d fields, want 2", len(rec.Fields))
	}
}

func TestParseImports(t *testing.T) {
	src := "with Text use transforms trim lower, types Builder\n"
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}
	if len(mod.Imports) != 1 {
		t.Fatalf("got %d imports, want 1", len(mod.Imports))
	}

	imp := mod.Imports[0]
	if imp.ModuleName != "Text" {
		t.Errorf("module name: %q", imp.ModuleName)
	}
	if len(imp.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(imp.Groups))
	}
	if imp.Groups[0].Verb != "transforms" || len(imp.Groups[0].Names) != 2 {
		t.Errorf("group 0: %+v", imp.Groups[0])
	}
	if imp.Groups[1].Verb != "types" || imp.Groups[1].Names[0] != "Builder" {
		t.Errorf("group 1: %+v", imp.Groups[1])
	}
}

func TestPipePrecedenceLowest(t *testing.T) {
	src := `transforms f(a Integer) Integer
from
    a + 1 |> double
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	es := fd.Body[0].(*ast.ExprStmt)
	pipe, isPipe := es.Expr.(*ast.Pipe)
	if !isPipe {
		t.Fatalf("got %T, want *ast.Pipe at the top", es.Expr)
	}
	if _, isBinary := pipe.Lhs.(*ast.Binary); !isBinary {
		t.Errorf("pipe lhs: got %T, want the whole sum", pipe.Lhs)
	}
}

func TestPostfixBangNeedsAdjacency(t *testing.T) {
	src := `inputs g(path String) String!
from
    read_file(path)!
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	es := fd.Body[0].(*ast.ExprStmt)
	if _, isFail := es.Expr.(*ast.FailProp); !isFail {
		t.Errorf("got %T, want *ast.FailProp", es.Expr)
	}
}

func TestParseVarDeclAndAssignment(t *testing.T) {
	src := `main()
from
    count as Integer:[Mutable] = 0
    count = 1
    name as = "prove"
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	md := mod.Defs[0].(*ast.MainDef)
	if len(md.Body) != 3 {
		t.Fatalf("got %d statements, want 3", len(md.Body))
	}
	if _, isDecl := md.Body[0].(*ast.VarDecl); !isDecl {
		t.Errorf("stmt 0: got %T", md.Body[0])
	}
	if _, isAssign := md.Body[1].(*ast.Assign); !isAssign {
		t.Errorf("stmt 1: got %T", md.Body[1])
	}
	inferred, isDecl := md.Body[2].(*ast.VarDecl)
	if !isDecl {
		t.Fatalf("stmt 2: got %T", md.Body[2])
	}
	if inferred.Type != nil {
		t.Error("stmt 2: type should be omitted")
	}
}

func TestParseLambdaAndValid(t *testing.T) {
	src := `transforms keep_small(xs List<Integer>) List<Integer>
from
    filter(xs, |x| x < 10)

validates tiny(x Integer)
from
    x < 3

transforms g(xs List<Integer>) List<Integer>
from
    filter(xs, valid tiny)
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}
	if len(mod.Defs) != 3 {
		t.Fatalf("got %d defs, want 3", len(mod.Defs))
	}

	first := mod.Defs[0].(*ast.FuncDef)
	call := first.Body[0].(*ast.ExprStmt).Expr.(*ast.Call)
	if _, isLambda := call.Args[1].(*ast.Lambda); !isLambda {
		t.Errorf("arg 1: got %T, want *ast.Lambda", call.Args[1])
	}

	third := mod.Defs[2].(*ast.FuncDef)
	call = third.Body[0].(*ast.ExprStmt).Expr.(*ast.Call)
	v, isValid := call.Args[1].(*ast.Valid)
	if !isValid {
		t.Fatalf("arg 1: got %T, want *ast.Valid", call.Args[1])
	}
	if v.Args != nil {
		t.Error("`valid tiny` must be the reference form")
	}
}

func TestParseForeignBlock(t *testing.T) {
	src := `foreign "libm"
    sqrt(x Decimal) Decimal
    pow(base Decimal, exp Decimal) Decimal
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}

	fb := mod.Defs[0].(*ast.ForeignBlock)
	if fb.Library != "libm" {
		t.Errorf("library: %q", fb.Library)
	}
	if len(fb.Funcs) != 2 || fb.Funcs[0].Name != "sqrt" {
		t.Fatalf("funcs: %+v", fb.Funcs)
	}
}

func TestParseModuleDecl(t *testing.T) {
	src := `module Geometry
    narrative: "shapes and their measures"
    temporal: parse -> check -> emit

    transforms double(x Integer) Integer
    from
        x * 2
`
	mod, ok := parseSource(t, src)
	if !ok {
		t.Fatalf("parse failed: %v", report.Diagnostics())
	}
	if mod.Name != "Geometry" {
		t.Errorf("module name: %q", mod.Name)
	}
	if mod.Narrative == "" {
		t.Error("narrative missing")
	}
	if len(mod.Temporal) != 3 {
		t.Errorf("temporal: %v", mod.Temporal)
	}
	if len(mod.Defs) != 1 {
		t.Errorf("got %d nested defs, want 1", len(mod.Defs))
	}
}

func TestCasingHintOnFunctionName(t *testing.T) {
	src := `transforms DoThing(a Integer) Integer
from
    a
`
	parseSource(t, src)
	if !hasCode("E303") {
		t.Error("expected E303 casing error")
	}

	found := false
	for _, d := range report.Diagnostics() {
		if d.Code == "E303" {
			for _, sug := range d.Suggestions {
				if sug == "do_thing" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected rewritten-name hint `do_thing`")
	}
}
