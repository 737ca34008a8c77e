package walk

import (
	"testing"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/source"
	"github.com/kennedyshead/prove/syntax"
	"github.com/kennedyshead/prove/types"
)

func checkSource(t *testing.T, src string) (*ast.Module, *Walker, bool) {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)

	file := source.NewFile("test.prv", []byte(src))
	tokens, lexOK := syntax.NewLexer(file).Lex()
	mod, parseOK := syntax.NewParser(file, tokens).Parse()
	if !lexOK || !parseOK {
		t.Fatalf("front-end failed: %v", diagMessages())
	}

	res := resolve.NewResolver(mod)
	if !res.Resolve() {
		w := NewWalker(mod, res.Table())
		return mod, w, false
	}

	w := NewWalker(mod, res.Table())
	ok := w.Walk()
	return mod, w, ok
}

func diagMessages() []string {
	var out []string
	for _, d := range report.Diagnostics() {
		out = append(out, d.Code+": "+d.Message)
	}
	return out
}

func hasCode(code string) bool {
	for _, d := range report.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestVerbDispatchByContext(t *testing.T) {
	src := `type Email is String where len(self) > 2

validates email(a String)
from
    true

transforms email(raw String) Email
from
    trim(raw)

main()
from
    ok as Boolean = email("a@b.c")
    name as Email = email("  A@B.C ")
    println(to_string(ok))
    println(name)
`
	mod, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("check failed: %v", diagMessages())
	}

	md := mod.Defs[len(mod.Defs)-1].(*ast.MainDef)

	first := md.Body[0].(*ast.VarDecl).Value.(*ast.Call)
	fn := first.Func.(*ast.Identifier)
	if fn.Sym == nil || fn.Sym.Verb != "validates" {
		t.Errorf("Boolean context resolved to %q, want validates", symVerb(fn))
	}

	second := md.Body[1].(*ast.VarDecl).Value.(*ast.Call)
	fn = second.Func.(*ast.Identifier)
	if fn.Sym == nil || fn.Sym.Verb != "transforms" {
		t.Errorf("Email context resolved to %q, want transforms", symVerb(fn))
	}
}

func symVerb(fn *ast.Identifier) string {
	if fn.Sym == nil {
		return "<unresolved>"
	}
	return fn.Sym.Verb
}

func TestRefinementRejectsKnownValue(t *testing.T) {
	src := `type Port is Integer where 1..65535

main()
from
    port as Port = 70000
    println(to_string(port))
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected refinement violation")
	}
	if !hasCode("E325") {
		t.Errorf("expected E325, got %v", diagMessages())
	}

	// The diagnostic suggests the clamp fix.
	found := false
	for _, d := range report.Diagnostics() {
		if d.Code == "E325" {
			for _, sug := range d.Suggestions {
				if sug == "clamp(70000, 1, 65535)" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected clamp suggestion")
	}
}

func TestRefinementAcceptsBoundaryValues(t *testing.T) {
	src := `type Port is Integer where 1..65535

main()
from
    low as Port = 1
    high as Port = 65535
    println(to_string(low))
    println(to_string(high))
`
	_, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("boundary values must be accepted: %v", diagMessages())
	}
}

func TestRefinementUnknownValueInsertsCheck(t *testing.T) {
	src := `type Port is Integer where 1..65535

transforms pick(x Integer) Integer
from
    x

main()
from
    port as Port = pick(8080)
    println(to_string(port))
`
	mod, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("check failed: %v", diagMessages())
	}

	md := mod.Defs[len(mod.Defs)-1].(*ast.MainDef)
	vd := md.Body[0].(*ast.VarDecl)
	if !vd.NeedsCheck {
		t.Error("expected a runtime check at the assignment site")
	}
}

func TestNarrowerRefinementSubsumes(t *testing.T) {
	src := `type Port is Integer where 1..65535

type WellKnown is Integer where 1..1023

transforms widen(p WellKnown) Port
from
    p
`
	_, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("narrower refinement must subsume: %v", diagMessages())
	}
}

func TestPureVerbCannotCallIO(t *testing.T) {
	src := `transforms shout(s String) String
from
    println(s)
    upper(s)
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected E362")
	}
	if !hasCode("E362") {
		t.Errorf("expected E362, got %v", diagMessages())
	}
}

func TestPureVerbCannotCallInputs(t *testing.T) {
	src := `inputs fetch(path String) String!
from
    read_file(path)!

transforms wrap(path String) String
from
    fetch(path)
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected E363")
	}
	if !hasCode("E363") {
		t.Errorf("expected E363, got %v", diagMessages())
	}
}

func TestFailPropOnlyInIOVerbs(t *testing.T) {
	src := `inputs fetch(path String) String!
from
    read_file(path)!

transforms bad(path String) String
from
    fetch(path)!
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected E361")
	}
	if !hasCode("E361") {
		t.Errorf("expected E361, got %v", diagMessages())
	}
}

func TestExhaustivenessMissingVariant(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    Circle(r) => 3.14 * r * r
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected E371")
	}
	if !hasCode("E371") {
		t.Errorf("expected E371, got %v", diagMessages())
	}

	for _, d := range report.Diagnostics() {
		if d.Code == "E371" {
			if d.Message != "non-exhaustive match: missing Rect" {
				t.Errorf("message: %q", d.Message)
			}
		}
	}
}

func TestExhaustivenessWildcardCloses(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    Circle(r) => 3.14 * r * r
    _ => 0.0
`
	_, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("wildcard must close the match: %v", diagMessages())
	}
}

func TestUnreachableArmAfterWildcard(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    _ => 0.0
    Circle(r) => 3.14 * r * r
`
	checkSource(t, src)
	if !hasCode("W301") {
		t.Errorf("expected W301, got %v", diagMessages())
	}
}

func TestRecursionNeedsTerminates(t *testing.T) {
	src := `transforms count_down(n Integer) Integer
from
    match n
        0 => 0
        _ => count_down(n - 1)
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected E366")
	}
	if !hasCode("E366") {
		t.Errorf("expected E366, got %v", diagMessages())
	}
}

func TestTerminatesDecrementAccepted(t *testing.T) {
	src := `transforms count_down(n Integer) Integer
    terminates: n
    from
        match n
            0 => 0
            _ => count_down(n - 1)
`
	_, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("decrement measure must verify: %v", diagMessages())
	}
}

func TestTerminatesStructuralShrink(t *testing.T) {
	src := `type Nat is Zero | Succ(prev Nat)

matches depth(n Nat) Integer
    terminates: n
    from
        Zero => 0
        Succ(prev) => 1 + depth(prev)
`
	_, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("structural shrink must verify: %v", diagMessages())
	}
}

func TestIfOnlyInComptime(t *testing.T) {
	src := `transforms pick(x Integer) Integer
from
    if x > 0
        1
    else
        2
`
	_, _, ok := checkSource(t, src)
	if ok {
		t.Fatal("expected E367")
	}
	if !hasCode("E367") {
		t.Errorf("expected E367, got %v", diagMessages())
	}
}

func TestIfAllowedInComptime(t *testing.T) {
	src := `LIMIT = comptime
    if 1 > 0
        100
    else
        200
`
	_, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("if inside comptime must pass: %v", diagMessages())
	}
}

func TestTypedExpressionsNeverUnknown(t *testing.T) {
	src := `transforms add(a Integer, b Integer) Integer
    ensures result >= a
    from
        a + b
`
	mod, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("check failed: %v", diagMessages())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	es := fd.Body[0].(*ast.ExprStmt)
	if types.IsUnknown(es.Expr.Type()) {
		t.Error("terminal expression still untyped after a clean check")
	}
}

func TestValidatesImplicitBoolean(t *testing.T) {
	src := `validates positive(x Integer)
from
    x > 0
`
	mod, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("check failed: %v", diagMessages())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	ft := fd.Sym.Type.(*types.FuncType)
	if !types.IsBoolean(ft.Return) {
		t.Errorf("validates return: %s", ft.Return.Repr())
	}
}

func TestMonomorphizationRecorded(t *testing.T) {
	src := `transforms first(xs List<T>) T
from
    xs[0]

main()
from
    n as Integer = first([1, 2, 3])
    println(to_string(n))
`
	_, w, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("check failed: %v", diagMessages())
	}

	insts := w.Mono().Of("transforms_first_List<T>")
	if len(insts) != 1 {
		t.Fatalf("got %d instantiations, want 1", len(insts))
	}
	if !types.Equal(insts[0].Sub["T"], types.IntegerType) {
		t.Errorf("T bound to %v", insts[0].Sub["T"])
	}
}

func TestPipeDesugarsToCall(t *testing.T) {
	src := `transforms double(x Integer) Integer
from
    x * 2

main()
from
    n as Integer = 3 |> double
    println(to_string(n))
`
	mod, _, ok := checkSource(t, src)
	if !ok {
		t.Fatalf("check failed: %v", diagMessages())
	}

	md := mod.Defs[len(mod.Defs)-1].(*ast.MainDef)
	pipe := md.Body[0].(*ast.VarDecl).Value.(*ast.Pipe)
	if pipe.Desugared == nil {
		t.Fatal("pipe not desugared")
	}
	if len(pipe.Desugared.Args) != 1 {
		t.Errorf("desugared args: %d", len(pipe.Desugared.Args))
	}
}
