package resolve

import (
	"testing"

	"github.com/kennedyshead/prove/ast"
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/source"
	"github.com/kennedyshead/prove/symbols"
	"github.com/kennedyshead/prove/syntax"
	"github.com/kennedyshead/prove/types"
)

func resolveSource(t *testing.T, src string) (*ast.Module, *Resolver, bool) {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)

	file := source.NewFile("test.prv", []byte(src))
	tokens, lexOK := syntax.NewLexer(file).Lex()
	mod, parseOK := syntax.NewParser(file, tokens).Parse()
	if !lexOK || !parseOK {
		t.Fatalf("front-end failed: %v", report.Diagnostics())
	}

	res := NewResolver(mod)
	ok := res.Resolve()
	return mod, res, ok
}

func hasCode(code string) bool {
	for _, d := range report.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestFunctionIdentityUnique(t *testing.T) {
	src := `validates email(a String)
from
    true

transforms email(raw String) String
from
    raw
`
	_, res, ok := resolveSource(t, src)
	if !ok {
		t.Fatalf("resolve failed: %v", report.Diagnostics())
	}

	table := res.Table()
	if table.LookupFunc(symbols.FuncKey{Verb: "validates", Name: "email", ParamKey: "String"}) == nil {
		t.Error("validates variant not registered")
	}
	if table.LookupFunc(symbols.FuncKey{Verb: "transforms", Name: "email", ParamKey: "String"}) == nil {
		t.Error("transforms variant not registered")
	}
	if len(table.Candidates("email")) != 2 {
		t.Errorf("got %d candidates, want 2", len(table.Candidates("email")))
	}
}

func TestDuplicateIdentityRejected(t *testing.T) {
	src := `transforms email(raw String) String
from
    raw

transforms email(raw String) String
from
    raw
`
	_, _, ok := resolveSource(t, src)
	if ok {
		t.Fatal("expected duplicate identity to fail")
	}
	if !hasCode("E301") {
		t.Error("expected E301 for duplicate function identity")
	}
}

func TestIOPairCollisionIsE365(t *testing.T) {
	src := `inputs fetch(path String) String!
from
    read_file(path)!

inputs fetch(path String) String!
from
    read_file(path)!
`
	_, _, ok := resolveSource(t, src)
	if ok {
		t.Fatal("expected IO-pair collision to fail")
	}
	if !hasCode("E365") {
		t.Error("expected E365 for IO-pair identity collision")
	}
}

func TestUndefinedNameReported(t *testing.T) {
	src := `transforms f(x Integer) Integer
from
    x + missing
`
	_, _, ok := resolveSource(t, src)
	if ok {
		t.Fatal("expected undefined name to fail")
	}
	if !hasCode("E310") {
		t.Error("expected E310")
	}
}

func TestLambdaCaptureRejected(t *testing.T) {
	src := `transforms scale(xs List<Integer>, factor Integer) List<Integer>
from
    map(xs, |x| x * factor)
`
	_, _, ok := resolveSource(t, src)
	if ok {
		t.Fatal("expected lambda capture to fail")
	}
	if !hasCode("E364") {
		t.Error("expected E364 for captured `factor`")
	}
}

func TestLambdaParamsAllowed(t *testing.T) {
	src := `transforms doubled(xs List<Integer>) List<Integer>
from
    map(xs, |x| x * 2)
`
	_, _, ok := resolveSource(t, src)
	if !ok {
		t.Fatalf("resolve failed: %v", report.Diagnostics())
	}
}

func TestVariantConstructorsRegistered(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)
`
	_, res, ok := resolveSource(t, src)
	if !ok {
		t.Fatalf("resolve failed: %v", report.Diagnostics())
	}

	table := res.Table()
	circle := table.LookupType("Circle")
	if circle == nil || circle.Kind != symbols.KindVariantConstructor {
		t.Fatal("Circle constructor not registered in the type namespace")
	}

	ft, isFunc := circle.Type.(*types.FuncType)
	if !isFunc || len(ft.Params) != 1 {
		t.Fatalf("Circle constructor type: %v", circle.Type)
	}
	if _, isAlg := ft.Return.(*types.AlgebraicType); !isAlg {
		t.Error("constructor must return the algebraic type")
	}
}

func TestDuplicateVariantRejected(t *testing.T) {
	src := `type A is Dup(x Integer)

type B is Dup(y Integer)
`
	_, _, ok := resolveSource(t, src)
	if ok {
		t.Fatal("expected duplicate variant constructor to fail")
	}
	if !hasCode("E301") {
		t.Error("expected E301 for duplicate constructor")
	}
}

func TestRefinementTypeResolved(t *testing.T) {
	src := `type Port is Integer where 1..65535
`
	_, res, ok := resolveSource(t, src)
	if !ok {
		t.Fatalf("resolve failed: %v", report.Diagnostics())
	}

	sym := res.Table().LookupType("Port")
	if sym == nil {
		t.Fatal("Port not registered")
	}
	refined, isRef := sym.Type.(types.RefinedType)
	if !isRef {
		t.Fatalf("Port: got %T, want RefinedType", sym.Type)
	}
	rc, isRange := refined.Constraint.(types.RangeConstraint)
	if !isRange || rc.Lo != 1 || rc.Hi != 65535 {
		t.Errorf("constraint: %+v", refined.Constraint)
	}
}

func TestAssignmentNeedsMutable(t *testing.T) {
	src := `main()
from
    x as Integer = 1
    x = 2
`
	_, _, ok := resolveSource(t, src)
	if ok {
		t.Fatal("expected assignment to immutable binding to fail")
	}
	if !hasCode("E312") {
		t.Error("expected E312")
	}
}

func TestResolverIdempotent(t *testing.T) {
	src := `transforms add_one(x Integer) Integer
from
    x + 1
`
	mod, _, ok := resolveSource(t, src)
	if !ok {
		t.Fatalf("resolve failed: %v", report.Diagnostics())
	}

	// A second pass over the same AST re-binds the same structure without
	// reporting anything new.
	if !NewResolver(mod).Resolve() {
		t.Fatalf("second resolution pass reported errors: %v", report.Diagnostics())
	}

	fd := mod.Defs[0].(*ast.FuncDef)
	if fd.Sym == nil || fd.Sym.Verb != "transforms" {
		t.Error("function symbol missing after re-resolution")
	}
	if fd.Params[0].Sym == nil {
		t.Error("parameter symbol missing")
	}
}

func TestOverloadPicking(t *testing.T) {
	table := symbols.NewTable()

	vs := table.New(symbols.KindFunction, "email", report.BuiltinSpan,
		&types.FuncType{Verb: "validates", Params: []types.Type{types.StringType}, Return: types.BooleanType})
	vs.Verb = "validates"
	table.DefineFunc(symbols.FuncKey{Verb: "validates", Name: "email", ParamKey: "String"}, vs)

	emailType := types.RefinedType{Name: "Email", Base: types.StringType,
		Constraint: types.OpaqueConstraint{Text: "matches(self)"}}
	tf := table.New(symbols.KindFunction, "email", report.BuiltinSpan,
		&types.FuncType{Verb: "transforms", Params: []types.Type{types.StringType}, Return: emailType})
	tf.Verb = "transforms"
	table.DefineFunc(symbols.FuncKey{Verb: "transforms", Name: "email", ParamKey: "String"}, tf)

	args := []types.Type{types.StringType}

	picked, _ := PickOverload(table.Candidates("email"), args, types.BooleanType, true)
	if picked != vs {
		t.Error("Boolean context must pick the validates variant")
	}

	picked, _ = PickOverload(table.Candidates("email"), args, emailType, false)
	if picked != tf {
		t.Error("expected-type context must pick the transforms variant")
	}

	picked, remaining := PickOverload(table.Candidates("email"), args, nil, false)
	if picked != tf {
		t.Errorf("verb preference must pick transforms, got %v (remaining %v)", picked, remaining)
	}
}
