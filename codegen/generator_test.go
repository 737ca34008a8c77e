package codegen

import (
	"strings"
	"testing"

	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/source"
	"github.com/kennedyshead/prove/syntax"
	"github.com/kennedyshead/prove/walk"
)

func emitSource(t *testing.T, src string) string {
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
		t.Fatalf("resolve failed: %v", diagMessages())
	}

	w := walk.NewWalker(mod, res.Table())
	if !w.Walk() {
		t.Fatalf("check failed: %v", diagMessages())
	}

	gen := NewGenerator(mod, res.Table(), w.Mono())
	return gen.Generate("test.c").Source
}

func diagMessages() []string {
	var out []string
	for _, d := range report.Diagnostics() {
		out = append(out, d.Code+": "+d.Message)
	}
	return out
}

const helloSource = `main()!
from
    println("Hello from Prove!")
`

func TestEmitHelloWorld(t *testing.T) {
	c := emitSource(t, helloSource)

	for _, want := range []string{
		"int main(int argc, char **argv)",
		"prove_runtime_init();",
		"prove_io_init_args(argc, argv);",
		`prove_println(prove_string_from_cstr("Hello from Prove!"))`,
		"prove_runtime_cleanup();",
		"return 0;",
		`#include "prove_runtime.h"`,
		`#include "prove_input_output.h"`,
	} {
		if !strings.Contains(c, want) {
			t.Errorf("missing %q in:\n%s", want, c)
		}
	}
}

func TestEmitDeterministic(t *testing.T) {
	first := emitSource(t, helloSource)
	second := emitSource(t, helloSource)
	if first != second {
		t.Error("emitting the same typed AST twice must produce byte-identical C")
	}
}

func TestVerbDispatchMangling(t *testing.T) {
	src := `validates email(a String)
from
    true

transforms email(raw String) String
from
    trim(raw)

main()
from
    ok as Boolean = email("a@b.c")
    name as String = email("  A@B.C ")
    println(to_string(ok))
    println(name)
`
	c := emitSource(t, src)

	if !strings.Contains(c, "prove_validates_email_String") {
		t.Error("validates variant not mangled distinctly")
	}
	if !strings.Contains(c, "prove_transforms_email_String") {
		t.Error("transforms variant not mangled distinctly")
	}
}

func TestEmitAlgebraicType(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches area(s Shape) Decimal
from
    Circle(r) => 3.14 * r * r
    Rect(w, h) => w * h
`
	c := emitSource(t, src)

	for _, want := range []string{
		"typedef struct Type_Shape Type_Shape;",
		"uint8_t tag;",
		"Type_Shape_TAG_CIRCLE",
		"Type_Shape_TAG_RECT",
		"static inline Type_Shape Type_Shape_Circle(double r)",
		"switch (",
		"case Type_Shape_TAG_CIRCLE: {",
	} {
		if !strings.Contains(c, want) {
			t.Errorf("missing %q in:\n%s", want, c)
		}
	}
}

func TestWildcardBecomesDefault(t *testing.T) {
	src := `type Shape is Circle(r Decimal) | Rect(w Decimal, h Decimal)

matches flat(s Shape) Boolean
from
    Rect(w, h) => true
    _ => false
`
	c := emitSource(t, src)
	if !strings.Contains(c, "default: {") {
		t.Error("wildcard arm must lower to default:")
	}
}

func TestFailPropagationLowering(t *testing.T) {
	src := `inputs load(path String) String!
from
    raw as String = read_file(path)!
    decode(raw)!
`
	c := emitSource(t, src)

	for _, want := range []string{
		"Prove_Result prove_inputs_load_String(Prove_String* path)",
		"prove_io_read_file(path)",
		"if (prove_result_is_err(",
		"return prove_result_err(",
	} {
		if !strings.Contains(c, want) {
			t.Errorf("missing %q in:\n%s", want, c)
		}
	}

	// The error arm returns before decode runs.
	errCheck := strings.Index(c, "if (prove_result_is_err(")
	decodeCall := strings.Index(c, "prove_parse_decode(")
	if errCheck == -1 || decodeCall == -1 || errCheck > decodeCall {
		t.Error("error propagation must precede the decode call")
	}
}

func TestRefinementRuntimeCheck(t *testing.T) {
	src := `type Port is Integer where 1..65535

transforms pick(x Integer) Integer
from
    x

main()
from
    port as Port = pick(8080)
    println(to_string(port))
`
	c := emitSource(t, src)
	if !strings.Contains(c, "port >= 1L && port <= 65535L") {
		t.Errorf("missing runtime range check in:\n%s", c)
	}
	if !strings.Contains(c, "prove_panic") {
		t.Error("refinement check must panic on violation")
	}
}

func TestRefinementErasesToBase(t *testing.T) {
	src := `type Port is Integer where 1..65535

transforms double_port(p Port) Integer
from
    p + p
`
	c := emitSource(t, src)
	if !strings.Contains(c, "int64_t prove_transforms_double_port_Port(int64_t p)") {
		t.Errorf("refinement must erase to int64_t in:\n%s", c)
	}
}

func TestLambdaHoisting(t *testing.T) {
	src := `transforms doubled(xs List<Integer>) List<Integer>
from
    map(xs, |x| x * 2)
`
	c := emitSource(t, src)

	if !strings.Contains(c, "static void *_lambda_") {
		t.Errorf("lambda not hoisted to file scope in:\n%s", c)
	}
	if !strings.Contains(c, "prove_list_map(") {
		t.Error("map must call the runtime HOF entry point")
	}

	// The hoisted lambda appears before the function that uses it.
	lambdaPos := strings.Index(c, "static void *_lambda_")
	funcPos := strings.Index(c, "Prove_List* prove_transforms_doubled_List_Integer(Prove_List* xs) {")
	if funcPos == -1 {
		t.Fatalf("mangled function missing in:\n%s", c)
	}
	if lambdaPos > funcPos {
		t.Error("hoisted lambda must precede its user")
	}
}

func TestRetainReleasePairs(t *testing.T) {
	src := `transforms shouted(s String) String
from
    a as String = upper(s)
    copy as String = a
    b as String = a + "!"
    println_count as Integer = len(copy)
    b
`
	c := emitSource(t, src)

	if strings.Contains(c, "prove_retain(a);") {
		t.Error("a fresh value already hands over its reference")
	}
	if !strings.Contains(c, "prove_retain(copy);") {
		t.Error("storing an existing value must retain")
	}
	if !strings.Contains(c, "prove_release(a);") {
		t.Error("owned local must be released at scope exit")
	}
	if strings.Contains(c, "prove_release(b);") {
		t.Error("the returned value must not be released")
	}
}

func TestForeignBlockEmission(t *testing.T) {
	src := `foreign "libm"
    sqrt(x Decimal) Decimal

transforms hypot_of(a Decimal, b Decimal) Decimal
from
    sqrt(a * a + b * b)
`
	report.InitReporter(report.LogLevelSilent)
	file := source.NewFile("test.prv", []byte(src))
	tokens, _ := syntax.NewLexer(file).Lex()
	mod, _ := syntax.NewParser(file, tokens).Parse()
	res := resolve.NewResolver(mod)
	if !res.Resolve() {
		t.Fatalf("resolve failed: %v", diagMessages())
	}
	w := walk.NewWalker(mod, res.Table())
	if !w.Walk() {
		t.Fatalf("check failed: %v", diagMessages())
	}

	unit := NewGenerator(mod, res.Table(), w.Mono()).Generate("test.c")

	if !strings.Contains(unit.Source, "extern double sqrt(double);") {
		t.Errorf("missing extern declaration in:\n%s", unit.Source)
	}
	if !strings.Contains(unit.Source, "#include <math.h>") {
		t.Error("libm must pull in math.h")
	}
	if len(unit.Libraries) != 1 || unit.Libraries[0] != "libm" {
		t.Errorf("libraries: %v", unit.Libraries)
	}
	// Foreign calls stay unmangled.
	if !strings.Contains(unit.Source, "sqrt((") {
		t.Errorf("foreign call must not be mangled in:\n%s", unit.Source)
	}
}

func TestMainResultErrorArm(t *testing.T) {
	src := `inputs load(path String) String!
from
    read_file(path)!

main()!
from
    raw as String = load("config.yaml")!
    println(raw)
`
	c := emitSource(t, src)

	for _, want := range []string{
		`fprintf(stderr, "error: %.*s\n"`,
		"return 1;",
	} {
		if !strings.Contains(c, want) {
			t.Errorf("missing %q in:\n%s", want, c)
		}
	}
}

func TestStringInterpolationEmission(t *testing.T) {
	src := `transforms greeting(name String) String
from
    f"Hello {name}rest"
`
	c := emitSource(t, src)
	if !strings.Contains(c, "prove_string_concat(") {
		t.Errorf("interpolation must concatenate segments in:\n%s", c)
	}
}

func TestManglingUsesTypeKeys(t *testing.T) {
	src := `transforms pair_sum(a Integer, b Integer) Integer
from
    a + b
`
	c := emitSource(t, src)
	if !strings.Contains(c, "prove_transforms_pair_sum_Integer_Integer(") {
		t.Errorf("mangled name must carry the parameter type key in:\n%s", c)
	}
}
