package verify

import (
	"testing"

	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/source"
	"github.com/kennedyshead/prove/syntax"
	"github.com/kennedyshead/prove/walk"
)

func verifySource(t *testing.T, src string) (*Verifier, bool) {
	return verifyWithConfig(t, src, nil, nil)
}

func verifyWithConfig(t *testing.T, src string, extraOps, extraConnectors []string) (*Verifier, bool) {
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

	v := NewVerifier(mod, res.Table(), w, res.Networks(), extraOps, extraConnectors)
	ok := v.Verify()
	return v, ok
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

func TestExplainStrictRowCount(t *testing.T) {
	src := `transforms clamp_to(x Integer, lo Integer, hi Integer) Integer
    requires lo <= hi
    ensures result >= lo
    explain
        bound the value from below using lo
        return the result
    from
        a as Integer = max(lo, x)
        b as Integer = min(a, hi)
        b
`
	_, ok := verifySource(t, src)
	if ok {
		t.Fatal("expected E390: 2 explain rows against 3 body statements")
	}
	if !hasCode("E390") {
		t.Errorf("expected E390, got %v", diagMessages())
	}
}

func TestExplainStrictRowCountMatches(t *testing.T) {
	src := `transforms clamp_to(x Integer, lo Integer, hi Integer) Integer
    requires lo <= hi
    ensures result >= lo
    explain
        bound the value from below using lo
        bound the value from above using hi
        return the result b
    from
        a as Integer = max(lo, x)
        b as Integer = min(a, hi)
        b
`
	_, ok := verifySource(t, src)
	if !ok {
		t.Fatalf("expected clean verify, got %v", diagMessages())
	}
}

func TestExplainDuplicateRows(t *testing.T) {
	src := `transforms ident(x Integer) Integer
    requires x >= 0
    ensures result >= x
    explain
        return the result
        return the result
    from
        a as Integer = x
        a
`
	verifySource(t, src)
	if !hasCode("E391") {
		t.Errorf("expected E391, got %v", diagMessages())
	}
}

func TestExplainUnknownOperation(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    requires x >= 0
    ensures result >= x
    explain
        zorble the x
    from
        x
`
	verifySource(t, src)
	if !hasCode("E394") {
		t.Errorf("expected E394, got %v", diagMessages())
	}
}

func TestExplainConfigExtendsOperations(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    requires x >= 0
    ensures result >= x
    explain
        zorble the x
    from
        x
`
	_, ok := verifyWithConfig(t, src, []string{"zorble"}, nil)
	if !ok {
		t.Fatalf("[explain].operations must extend the verb set, got %v", diagMessages())
	}
}

func TestExplainUnknownReference(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    requires x >= 0
    ensures result >= x
    explain
        compute the result from missing_name
    from
        x
`
	verifySource(t, src)
	if !hasCode("E392") {
		t.Errorf("expected E392, got %v", diagMessages())
	}
}

func TestExplainLooseModeFreeCount(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    explain
        compute the result
    from
        a as Integer = x + 1
        a
`
	_, ok := verifySource(t, src)
	if !ok {
		t.Fatalf("loose mode must not count rows, got %v", diagMessages())
	}
}

func TestProofObligations(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
    requires x >= 0
    ensures result >= x
    proof
        growth: result is twice x
        growth: result is twice x again
    from
        x * 2
`
	verifySource(t, src)
	if !hasCode("E391") {
		t.Errorf("expected E391 duplicate obligation, got %v", diagMessages())
	}
}

func TestProofCoverage(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
    requires x >= 0
    ensures result >= x
    ensures result >= 0
    proof
        growth: result is twice x
    from
        x * 2
`
	verifySource(t, src)
	if !hasCode("E392") {
		t.Errorf("expected E392 obligation shortfall, got %v", diagMessages())
	}
}

func TestProofConceptReference(t *testing.T) {
	src := `transforms double_it(x Integer) Integer
    requires x >= 0
    ensures result >= x
    proof
        growth: doubling never shrinks anything
    from
        x * 2
`
	verifySource(t, src)
	if !hasCode("W321") {
		t.Errorf("expected W321 for a conceptless obligation, got %v", diagMessages())
	}
}

func TestBelieveNeedsEnsures(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    believe: result >= x
    from
        x
`
	_, ok := verifySource(t, src)
	if ok {
		t.Fatal("expected E393")
	}
	if !hasCode("E393") {
		t.Errorf("expected E393, got %v", diagMessages())
	}
}

func TestDuplicateNearMiss(t *testing.T) {
	src := `validates small(x Integer)
    near_miss: 11 => false
    near_miss: 11 => false
    from
        x < 10
`
	verifySource(t, src)
	if !hasCode("W322") {
		t.Errorf("expected W322, got %v", diagMessages())
	}
}

func TestSatisfiesUnknownNetwork(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    satisfies Conservation
    from
        x
`
	_, ok := verifySource(t, src)
	if ok {
		t.Fatal("expected E382")
	}
	if !hasCode("E382") {
		t.Errorf("expected E382, got %v", diagMessages())
	}
}

func TestSatisfiesKnownNetwork(t *testing.T) {
	src := `invariant_network Conservation
    total_in(ledger) == total_out(ledger)

validates total_in(ledger Integer)
from
    ledger > 0

validates total_out(ledger Integer)
from
    ledger > 0

transforms frob(x Integer) Integer
    satisfies Conservation
    from
        x
`
	_, ok := verifySource(t, src)
	if !ok {
		t.Fatalf("expected clean verify, got %v", diagMessages())
	}
}

func TestVerificationChainGap(t *testing.T) {
	src := `transforms helper(x Integer) Integer
from
    x + 1

transforms outer(x Integer) Integer
    requires x >= 0
    ensures result >= x
    trusted "covered by downstream property tests"
    from
        helper(x)
`
	v, ok := verifySource(t, src)
	if !ok {
		t.Fatalf("verify failed: %v", diagMessages())
	}

	if len(v.Gaps) != 1 {
		t.Fatalf("got %d chain gaps, want 1", len(v.Gaps))
	}
	if v.Gaps[0].Callee.Name != "helper" {
		t.Errorf("gap callee: %q", v.Gaps[0].Callee.Name)
	}
}

func TestTrustedSuppressesExplainWarnings(t *testing.T) {
	src := `transforms frob(x Integer) Integer
    requires x >= 0
    ensures result >= x
    trusted "verified by inspection"
    from
        x
`
	_, ok := verifySource(t, src)
	if !ok {
		t.Fatalf("verify failed: %v", diagMessages())
	}
	if hasCode("W323") {
		t.Error("trusted must suppress the missing-explain warning")
	}
}
