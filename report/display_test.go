package report

import (
	"strings"
	"testing"

	"github.com/kennedyshead/prove/source"
)

func TestRenderRustStyle(t *testing.T) {
	InitReporter(LogLevelVerbose)

	srcs := source.NewMap()
	srcs.Add(source.NewFile("demo.prv", []byte("port as Port = 70000\n")))

	d := &Diagnostic{
		Severity:    SevError,
		Code:        "E325",
		Message:     "value 70000 violates the refinement of `Port`",
		Labels:      []Label{{Span: Span{File: "demo.prv", Start: 15, End: 20}, Message: "constraint: 1..65535"}},
		Notes:       []string{"Port is Integer where 1..65535"},
		Suggestions: []string{"clamp(70000, 1, 65535)"},
	}

	out := NewRenderer(srcs, false).Render(d)

	for _, want := range []string{
		"error[E325]: value 70000 violates the refinement of `Port`",
		"--> demo.prv:1:16",
		"port as Port = 70000",
		"^^^^^",
		"= note: Port is Integer where 1..65535",
		"try: clamp(70000, 1, 65535)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestReporterCountsErrors(t *testing.T) {
	InitReporter(LogLevelVerbose)

	Warn(Span{File: "x.prv"}, "W300", "unused variable")
	if AnyErrors() {
		t.Error("warnings are not errors")
	}
	if !ShouldProceed() {
		t.Error("warnings never suppress subsequent stages")
	}

	Error(Span{File: "x.prv"}, "E310", "undefined name")
	if !AnyErrors() || ErrorCount() != 1 {
		t.Error("error not counted")
	}
	if ShouldProceed() {
		t.Error("errors stop later stages")
	}
}

func TestRenderAllHonorsLogLevel(t *testing.T) {
	InitReporter(LogLevelError)

	srcs := source.NewMap()
	Warn(Span{File: "x.prv"}, "W300", "unused variable `q`")
	Error(Span{File: "x.prv"}, "E310", "undefined name `q`")

	out := NewRenderer(srcs, false).RenderAll()
	if strings.Contains(out, "W300") {
		t.Error("warnings must be hidden at the error log level")
	}
	if !strings.Contains(out, "E310") {
		t.Error("errors must render")
	}
}

func TestSpanOver(t *testing.T) {
	got := SpanOver(Span{File: "a", Start: 3, End: 5}, Span{File: "a", Start: 9, End: 12})
	if got.Start != 3 || got.End != 12 {
		t.Errorf("got %+v", got)
	}
}
