package walk

import (
	"github.com/kennedyshead/prove/report"
	"github.com/kennedyshead/prove/resolve"
	"github.com/kennedyshead/prove/symbols"
)

// PureVerbs is the set of verbs whose functions may not perform IO, call IO
// functions, or declare fallibility.
var PureVerbs = map[string]struct{}{
	"transforms": {},
	"validates":  {},
	"reads":      {},
	"creates":    {},
	"matches":    {},
}

// IsPureVerb reports whether a verb is in the pure set.
func IsPureVerb(verb string) bool {
	_, ok := PureVerbs[verb]
	return ok
}

// inPureContext reports whether the walker is currently inside code that
// must stay pure: the body of a pure-verb function, or any lambda.
func (w *Walker) inPureContext() bool {
	if w.lambdaDepth > 0 {
		return true
	}
	if w.currentFunc != nil {
		return IsPureVerb(w.currentFunc.Verb)
	}
	return false
}

// checkCallPurity enforces the purity rules at a call site: pure contexts
// may not call IO builtins (E362) or user inputs/outputs functions (E363).
func (w *Walker) checkCallPurity(callee *symbols.Symbol, span report.Span) {
	if !w.inPureContext() {
		return
	}

	if callee.Kind == symbols.KindBuiltinFunction {
		if _, isIO := resolve.IOBuiltins[callee.Name]; isIO {
			report.Error(span, "E362",
				"pure function cannot call IO function `%s`", callee.Name)
		}
		return
	}

	if callee.Kind == symbols.KindFunction {
		if callee.Verb == "inputs" || callee.Verb == "outputs" {
			report.Error(span, "E363",
				"pure function cannot call `%s %s`", callee.Verb, callee.Name)
		}
	}
}

// recordCall adds an edge to the per-function call record consumed by the
// contract verifier's chain analysis.
func (w *Walker) recordCall(callee *symbols.Symbol) {
	if w.currentFunc == nil || w.currentFunc.Sym == nil {
		return
	}
	if callee.Kind != symbols.KindFunction {
		return
	}
	w.Calls[w.currentFunc.Sym] = append(w.Calls[w.currentFunc.Sym], callee)
}
