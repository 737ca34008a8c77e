package report

import (
	"fmt"
	"os"
	"sync"
)

// Reporter accumulates diagnostics during compilation.  The diagnostics list
// is append-only: stages add to it and the driver renders everything at the
// end of the run.  The reporter is synchronized so per-module work may be
// parallelized without changing any caller.
type Reporter struct {
	m sync.Mutex

	// The selected log level.  Must be one of the enumerated log levels.
	logLevel int

	diags      []*Diagnostic
	errorCount int
}

// Enumeration of log levels.
const (
	LogLevelSilent  = iota // No output at all.
	LogLevelError          // Errors only.
	LogLevelWarn           // Errors and warnings.
	LogLevelVerbose        // Everything (default).
)

// rep is the global reporter instance.
var rep = &Reporter{logLevel: LogLevelVerbose}

// InitReporter resets the global reporter to the given log level.
func InitReporter(logLevel int) {
	rep = &Reporter{logLevel: logLevel}
}

// Add appends a fully-formed diagnostic.
func Add(d *Diagnostic) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if d.Severity == SevError {
		rep.errorCount++
	}
	rep.diags = append(rep.diags, d)
}

// Error reports an error diagnostic at a span.
func Error(span Span, code, msg string, args ...interface{}) {
	Add(&Diagnostic{
		Severity: SevError,
		Code:     code,
		Message:  fmt.Sprintf(msg, args...),
		Labels:   []Label{{Span: span}},
	})
}

// Warn reports a warning diagnostic at a span.
func Warn(span Span, code, msg string, args ...interface{}) {
	Add(&Diagnostic{
		Severity: SevWarning,
		Code:     code,
		Message:  fmt.Sprintf(msg, args...),
		Labels:   []Label{{Span: span}},
	})
}

// Note reports a note diagnostic at a span.
func Note(span Span, code, msg string, args ...interface{}) {
	Add(&Diagnostic{
		Severity: SevNote,
		Code:     code,
		Message:  fmt.Sprintf(msg, args...),
		Labels:   []Label{{Span: span}},
	})
}

// ShouldProceed indicates whether no errors have been recorded so far.  The
// count is global to the reporter, not kept per module.
func ShouldProceed() bool {
	rep.m.Lock()
	defer rep.m.Unlock()
	return rep.errorCount == 0
}

// AnyErrors returns whether any error diagnostics were recorded.
func AnyErrors() bool {
	rep.m.Lock()
	defer rep.m.Unlock()
	return rep.errorCount > 0
}

// ErrorCount returns the number of error diagnostics recorded.
func ErrorCount() int {
	rep.m.Lock()
	defer rep.m.Unlock()
	return rep.errorCount
}

// Diagnostics returns the recorded diagnostics in order of arrival.
func Diagnostics() []*Diagnostic {
	rep.m.Lock()
	defer rep.m.Unlock()
	return append([]*Diagnostic(nil), rep.diags...)
}

// LogLevel returns the reporter's configured log level.
func LogLevel() int {
	return rep.logLevel
}

// -----------------------------------------------------------------------------

// ReportFatal reports an unrecoverable configuration or I/O error and exits.
// These are expected failures (missing manifest, unreadable source), not
// compiler bugs.
func ReportFatal(msg string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		displayFatal(fmt.Sprintf(msg, args...))
	}
	os.Exit(1)
}

// ReportICE reports an internal compiler error: a condition that indicates a
// bug in the compiler itself.  Always displayed regardless of log level.
func ReportICE(msg string, args ...interface{}) {
	displayICE(fmt.Sprintf(msg, args...))
	os.Exit(-1)
}

// CatchErrors converts a LocalError panic back into a diagnostic at a stage
// boundary.  Any other panic value is re-raised as an internal compiler
// error.  This function must always be deferred.
func CatchErrors() {
	if x := recover(); x != nil {
		if lerr, ok := x.(*LocalError); ok {
			Error(lerr.Span, lerr.Code, "%s", lerr.Message)
		} else if err, ok := x.(error); ok {
			ReportICE("%s", err.Error())
		} else {
			ReportICE("%v", x)
		}
	}
}
