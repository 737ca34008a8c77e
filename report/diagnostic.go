package report

import "fmt"

// Severity classifies a diagnostic.
type Severity int

// Enumeration of diagnostic severities.
const (
	SevError Severity = iota
	SevWarning
	SevNote
)

// String returns the lowercase display name of the severity.
func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// Label points at a specific source location within a diagnostic.
type Label struct {
	// The span the label underlines.
	Span Span

	// The message printed beside the carets.  May be empty.
	Message string

	// Secondary labels render dimmer than the primary label.
	Secondary bool
}

// Diagnostic is a single compiler message: an error, warning, or note with a
// stable code, one or more labeled source locations, and optional notes and
// suggested fixes.
type Diagnostic struct {
	Severity Severity

	// The stable diagnostic code, eg. `E361` or `W322`.
	Code string

	// The one-line headline message.
	Message string

	// The labeled source locations.  The first label is primary.
	Labels []Label

	// Free-form `= note:` lines.
	Notes []string

	// `try:` replacement suggestions.
	Suggestions []string
}

// PrimarySpan returns the span of the first label, or the zero span if the
// diagnostic carries no location.
func (d *Diagnostic) PrimarySpan() Span {
	if len(d.Labels) > 0 {
		return d.Labels[0].Span
	}
	return Span{}
}

// IsError returns whether the diagnostic stops compilation.
func (d *Diagnostic) IsError() bool {
	return d.Severity == SevError
}

// -----------------------------------------------------------------------------

// LocalError is a compile error thrown by `panic` inside a compiler stage and
// converted back into a diagnostic at the stage boundary by CatchErrors.
type LocalError struct {
	Code    string
	Message string
	Span    Span
}

func (le *LocalError) Error() string {
	return le.Message
}

// Raise creates a new local compile error suitable for panicking with.
func Raise(span Span, code, msg string, args ...interface{}) *LocalError {
	return &LocalError{Code: code, Message: fmt.Sprintf(msg, args...), Span: span}
}
