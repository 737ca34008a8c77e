package report

// Span represents a range of source text as half-open byte offsets into a
// single source file.  Line and column information is not stored here: it is
// computed lazily from the source map when a diagnostic is rendered.
type Span struct {
	// The name of the source file the span points into.
	File string

	// The byte offset of the first byte of the span.
	Start int

	// The byte offset one past the last byte of the span.
	End int
}

// SpanOver returns a new span covering everything from the start of `start`
// to the end of `end`.  Both spans must point into the same file.
func SpanOver(start, end Span) Span {
	return Span{File: start.File, Start: start.Start, End: end.End}
}

// BuiltinSpan is the span used for symbols that have no source location.
var BuiltinSpan = Span{File: "<builtin>"}
