package report

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/kennedyshead/prove/source"
)

// Styles used by the renderer.  Errors are bold red, warnings bold yellow,
// notes bold cyan, and the location gutter bold blue, matching the format
// described for `prove check` output.
var (
	errorStyle  = pterm.NewStyle(pterm.FgRed, pterm.Bold)
	warnStyle   = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	noteStyle   = pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	gutterStyle = pterm.NewStyle(pterm.FgBlue, pterm.Bold)
	boldStyle   = pterm.NewStyle(pterm.Bold)
)

// Renderer renders diagnostics in the Rust-style textual format.  Line and
// column numbers are resolved lazily through the source map.
type Renderer struct {
	srcs  *source.Map
	color bool
}

// NewRenderer creates a renderer over the given source map.  When color is
// false all styling is suppressed (eg. for piped output or tests).
func NewRenderer(srcs *source.Map, color bool) *Renderer {
	return &Renderer{srcs: srcs, color: color}
}

func (r *Renderer) styled(style *pterm.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Sprint(text)
}

func (r *Renderer) severityStyle(sev Severity) *pterm.Style {
	switch sev {
	case SevError:
		return errorStyle
	case SevWarning:
		return warnStyle
	default:
		return noteStyle
	}
}

// Render produces the full textual form of one diagnostic.
func (r *Renderer) Render(d *Diagnostic) string {
	var sb strings.Builder

	sevStyle := r.severityStyle(d.Severity)

	// Header: error[E361]: message
	sb.WriteString(r.styled(sevStyle, fmt.Sprintf("%s[%s]", d.Severity, d.Code)))
	sb.WriteString(r.styled(boldStyle, ": "+d.Message))
	sb.WriteByte('\n')

	for _, label := range d.Labels {
		r.renderLabel(&sb, sevStyle, label)
	}

	for _, note := range d.Notes {
		sb.WriteString("  " + r.styled(gutterStyle, "=") + " note: " + note + "\n")
	}

	for _, sug := range d.Suggestions {
		sb.WriteString("  " + r.styled(gutterStyle, "try:") + " " + sug + "\n")
	}

	return sb.String()
}

// renderLabel writes the `--> file:line:col` arrow, the source excerpt, and
// the caret underline for a single label.
func (r *Renderer) renderLabel(sb *strings.Builder, sevStyle *pterm.Style, label Label) {
	f := r.srcs.Get(label.Span.File)
	if f == nil {
		sb.WriteString("  " + r.styled(gutterStyle, "-->") + " " + label.Span.File + "\n")
		return
	}

	startLn, startCol := f.PositionOf(label.Span.Start)
	endLn, endCol := f.PositionOf(label.Span.End)

	loc := fmt.Sprintf("%s:%d:%d", f.Name, startLn, startCol)
	sb.WriteString("  " + r.styled(gutterStyle, "-->") + " " + loc + "\n")
	sb.WriteString("  " + r.styled(gutterStyle, "   |") + "\n")

	srcLine := f.Line(startLn)
	gutter := fmt.Sprintf("%4d", startLn)
	sb.WriteString("  " + r.styled(gutterStyle, gutter+" |") + " " + srcLine + "\n")

	caretLen := 1
	if endLn == startLn && endCol > startCol {
		caretLen = endCol - startCol
	}
	padding := strings.Repeat(" ", startCol-1)
	carets := strings.Repeat("^", caretLen)

	caretStyle := sevStyle
	if label.Secondary {
		caretStyle = gutterStyle
	}

	sb.WriteString("  " + r.styled(gutterStyle, "   |") + " " + padding + r.styled(caretStyle, carets))
	if label.Message != "" {
		sb.WriteString(" " + r.styled(caretStyle, label.Message))
	}
	sb.WriteByte('\n')
}

// RenderAll renders every diagnostic the reporter has accumulated, honoring
// the reporter's log level.
func (r *Renderer) RenderAll() string {
	var sb strings.Builder
	for _, d := range Diagnostics() {
		switch d.Severity {
		case SevError:
			if LogLevel() < LogLevelError {
				continue
			}
		case SevWarning:
			if LogLevel() < LogLevelWarn {
				continue
			}
		default:
			if LogLevel() < LogLevelVerbose {
				continue
			}
		}
		sb.WriteString(r.Render(d))
	}
	return sb.String()
}

// -----------------------------------------------------------------------------

// displayFatal prints a fatal error banner.
func displayFatal(msg string) {
	errorStyle.Print("fatal error")
	fmt.Println(": " + msg)
}

// displayICE prints an internal compiler error banner with a bug-report nudge.
func displayICE(msg string) {
	errorStyle.Print("internal compiler error")
	fmt.Println(": " + msg)
	fmt.Println("  = note: this is a bug in the prove compiler, please report it")
}
