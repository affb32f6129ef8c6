// Package report renders audit summaries: a colored line-per-verdict text
// report, a canonical JSON document and SBOM exports of verified artifacts.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	bcraudit "github.com/albertocavalcante/go-bcr-audit"
)

// Separator is the rule printed around the verdict list.
var Separator = strings.Repeat("-", 60)

// Printer writes the human-readable report. Each line is rendered on its
// own so styles never span line breaks.
type Printer struct {
	w     io.Writer
	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

// NewPrinter returns a Printer writing to w. With color false the output
// carries no escape sequences.
func NewPrinter(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.w, style.Render(fmt.Sprintf(format, args...)))
}

// Header prints the banner naming the registry and the opening rule.
func (p *Printer) Header(absRoot string) {
	p.line(p.title, "🏥 Validating Registry Integrity: %s", absRoot)
	fmt.Fprintln(p.w, Separator)
}

// Critical prints the fatal message for a registry without modules/.
func (p *Printer) Critical(modulesDir string) {
	p.line(p.fail, "CRITICAL: Registry modules directory not found at %s", modulesDir)
}

// Verdict prints one verdict with its details.
func (p *Printer) Verdict(v bcraudit.Verdict) {
	switch {
	case v.Kind.IsHardFailure():
		p.line(p.fail, "❌ %s: %s", v.Subject(), v.Reason)
	case v.Kind.IsSoftPass():
		p.line(p.warn, "⚠️  %s: %s", v.Subject(), v.Reason)
	default:
		p.line(p.ok, "✅ %s: %s", v.Subject(), v.Reason)
	}
	if v.Kind == bcraudit.ChecksumMismatch {
		fmt.Fprintf(p.w, "   Expected: %s\n", v.Expected)
		fmt.Fprintf(p.w, "   Actual:   %s\n", v.Actual)
	}
	for _, note := range v.Notes {
		p.line(p.dim, "   note: %s", note)
	}
}

// Footer prints the closing rule, registry-wide warnings, counts and the
// overall outcome.
func (p *Printer) Footer(s *bcraudit.Summary) {
	fmt.Fprintln(p.w, Separator)
	for _, w := range s.Warnings {
		p.line(p.warn, "⚠️  %s", w)
	}
	p.line(p.dim, "%d modules, %d versions checked: %d healthy, %d warnings, %d failures",
		s.Modules, s.Checked, s.Healthy, s.SoftPasses, s.HardFailures)

	switch s.State() {
	case bcraudit.StateEmpty:
		p.line(p.warn, "⚠️  Registry is empty.")
	case bcraudit.StateHealthy:
		p.line(p.ok, "🎉 All systems operational. Registry is healthy.")
	default:
		p.line(p.fail, "💥 Registry has errors. Please fix before deploying.")
	}
}

// Text writes a complete report for a finished run.
func (p *Printer) Text(absRoot string, s *bcraudit.Summary) {
	p.Header(absRoot)
	for _, v := range s.Verdicts {
		p.Verdict(v)
	}
	p.Footer(s)
}
