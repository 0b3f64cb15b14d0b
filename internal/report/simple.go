package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/gfontscan/internal/model"
)

const (
	// StylesheetSection heads the list of Google Fonts stylesheet hits.
	StylesheetSection = "*** Google Fonts stylesheets found (fonts.googleapis.com): ***"

	// FontFileSection heads the list of font file hits.
	FontFileSection = "*** Found font files (fonts.gstatic.com, *.woff/woff2/ttf/otf): ***"

	ruleWidth = 43
	noneLine  = "  (none)"
)

// SimpleWriter outputs the fixed plain text report.
// Scripts depend on the last line, so the layout never changes with
// verbosity: diagnostics go to stderr instead.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in the fixed text layout.
func (w *SimpleWriter) Write(result *model.RunResult) (int, error) {
	var sb strings.Builder

	rule := strings.Repeat("=", ruleWidth)
	sb.WriteString(rule + "\n")
	sb.WriteString(fmt.Sprintf("Destination: %s\n", result.Destination))
	sb.WriteString(rule + "\n\n")

	writeURLSection(&sb, StylesheetSection, result.StylesheetHits)
	sb.WriteString("\n")
	writeURLSection(&sb, FontFileSection, result.FontFileHits)
	sb.WriteString("\n")

	if result.Verdict == model.VerdictUnknown && result.Note != "" {
		sb.WriteString(fmt.Sprintf("Note: %s\n", result.Note))
	}
	sb.WriteString(PresenceLine(result.Verdict) + "\n")

	return io.WriteString(w.output, sb.String())
}

// WriteDiff outputs the changes between two runs.
func (w *SimpleWriter) WriteDiff(diff *model.ResultDiff) (int, error) {
	var sb strings.Builder

	rule := strings.Repeat("=", ruleWidth)
	sb.WriteString(rule + "\n")
	sb.WriteString(fmt.Sprintf("Changes for: %s\n", diff.Destination))
	sb.WriteString(rule + "\n\n")

	sb.WriteString(fmt.Sprintf("Verdict: %s -> %s\n", diff.OldVerdict, diff.NewVerdict))
	if diff.IsRegression() {
		sb.WriteString("[!] Google Fonts started loading since the previous run\n")
	}
	if !diff.HasChanges() {
		sb.WriteString("No changes since the previous run\n")
		return io.WriteString(w.output, sb.String())
	}

	writeDelta(&sb, "+", "stylesheet", diff.AddedStylesheets)
	writeDelta(&sb, "-", "stylesheet", diff.RemovedStylesheets)
	writeDelta(&sb, "+", "font file", diff.AddedFontFiles)
	writeDelta(&sb, "-", "font file", diff.RemovedFontFiles)
	writeDelta(&sb, "~", "stylesheet body changed", diff.ChangedDigests)

	return io.WriteString(w.output, sb.String())
}

func writeURLSection(sb *strings.Builder, header string, urls []string) {
	sb.WriteString(header + "\n")
	if len(urls) == 0 {
		sb.WriteString(noneLine + "\n")
		return
	}
	for _, u := range urls {
		sb.WriteString("  " + u + "\n")
	}
}

func writeDelta(sb *strings.Builder, marker, label string, urls []string) {
	for _, u := range urls {
		sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n", marker, label, u))
	}
}
