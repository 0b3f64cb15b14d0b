package report

import (
	"io"
	"strconv"

	"github.com/nao1215/gfontscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs results in Markdown format.
// This format is designed for pasting into issues and compliance notes.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.RunResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeAlert(md, result)
	w.writeHits(md, "Stylesheets (fonts.googleapis.com)", result.StylesheetHits)
	w.writeHits(md, "Font Files (fonts.gstatic.com)", result.FontFileHits)
	if result.HasGoogleFonts() {
		w.writePieChart(md, result)
	}

	md.CodeBlocks(markdown.SyntaxHighlightText, PresenceLine(result.Verdict))
	md.PlainText("")

	return len(md.String()), md.Build()
}

// WriteDiff outputs the changes between two runs in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *model.ResultDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Google Fonts Changes")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Destination", "`" + diff.Destination + "`"},
			{"Previous Verdict", diff.OldVerdict.String()},
			{"Current Verdict", diff.NewVerdict.String()},
		},
	})
	md.PlainText("")

	switch {
	case diff.IsRegression():
		md.Caution("Google Fonts started loading since the previous run.")
	case !diff.HasChanges():
		md.Tip("No changes since the previous run.")
	default:
		md.Important("Google Fonts usage changed since the previous run.")
	}
	md.PlainText("")

	sections := []struct {
		title string
		urls  []string
	}{
		{"Added Stylesheets", diff.AddedStylesheets},
		{"Removed Stylesheets", diff.RemovedStylesheets},
		{"Added Font Files", diff.AddedFontFiles},
		{"Removed Font Files", diff.RemovedFontFiles},
		{"Changed Stylesheet Bodies", diff.ChangedDigests},
	}
	for _, s := range sections {
		if len(s.urls) == 0 {
			continue
		}
		md.H2(s.title)
		md.PlainText("")
		md.BulletList(codeSpans(s.urls)...)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.RunResult) {
	md.H1("Google Fonts Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Destination", "`" + result.Destination + "`"},
			{"Scan Date", result.ScannedAt.Format("2006-01-02 15:04:05 MST")},
			{"Stylesheets Fetched", strconv.Itoa(result.StylesheetsFetched)},
			{"Stylesheet Hits", strconv.Itoa(len(result.StylesheetHits))},
			{"Font File Hits", strconv.Itoa(len(result.FontFileHits))},
			{"Verdict", "**" + result.Verdict.String() + "**"},
		},
	})
	md.PlainText("")
}

// writeAlert writes an alert matching the verdict.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.RunResult) {
	switch result.Verdict {
	case model.VerdictYes:
		md.Warningf(
			"Google Fonts are loaded from Google servers: %d stylesheet(s) and %d font file(s).",
			len(result.StylesheetHits), len(result.FontFileHits),
		)
	case model.VerdictNo:
		md.Tip("No Google Fonts resources detected.")
	default:
		note := result.Note
		if note == "" {
			note = "Google Fonts usage could not be determined."
		}
		md.Note(note)
	}
	md.PlainText("")
}

// writeHits writes one list of hits, or a placeholder line when empty.
func (w *MarkdownWriter) writeHits(md *markdown.Markdown, title string, urls []string) {
	md.H2(title)
	md.PlainText("")

	if len(urls) == 0 {
		md.PlainText("None found.")
		md.PlainText("")
		return
	}

	md.BulletList(codeSpans(urls)...)
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of hits per kind.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.RunResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Google Fonts Resources"),
		piechart.WithShowData(true),
	)

	if n := len(result.StylesheetHits); n > 0 {
		chart.LabelAndIntValue("Stylesheets", uint64(n))
	}
	if n := len(result.FontFileHits); n > 0 {
		chart.LabelAndIntValue("Font files", uint64(n))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func codeSpans(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = "`" + u + "`"
	}
	return out
}
