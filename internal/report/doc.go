// Package report renders resolution results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the fixed text report ending in GOOGLE_FONTS_PRESENT=...
//   - MarkdownWriter: a Markdown summary for sharing in issues or wikis
//   - JSONWriter: structured JSON output for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output. Writers that can
// also render the difference between two runs implement DiffWriter.
package report
