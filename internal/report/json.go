package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/gfontscan/internal/model"
)

// JSONWriter outputs results in JSON format.
// This format is designed for integration with other tools and CI checks.
type JSONWriter struct {
	baseWriter

	// indent controls whether output is pretty-printed.
	indent bool

	// indentPrefix is the prefix for each line when indenting.
	indentPrefix string

	// indentString is the string used for each indentation level.
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one result as a JSON object.
func (w *JSONWriter) Write(result *model.RunResult) (int, error) {
	return w.writeJSON(result)
}

// WriteAll outputs several results as one JSON array.
func (w *JSONWriter) WriteAll(results []*model.RunResult) (int, error) {
	if results == nil {
		results = []*model.RunResult{}
	}
	return w.writeJSON(results)
}

// WriteDiff outputs the changes between two runs as a JSON object.
func (w *JSONWriter) WriteDiff(diff *model.ResultDiff) (int, error) {
	return w.writeJSON(diff)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
