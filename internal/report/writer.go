package report

import (
	"io"

	"github.com/nao1215/gfontscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write resolution results in various formats.
type Writer interface {
	// Write outputs the result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.RunResult) (int, error)
}

// DiffWriter renders the difference between two runs of one destination.
type DiffWriter interface {
	WriteDiff(diff *model.ResultDiff) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// PresenceLine returns the machine-readable verdict line.
func PresenceLine(v model.Verdict) string {
	return "GOOGLE_FONTS_PRESENT=" + v.String()
}
