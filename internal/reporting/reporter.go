// Package reporting implements the stable output side of the engine: the
// deterministic final ordering of findings and the emitters downstream
// formatters consume. Two runs over identical input produce byte-identical
// finding lists.
package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/api/schemas"
)

// json is the package codec. Standard-library compatibility sorts map keys,
// which the byte-identical report guarantee depends on: Summary's histograms
// are maps and must serialize in one canonical order.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes a complete report to an output.
type Reporter interface {
	// Write emits the report.
	Write(report *schemas.Report) error
	// Close finalizes the report and closes any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format and output path. An empty
// path or "stdout" targets standard output, which is never closed.
func New(format, outputPath string, logger *zap.Logger) (Reporter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"
	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return NewJSONReporter(writer, logger), nil
	case "sarif":
		return NewSARIFReporter(writer, logger), nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// SortFindings returns the findings in the canonical report order: severity
// descending, then category, then path, then start line, then finding id.
// The input slice is not modified.
func SortFindings(findings []schemas.Finding) []schemas.Finding {
	out := make([]schemas.Finding, len(findings))
	copy(out, findings)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Location.Path != b.Location.Path {
			return a.Location.Path < b.Location.Path
		}
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine < b.Location.StartLine
		}
		return a.ID < b.ID
	})
	return out
}
