package reporting

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/api/schemas"
)

// JSONReporter writes the report as indented JSON. The report's field shapes
// are the contract in api/schemas; this reporter adds nothing beyond them.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
}

// NewJSONReporter creates a reporter that takes ownership of the writer.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: logger.Named("json_reporter"),
	}
}

// Write implements Reporter.
func (r *JSONReporter) Write(report *schemas.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	r.logger.Debug("Wrote JSON report", zap.Int("findings", len(report.Findings)))
	return nil
}

// Close implements Reporter.
func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
