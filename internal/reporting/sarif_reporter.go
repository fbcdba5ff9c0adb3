package reporting

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "verdict"
	ToolInfoURI  = "https://github.com/xkilldash9x/verdict"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// SARIFReporter emits the report in SARIF 2.1.0. It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu  sync.Mutex
	log *sarif.Log
	// seenRules tracks which reporting descriptors were already registered.
	seenRules map[string]bool
}

// NewSARIFReporter creates a reporter that takes ownership of the writer.
func NewSARIFReporter(writer io.WriteCloser, logger *zap.Logger) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						InformationURI: pString(ToolInfoURI),
						// Empty slices (not nil) for proper JSON marshalling.
						Rules: []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}
	return &SARIFReporter{
		writer:    writer,
		logger:    logger.Named("sarif_reporter"),
		log:       log,
		seenRules: make(map[string]bool),
	}
}

// Write converts the report's findings into SARIF results.
func (r *SARIFReporter) Write(report *schemas.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	if report.ToolVersion != "" {
		run.Tool.Driver.Version = pString(report.ToolVersion)
	}

	for _, finding := range report.Findings {
		ruleID := r.ensureRule(run, finding)
		run.Results = append(run.Results, &sarif.Result{
			RuleID:    ruleID,
			Message:   &sarif.Message{Text: pString(finding.Message)},
			Level:     mapSeverityToLevel(finding.Severity),
			Locations: findingLocations(finding),
		})
	}

	r.logger.Debug("Buffered findings as SARIF results",
		zap.Int("findings_count", len(report.Findings)))
	return nil
}

// Close finalizes the SARIF log, writes it out, and closes the writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, encodeErr := json.MarshalIndent(r.log, "", "  ")
	if encodeErr == nil {
		_, encodeErr = r.writer.Write(append(data, '\n'))
	}
	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// ensureRule registers a reporting descriptor for the finding's primary rule
// the first time it appears and returns the SARIF rule id to reference.
func (r *SARIFReporter) ensureRule(run *sarif.Run, finding schemas.Finding) string {
	ruleID := finding.Category
	if len(finding.RuleIDs) > 0 {
		ruleID = finding.RuleIDs[0]
	}
	if r.seenRules[ruleID] {
		return ruleID
	}
	r.seenRules[ruleID] = true

	desc := &sarif.ReportingDescriptor{
		ID:               ruleID,
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(finding.Message)},
		Properties:       &sarif.PropertyBag{"category": finding.Category},
	}
	if finding.Remediation != "" {
		desc.Help = &sarif.MultiformatMessageString{Text: pString(finding.Remediation)}
	}
	run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, desc)
	return ruleID
}

func findingLocations(finding schemas.Finding) []*sarif.Location {
	loc := finding.Location
	phys := &sarif.PhysicalLocation{
		ArtifactLocation: &sarif.ArtifactLocation{URI: pString(loc.Path)},
	}
	if loc.StartLine > 0 {
		phys.Region = &sarif.Region{
			StartLine: pInt(loc.StartLine),
			EndLine:   pInt(loc.EndLine),
		}
	}
	return []*sarif.Location{{PhysicalLocation: phys}}
}

// mapSeverityToLevel translates engine severities onto the coarser SARIF
// level scale.
func mapSeverityToLevel(s schemas.Severity) sarif.Level {
	switch s {
	case schemas.SeverityCritical, schemas.SeverityHigh:
		return sarif.LevelError
	case schemas.SeverityMedium, schemas.SeverityLow:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

func pString(s string) *string { return &s }
func pInt(i int) *int          { return &i }
