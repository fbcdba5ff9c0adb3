package schemas

import "time"

// -- Reporting Contract --
//
// Report and Summary are the stable shapes downstream formatters consume
// (terminal, JSON, SARIF). Field meaning is guaranteed; serialization beyond
// the JSON tags here is the formatter's concern.

// Report is the complete result of one engine run. Findings are sorted
// deterministically (severity desc, category, path, start line, id) so that
// two runs over identical input serialize byte-identically apart from ScanID
// and GeneratedAt.
type Report struct {
	ScanID      string            `json:"scan_id"`
	ToolVersion string            `json:"tool_version,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Context     EvaluationContext `json:"context"`
	Findings    []Finding         `json:"findings"`
	Summary     Summary           `json:"summary"`
}

// Summary is a pure projection of the finding set, recomputed on demand and
// never mutated in place.
type Summary struct {
	TotalFindings int `json:"total_findings"`

	// SuppressedCount is the number of raw matches dropped by inline
	// suppression markers before aggregation. Reported so coverage loss is
	// never silent.
	SuppressedCount int `json:"suppressed_count,omitempty"`

	// BySeverity is the severity histogram over all findings.
	BySeverity map[Severity]int `json:"by_severity"`

	// ByCategory counts findings per category per severity.
	ByCategory map[string]map[Severity]int `json:"by_category"`

	// WorstPerFile records the maximum severity among each file's findings.
	WorstPerFile map[string]Severity `json:"worst_per_file"`

	// Breaches are rollup-level threshold violations, distinct from
	// individual findings.
	Breaches []Breach `json:"breaches,omitempty"`
}

// Breach is a synthetic rollup-level fact: a threshold rule whose limit was
// violated by the corpus as a whole (e.g. coverage below the tier minimum, or
// a rule firing more often than allowed).
type Breach struct {
	RuleID   string  `json:"rule_id"`
	Category string  `json:"category"`
	Metric   string  `json:"metric"`
	Measured float64 `json:"measured"`
	Required float64 `json:"required"`
	Message  string  `json:"message"`
}
