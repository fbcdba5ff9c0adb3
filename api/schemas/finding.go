package schemas

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Location pinpoints where a finding was detected within an artifact. Line
// numbers are 1-based; offsets are byte offsets into the normalized text.
type Location struct {
	Path        string `json:"path"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// DiagnosticCategory is the category assigned to engine-generated diagnostic
// findings (unreadable artifacts, pattern budget exhaustion). Diagnostics are
// always SeverityInfo and never merge with rule findings.
const DiagnosticCategory = "engine-diagnostic"

// Finding is the externally visible unit of output: one or more rule matches
// merged into a single canonical result at one location.
type Finding struct {
	// ID is a stable fingerprint of category plus normalized location, so the
	// same issue at the same place has the same identity across runs.
	ID string `json:"id"`

	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Location Location `json:"location"`

	// Message is the summary of the highest-severity contributing rule.
	Message string `json:"message"`

	// Remediation is drawn from the highest-severity contributor, ties broken
	// by smallest rule id.
	Remediation string `json:"remediation,omitempty"`

	// RuleIDs lists every contributing rule, sorted, for traceability.
	RuleIDs []string `json:"rule_ids"`

	// Diagnostic marks engine-generated findings that report degraded
	// coverage rather than a criterion match.
	Diagnostic bool `json:"diagnostic,omitempty"`
}

// Fingerprint computes the canonical finding identity from category and
// normalized location. Byte offsets participate so two same-category findings
// sharing a line keep distinct identities.
func Fingerprint(category string, loc Location) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d|%d|%d",
		category, loc.Path, loc.StartLine, loc.EndLine, loc.StartOffset, loc.EndOffset)))
	return hex.EncodeToString(h[:16])
}
