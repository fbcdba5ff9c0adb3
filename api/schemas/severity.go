package schemas

import "fmt"

// Severity represents the severity level of a finding, ranging from
// informational to critical. The values are lowercase to keep report output
// stable across serialization formats.
type Severity string

// Constants defining the standard severity levels, least to most severe.
const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRanks orders severities for comparison and sorting. Higher is worse.
var severityRanks = map[Severity]int{
	SeverityInfo:     1,
	SeverityLow:      2,
	SeverityMedium:   3,
	SeverityHigh:     4,
	SeverityCritical: 5,
}

// Rank returns a numeric weight for ordering (higher = more severe).
// Unknown severities rank below info.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// IsValid reports whether s is one of the five defined severity levels.
func (s Severity) IsValid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Max returns the more severe of s and other.
func (s Severity) Max(other Severity) Severity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// ParseSeverity converts a string into a Severity, rejecting anything outside
// the closed set. Rule documents must use the canonical lowercase form.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown severity %q (want one of info, low, medium, high, critical)", raw)
	}
	return s, nil
}
