package schemas

// -- Rule Source Schemas --
//
// These types describe the wire form of rule documents consumed by the
// ruleset loader. They are deliberately encoding-agnostic: the same shapes
// decode from YAML and JSON. Authoring and extraction of rule content is an
// external concern; the engine treats remediation text as an opaque payload.

// RuleDocument is one rule source: a versioned collection of rule records.
// Tiers declares the closed set of project tiers the document's severity
// tables are written against, which lets the loader prove every table total.
type RuleDocument struct {
	Version string     `yaml:"version" json:"version"`
	Tiers   []string   `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	Rules   []RuleSpec `yaml:"rules" json:"rules"`
}

// RuleSpec is the declarative form of a single review criterion.
type RuleSpec struct {
	// ID is the stable identifier, unique across the whole rule set. Used for
	// audit trails and cross-referencing findings back to criteria.
	ID string `yaml:"id" json:"id"`

	// Category groups related criteria (e.g. "bmc-management-security",
	// "test-independence"). Findings never merge across categories.
	Category string `yaml:"category" json:"category"`

	// Summary is a short human-readable statement of the criterion.
	Summary string `yaml:"summary" json:"summary"`

	// Severity is the constant severity, mutually exclusive with
	// SeverityByTier. Exactly one of the two must be set.
	Severity Severity `yaml:"severity,omitempty" json:"severity,omitempty"`

	// SeverityByTier resolves severity from the declared project tier.
	SeverityByTier *SeverityTable `yaml:"severity_by_tier,omitempty" json:"severity_by_tier,omitempty"`

	// Applicability gates whether the rule is evaluated at all for a given
	// context. Empty predicate sets are universal.
	Applicability Applicability `yaml:"applicability,omitempty" json:"applicability,omitempty"`

	// Patterns are the detection specifications. A rule with zero patterns is
	// rejected at load time, unless it is a pure threshold rule.
	Patterns []PatternSpec `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// Threshold, when present, makes the rule contribute a rollup-level
	// breach check in addition to (or instead of) per-line findings.
	Threshold *ThresholdSpec `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Remediation is free-form guidance, never interpreted programmatically.
	Remediation string `yaml:"remediation,omitempty" json:"remediation,omitempty"`
}

// SeverityTable maps project tiers to severities. When a context's tier has
// no exact entry, Default applies; a table with neither full tier coverage
// nor a default is an AmbiguousSeverity load error.
type SeverityTable struct {
	Tiers   map[string]Severity `yaml:"tiers" json:"tiers"`
	Default Severity            `yaml:"default,omitempty" json:"default,omitempty"`
}

// Applicability is the set of context predicates a rule declares. A rule is
// eligible only if every non-empty predicate set contains the corresponding
// context value.
type Applicability struct {
	Languages []string `yaml:"languages,omitempty" json:"languages,omitempty"`
	Platforms []string `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	Tiers     []string `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	FileKinds []string `yaml:"file_kinds,omitempty" json:"file_kinds,omitempty"`
}

// IsUniversal reports whether the rule declares no predicates at all.
func (a Applicability) IsUniversal() bool {
	return len(a.Languages) == 0 && len(a.Platforms) == 0 &&
		len(a.Tiers) == 0 && len(a.FileKinds) == 0
}

// PatternSpec is one detection pattern.
//
// Positive patterns (Negative == false) fire on every non-overlapping match
// of Regex in the artifact's normalized text.
//
// Negative patterns fire on the ABSENCE of Regex within WindowLines lines
// after a match of Anchor. The raw match is reported at the anchor location.
type PatternSpec struct {
	// Regex is the detection expression (RE2 syntax).
	Regex string `yaml:"regex" json:"regex"`

	// Flags is a subset of "ims": case-insensitive, multi-line anchors,
	// dot-matches-newline.
	Flags string `yaml:"flags,omitempty" json:"flags,omitempty"`

	// Negative marks an absence-based pattern. Requires Anchor.
	Negative bool `yaml:"negative,omitempty" json:"negative,omitempty"`

	// Anchor locates the scope for a negative pattern (e.g. a fallible call
	// site that must be followed by error handling).
	Anchor string `yaml:"anchor,omitempty" json:"anchor,omitempty"`

	// WindowLines bounds the lexical window searched after the anchor line.
	// Zero means the engine default.
	WindowLines int `yaml:"window_lines,omitempty" json:"window_lines,omitempty"`
}

// ThresholdSpec describes a rollup-level limit. Minimum-style checks compare
// a context-declared measurement (EvaluationContext.Metrics) against a
// required floor; occurrence caps compare the rule's own finding count
// against a ceiling.
type ThresholdSpec struct {
	// Metric names the measurement, e.g. "branch_coverage". Required for
	// minimum-style thresholds.
	Metric string `yaml:"metric,omitempty" json:"metric,omitempty"`

	// Min is the constant required minimum, mutually exclusive with MinByTier.
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`

	// MinByTier resolves the required minimum from the project tier, with the
	// same totality requirement as severity tables.
	MinByTier map[string]float64 `yaml:"min_by_tier,omitempty" json:"min_by_tier,omitempty"`

	// MinDefault applies when MinByTier has no entry for the context tier.
	MinDefault *float64 `yaml:"min_default,omitempty" json:"min_default,omitempty"`

	// MaxOccurrences caps the number of deduplicated findings the rule may
	// contribute to across the corpus before the rollup reports a breach.
	// Counting happens after aggregation: co-located matches that merged into
	// one finding count once.
	MaxOccurrences *int `yaml:"max_occurrences,omitempty" json:"max_occurrences,omitempty"`
}
