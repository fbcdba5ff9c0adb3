package schemas

// EvaluationContext describes the single run being evaluated: what kind of
// project the corpus belongs to and any measurements declared by the caller.
// It is created once per invocation and read-only for the duration of the
// run, which is what makes rule eligibility reproducible.
type EvaluationContext struct {
	// Language is the primary language of the corpus (e.g. "go", "python").
	Language string `json:"language,omitempty"`

	// Platform identifies the target platform or vendor surface
	// (e.g. "kubernetes", "cisco-ios", "vmware").
	Platform string `json:"platform,omitempty"`

	// ProjectTier is the declared criticality tier (e.g. "payment",
	// "internal-tool", "prototype"). Rules with tier-keyed severity tables
	// require it to be set.
	ProjectTier string `json:"project_tier,omitempty"`

	// FileKind optionally narrows the corpus to one artifact kind
	// (e.g. "config", "source", "iac").
	FileKind string `json:"file_kind,omitempty"`

	// Metrics carries caller-declared measurements consumed by threshold
	// rules, keyed by metric name (e.g. "branch_coverage": 72.5).
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Metric returns the named measurement and whether it was declared.
func (c EvaluationContext) Metric(name string) (float64, bool) {
	v, ok := c.Metrics[name]
	return v, ok
}
