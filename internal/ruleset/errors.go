package ruleset

import "fmt"

// Load-time errors are fatal for the whole rule set: the engine never runs
// with a partially valid rule set silently.

// DuplicateIDError reports a rule id declared more than once across all
// loaded documents.
type DuplicateIDError struct {
	ID     string
	Source string // document the second occurrence came from
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate rule id %q (source %s)", e.ID, e.Source)
}

// InvalidPatternError reports a detection pattern that failed validation or
// compilation.
type InvalidPatternError struct {
	RuleID string
	Reason string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("rule %q: invalid pattern: %s", e.RuleID, e.Reason)
}

// AmbiguousSeverityError reports a severity (or threshold-minimum) table that
// is not total over the document's declared tiers and has no default, leaving
// some context unresolved.
type AmbiguousSeverityError struct {
	RuleID string
	Tier   string // first uncovered tier
}

func (e *AmbiguousSeverityError) Error() string {
	return fmt.Sprintf("rule %q: ambiguous severity: tier %q has no entry and no default is declared", e.RuleID, e.Tier)
}

// MissingDimensionError reports an evaluation context that lacks a dimension
// required by an in-scope rule. It aborts the run before any scanning.
type MissingDimensionError struct {
	RuleID    string
	Dimension string
	Value     string // the unresolvable value, empty when undeclared
}

func (e *MissingDimensionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("rule %q requires context dimension %q, which the evaluation context does not declare", e.RuleID, e.Dimension)
	}
	return fmt.Sprintf("rule %q cannot resolve context dimension %s=%q", e.RuleID, e.Dimension, e.Value)
}
