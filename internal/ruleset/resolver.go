package ruleset

import (
	"github.com/xkilldash9x/verdict/api/schemas"
)

// ResolvedRule pairs a rule with its severity (and threshold minimum, when
// applicable) resolved for one evaluation context.
type ResolvedRule struct {
	*Rule

	// Severity is the single resolved severity ordinal for this context.
	Severity schemas.Severity

	// RequiredMin is the tier-resolved threshold minimum, nil when the rule
	// has no minimum-style threshold.
	RequiredMin *float64
}

// Resolve returns the rules eligible under the given context, each paired
// with its resolved severity. It is a pure function of (rule set, context):
// identical inputs always yield the identical eligible set, in load order.
//
// A rule whose severity table cannot be resolved for the context is a fatal
// context error, never a silent skip.
func (rs *RuleSet) Resolve(ctx schemas.EvaluationContext) ([]ResolvedRule, error) {
	out := make([]ResolvedRule, 0, len(rs.rules))
	for _, r := range rs.rules {
		if !eligible(r.Spec.Applicability, ctx) {
			continue
		}
		sev, err := resolveSeverity(r, ctx)
		if err != nil {
			return nil, err
		}
		min, err := resolveRequiredMin(r, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedRule{Rule: r, Severity: sev, RequiredMin: min})
	}
	return out, nil
}

// eligible reports whether every declared predicate set contains the
// corresponding context value. Empty sets are universal.
func eligible(a schemas.Applicability, ctx schemas.EvaluationContext) bool {
	return containsOrEmpty(a.Languages, ctx.Language) &&
		containsOrEmpty(a.Platforms, ctx.Platform) &&
		containsOrEmpty(a.Tiers, ctx.ProjectTier) &&
		containsOrEmpty(a.FileKinds, ctx.FileKind)
}

func containsOrEmpty(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// resolveSeverity maps the rule's severity declaration onto exactly one
// ordinal for this context: exact tier entry first, then the declared
// default. Loading guarantees the table is total over the declared tier set,
// so failure here means the context itself is missing or outside that set.
func resolveSeverity(r *Rule, ctx schemas.EvaluationContext) (schemas.Severity, error) {
	if r.Spec.Severity != "" {
		return r.Spec.Severity, nil
	}

	t := r.Spec.SeverityByTier
	if ctx.ProjectTier != "" {
		if sev, ok := t.Tiers[ctx.ProjectTier]; ok {
			return sev, nil
		}
	}
	if t.Default != "" {
		return t.Default, nil
	}
	return "", &MissingDimensionError{
		RuleID:    r.ID(),
		Dimension: "project_tier",
		Value:     ctx.ProjectTier,
	}
}

func resolveRequiredMin(r *Rule, ctx schemas.EvaluationContext) (*float64, error) {
	t := r.Spec.Threshold
	if t == nil || (t.Min == nil && len(t.MinByTier) == 0) {
		return nil, nil
	}
	if t.Min != nil {
		v := *t.Min
		return &v, nil
	}
	if ctx.ProjectTier != "" {
		if v, ok := t.MinByTier[ctx.ProjectTier]; ok {
			return &v, nil
		}
	}
	if t.MinDefault != nil {
		v := *t.MinDefault
		return &v, nil
	}
	return nil, &MissingDimensionError{
		RuleID:    r.ID(),
		Dimension: "project_tier",
		Value:     ctx.ProjectTier,
	}
}
