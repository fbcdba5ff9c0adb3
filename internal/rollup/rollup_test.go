package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

func resolved(t *testing.T, doc string, ctx schemas.EvaluationContext) []ruleset.ResolvedRule {
	t.Helper()
	rs, err := ruleset.Load([]ruleset.Source{{Name: "rules.yaml", Format: ruleset.FormatYAML, Data: []byte(doc)}})
	require.NoError(t, err)
	out, err := rs.Resolve(ctx)
	require.NoError(t, err)
	return out
}

func TestSummarize_Histograms(t *testing.T) {
	findings := []schemas.Finding{
		{Category: "security", Severity: schemas.SeverityHigh, Location: schemas.Location{Path: "a.go"}},
		{Category: "security", Severity: schemas.SeverityCritical, Location: schemas.Location{Path: "a.go"}},
		{Category: "style", Severity: schemas.SeverityInfo, Location: schemas.Location{Path: "b.go"}},
		{Category: "security", Severity: schemas.SeverityHigh, Location: schemas.Location{Path: "b.go"}},
	}

	s := Summarize(findings, nil, schemas.EvaluationContext{}, 2)

	assert.Equal(t, 4, s.TotalFindings)
	assert.Equal(t, 2, s.SuppressedCount)
	assert.Equal(t, map[schemas.Severity]int{
		schemas.SeverityHigh:     2,
		schemas.SeverityCritical: 1,
		schemas.SeverityInfo:     1,
	}, s.BySeverity)
	assert.Equal(t, 2, s.ByCategory["security"][schemas.SeverityHigh])
	assert.Equal(t, 1, s.ByCategory["style"][schemas.SeverityInfo])
	assert.Equal(t, schemas.SeverityCritical, s.WorstPerFile["a.go"])
	assert.Equal(t, schemas.SeverityHigh, s.WorstPerFile["b.go"])
	assert.Empty(t, s.Breaches)
}

func TestSummarize_MetricBreaches(t *testing.T) {
	doc := `
tiers: [payment, internal-tool, prototype]
rules:
  - id: COV-001
    category: test-quality
    summary: Branch coverage below tier minimum
    severity: high
    threshold:
      metric: branch_coverage
      min_by_tier: {payment: 90, internal-tool: 70}
      min_default: 50
`
	t.Run("measured below tier minimum breaches", func(t *testing.T) {
		ctx := schemas.EvaluationContext{
			ProjectTier: "payment",
			Metrics:     map[string]float64{"branch_coverage": 74},
		}
		s := Summarize(nil, resolved(t, doc, ctx), ctx, 0)

		require.Len(t, s.Breaches, 1)
		b := s.Breaches[0]
		assert.Equal(t, "COV-001", b.RuleID)
		assert.Equal(t, "branch_coverage", b.Metric)
		assert.InDelta(t, 74, b.Measured, 0.001)
		assert.InDelta(t, 90, b.Required, 0.001)
		assert.Contains(t, b.Message, "below required minimum")
	})

	t.Run("same measurement passes a laxer tier", func(t *testing.T) {
		ctx := schemas.EvaluationContext{
			ProjectTier: "internal-tool",
			Metrics:     map[string]float64{"branch_coverage": 74},
		}
		s := Summarize(nil, resolved(t, doc, ctx), ctx, 0)
		assert.Empty(t, s.Breaches)
	})

	t.Run("unlisted tier uses the default minimum", func(t *testing.T) {
		ctx := schemas.EvaluationContext{
			ProjectTier: "prototype",
			Metrics:     map[string]float64{"branch_coverage": 45},
		}
		s := Summarize(nil, resolved(t, doc, ctx), ctx, 0)
		require.Len(t, s.Breaches, 1)
		assert.InDelta(t, 50, s.Breaches[0].Required, 0.001)
	})

	t.Run("undeclared metric skips the check", func(t *testing.T) {
		ctx := schemas.EvaluationContext{ProjectTier: "payment"}
		s := Summarize(nil, resolved(t, doc, ctx), ctx, 0)
		assert.Empty(t, s.Breaches)
	})

	t.Run("measured exactly at the minimum passes", func(t *testing.T) {
		ctx := schemas.EvaluationContext{
			ProjectTier: "payment",
			Metrics:     map[string]float64{"branch_coverage": 90},
		}
		s := Summarize(nil, resolved(t, doc, ctx), ctx, 0)
		assert.Empty(t, s.Breaches)
	})
}

func TestSummarize_OccurrenceCap(t *testing.T) {
	doc := `
rules:
  - id: DEBT-001
    category: maintainability
    summary: Deprecated helper call
    severity: low
    patterns: [{regex: oldHelper}]
    threshold: {max_occurrences: 2}
`
	ctx := schemas.EvaluationContext{}
	rules := resolved(t, doc, ctx)

	finding := func(path string) schemas.Finding {
		return schemas.Finding{
			Category: "maintainability",
			Severity: schemas.SeverityLow,
			Location: schemas.Location{Path: path},
			RuleIDs:  []string{"DEBT-001"},
		}
	}

	t.Run("at the cap no breach", func(t *testing.T) {
		s := Summarize([]schemas.Finding{finding("a.go"), finding("b.go")}, rules, ctx, 0)
		assert.Empty(t, s.Breaches)
	})

	t.Run("over the cap breaches with counts", func(t *testing.T) {
		s := Summarize([]schemas.Finding{finding("a.go"), finding("b.go"), finding("c.go")}, rules, ctx, 0)
		require.Len(t, s.Breaches, 1)
		b := s.Breaches[0]
		assert.Equal(t, "occurrences", b.Metric)
		assert.InDelta(t, 3, b.Measured, 0.001)
		assert.InDelta(t, 2, b.Required, 0.001)
	})

	t.Run("merged co-located matches count as one occurrence", func(t *testing.T) {
		// One deduplicated finding counts once toward the cap no matter how
		// many raw matches aggregation folded into it.
		merged := finding("a.go")
		merged.RuleIDs = []string{"DEBT-001", "OTHER-001"}
		s := Summarize([]schemas.Finding{merged, finding("b.go")}, rules, ctx, 0)
		assert.Empty(t, s.Breaches)
	})
}

func TestSummarize_BreachOrderFollowsRuleOrder(t *testing.T) {
	doc := `
rules:
  - id: B-001
    category: c
    summary: s
    severity: low
    threshold: {metric: m1, min: 10}
  - id: A-001
    category: c
    summary: s
    severity: low
    threshold: {metric: m2, min: 10}
`
	ctx := schemas.EvaluationContext{Metrics: map[string]float64{"m1": 1, "m2": 1}}
	s := Summarize(nil, resolved(t, doc, ctx), ctx, 0)

	require.Len(t, s.Breaches, 2)
	assert.Equal(t, "B-001", s.Breaches[0].RuleID)
	assert.Equal(t, "A-001", s.Breaches[1].RuleID)
}
