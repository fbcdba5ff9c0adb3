package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.Rank() > SeverityHigh.Rank())
	assert.True(t, SeverityHigh.Rank() > SeverityMedium.Rank())
	assert.True(t, SeverityMedium.Rank() > SeverityLow.Rank())
	assert.True(t, SeverityLow.Rank() > SeverityInfo.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())

	assert.Equal(t, SeverityHigh, SeverityLow.Max(SeverityHigh))
	assert.Equal(t, SeverityHigh, SeverityHigh.Max(SeverityLow))
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("medium")
	assert.NoError(t, err)
	assert.Equal(t, SeverityMedium, s)

	_, err = ParseSeverity("MEDIUM")
	assert.Error(t, err)
	_, err = ParseSeverity("blocker")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	loc := Location{Path: "a.go", StartLine: 3, EndLine: 4}

	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, Fingerprint("security", loc), Fingerprint("security", loc))
	})

	t.Run("sensitive to category and location", func(t *testing.T) {
		assert.NotEqual(t, Fingerprint("security", loc), Fingerprint("style", loc))

		moved := loc
		moved.StartLine = 5
		assert.NotEqual(t, Fingerprint("security", loc), Fingerprint("security", moved))
	})

	t.Run("same line, disjoint spans keep distinct identities", func(t *testing.T) {
		second := loc
		second.StartOffset = 40
		second.EndOffset = 60
		assert.NotEqual(t, Fingerprint("security", loc), Fingerprint("security", second))
	})
}

func TestApplicabilityIsUniversal(t *testing.T) {
	assert.True(t, Applicability{}.IsUniversal())
	assert.False(t, Applicability{Languages: []string{"go"}}.IsUniversal())
}

func TestEvaluationContextMetric(t *testing.T) {
	ctx := EvaluationContext{Metrics: map[string]float64{"branch_coverage": 74}}

	v, ok := ctx.Metric("branch_coverage")
	assert.True(t, ok)
	assert.Equal(t, 74.0, v)

	_, ok = ctx.Metric("mutation_score")
	assert.False(t, ok)

	_, ok = EvaluationContext{}.Metric("anything")
	assert.False(t, ok)
}
