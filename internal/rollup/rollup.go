// Package rollup computes summaries from the complete finding set. It is a
// pure projection: called after the aggregation barrier, it never mutates
// findings and always returns a fresh Summary.
package rollup

import (
	"fmt"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

// Summarize projects the finding set into per-severity and per-category
// histograms, worst-severity-per-file, and threshold breaches. Breaches are
// rollup-level facts distinct from individual findings: coverage below a
// tier minimum is a property of the corpus, not of a line.
func Summarize(findings []schemas.Finding, rules []ruleset.ResolvedRule, evalCtx schemas.EvaluationContext, suppressed int) schemas.Summary {
	s := schemas.Summary{
		TotalFindings:   len(findings),
		SuppressedCount: suppressed,
		BySeverity:      make(map[schemas.Severity]int),
		ByCategory:      make(map[string]map[schemas.Severity]int),
		WorstPerFile:    make(map[string]schemas.Severity),
	}

	occurrences := make(map[string]int)
	for _, f := range findings {
		s.BySeverity[f.Severity]++

		byCat := s.ByCategory[f.Category]
		if byCat == nil {
			byCat = make(map[schemas.Severity]int)
			s.ByCategory[f.Category] = byCat
		}
		byCat[f.Severity]++

		path := f.Location.Path
		if worst, ok := s.WorstPerFile[path]; !ok || f.Severity.Rank() > worst.Rank() {
			s.WorstPerFile[path] = f.Severity
		}

		for _, id := range f.RuleIDs {
			occurrences[id]++
		}
	}

	// Rules iterate in load order so breach order is reproducible.
	for _, rule := range rules {
		t := rule.Spec.Threshold
		if t == nil {
			continue
		}

		if rule.RequiredMin != nil {
			required := *rule.RequiredMin
			measured, declared := evalCtx.Metric(t.Metric)
			// An undeclared metric cannot be judged; the check is skipped
			// rather than guessed.
			if declared && measured < required {
				s.Breaches = append(s.Breaches, schemas.Breach{
					RuleID:   rule.ID(),
					Category: rule.Category(),
					Metric:   t.Metric,
					Measured: measured,
					Required: required,
					Message:  fmt.Sprintf("%s %.1f below required minimum %.1f", t.Metric, measured, required),
				})
			}
		}

		if t.MaxOccurrences != nil {
			count := occurrences[rule.ID()]
			limit := *t.MaxOccurrences
			if count > limit {
				s.Breaches = append(s.Breaches, schemas.Breach{
					RuleID:   rule.ID(),
					Category: rule.Category(),
					Metric:   "occurrences",
					Measured: float64(count),
					Required: float64(limit),
					Message:  fmt.Sprintf("rule fired %d times, at most %d allowed", count, limit),
				})
			}
		}
	}
	return s
}
