// Package aggregate merges raw pattern matches into canonical findings.
// Matches from different rules that land on overlapping spans of the same
// artifact within the same category describe one underlying issue and are
// collapsed; co-located matches from different categories are always kept
// apart. No raw match is ever silently dropped: each one becomes or merges
// into exactly one finding, and the code verifies that invariant.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/matcher"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

// Aggregate deduplicates raw matches into findings. overlapFrac is the
// minimum span-overlap fraction (relative to the shorter span) required to
// merge; zero means any overlap merges.
//
// The returned error is the programming-bug class: a raw match that cannot
// be attributed to a rule or a finding. It is never expected in correct
// operation and must abort the run rather than be suppressed.
func Aggregate(matches []matcher.RawMatch, rules map[string]ruleset.ResolvedRule, overlapFrac float64) ([]schemas.Finding, error) {
	type groupKey struct {
		path     string
		category string
	}

	groups := make(map[groupKey][]matcher.RawMatch)
	for _, m := range matches {
		rule, ok := rules[m.RuleID]
		if !ok {
			return nil, fmt.Errorf("internal consistency error: raw match references unknown rule %q", m.RuleID)
		}
		k := groupKey{path: m.Path, category: rule.Category()}
		groups[k] = append(groups[k], m)
	}

	var findings []schemas.Finding
	attributed := 0
	for k, group := range groups {
		clusters := clusterMatches(group, overlapFrac)
		for _, cl := range clusters {
			f, err := mergeCluster(k.category, cl, rules)
			if err != nil {
				return nil, err
			}
			findings = append(findings, f)
			attributed += len(cl)
		}
	}

	if attributed != len(matches) {
		return nil, fmt.Errorf("internal consistency error: %d raw matches but %d attributed to findings", len(matches), attributed)
	}
	return findings, nil
}

// clusterMatches groups same-category matches on one artifact into clusters
// of mutually overlapping spans. Matches are sorted first so clustering is
// independent of scan order.
func clusterMatches(group []matcher.RawMatch, overlapFrac float64) [][]matcher.RawMatch {
	sort.Slice(group, func(i, j int) bool {
		if group[i].StartOffset != group[j].StartOffset {
			return group[i].StartOffset < group[j].StartOffset
		}
		if group[i].EndOffset != group[j].EndOffset {
			return group[i].EndOffset < group[j].EndOffset
		}
		return group[i].RuleID < group[j].RuleID
	})

	var clusters [][]matcher.RawMatch
	var curStart, curEnd int
	for _, m := range group {
		if len(clusters) > 0 && overlaps(curStart, curEnd, m.StartOffset, m.EndOffset, overlapFrac) {
			last := len(clusters) - 1
			clusters[last] = append(clusters[last], m)
			if m.EndOffset > curEnd {
				curEnd = m.EndOffset
			}
			continue
		}
		clusters = append(clusters, []matcher.RawMatch{m})
		curStart, curEnd = m.StartOffset, m.EndOffset
	}
	return clusters
}

// overlaps reports whether [aStart,aEnd) and [bStart,bEnd) overlap by more
// than frac of the shorter span. With frac == 0 any overlap qualifies.
func overlaps(aStart, aEnd, bStart, bEnd int, frac float64) bool {
	lo := max(aStart, bStart)
	hi := min(aEnd, bEnd)
	overlap := hi - lo
	if overlap <= 0 {
		return false
	}
	if frac <= 0 {
		return true
	}
	shorter := min(aEnd-aStart, bEnd-bStart)
	if shorter <= 0 {
		return true
	}
	return float64(overlap) > frac*float64(shorter)
}

// mergeCluster folds one cluster into a single finding. Severity is the
// maximum across contributors; message and remediation come from the
// highest-severity contributor, ties broken by the lexicographically
// smallest rule id for determinism.
func mergeCluster(category string, cluster []matcher.RawMatch, rules map[string]ruleset.ResolvedRule) (schemas.Finding, error) {
	loc := schemas.Location{
		Path:        cluster[0].Path,
		StartLine:   cluster[0].StartLine,
		EndLine:     cluster[0].EndLine,
		StartOffset: cluster[0].StartOffset,
		EndOffset:   cluster[0].EndOffset,
	}

	var primary *ruleset.ResolvedRule
	severity := schemas.Severity("")
	ruleIDs := make(map[string]bool, len(cluster))

	for i := range cluster {
		m := cluster[i]
		rule, ok := rules[m.RuleID]
		if !ok {
			return schemas.Finding{}, fmt.Errorf("internal consistency error: raw match references unknown rule %q", m.RuleID)
		}
		ruleIDs[m.RuleID] = true

		if m.StartOffset < loc.StartOffset {
			loc.StartOffset = m.StartOffset
		}
		if m.EndOffset > loc.EndOffset {
			loc.EndOffset = m.EndOffset
		}
		if m.StartLine < loc.StartLine {
			loc.StartLine = m.StartLine
		}
		if m.EndLine > loc.EndLine {
			loc.EndLine = m.EndLine
		}

		switch {
		case primary == nil,
			rule.Severity.Rank() > severity.Rank(),
			rule.Severity.Rank() == severity.Rank() && rule.ID() < primary.ID():
			r := rule
			primary = &r
			severity = rule.Severity
		}
	}

	ids := make([]string, 0, len(ruleIDs))
	for id := range ruleIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return schemas.Finding{
		ID:          schemas.Fingerprint(category, loc),
		Category:    category,
		Severity:    severity,
		Location:    loc,
		Message:     primary.Spec.Summary,
		Remediation: primary.Spec.Remediation,
		RuleIDs:     ids,
	}, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
