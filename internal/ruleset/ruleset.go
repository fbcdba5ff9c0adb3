// Package ruleset implements the rule model, the rule set loader, and the
// applicability resolver. Rule documents (YAML or JSON) are parsed into
// immutable compiled rules; detection patterns are compiled exactly once per
// load and shared read-only across scan workers.
package ruleset

import (
	"regexp"

	"github.com/xkilldash9x/verdict/api/schemas"
)

// CompiledPattern pairs a pattern specification with its compiled
// expressions. For negative patterns Anchor is non-nil and Regex is the
// companion whose absence inside the window fires the rule.
type CompiledPattern struct {
	Spec   schemas.PatternSpec
	Regex  *regexp.Regexp
	Anchor *regexp.Regexp
}

// Rule is one compiled, immutable criterion.
type Rule struct {
	Spec     schemas.RuleSpec
	Patterns []CompiledPattern
}

// ID returns the rule's stable identifier.
func (r *Rule) ID() string { return r.Spec.ID }

// Category returns the rule's grouping tag.
func (r *Rule) Category() string { return r.Spec.Category }

// RuleSet is an immutable collection of compiled rules with lookup indexes,
// safe for concurrent reads.
type RuleSet struct {
	rules      []*Rule
	byID       map[string]*Rule
	byCategory map[string][]*Rule

	// tiers is the union of the closed tier sets declared by the loaded
	// documents, used to reject contexts referencing unknown tiers.
	tiers map[string]bool
}

// Rules returns all rules in load order.
func (rs *RuleSet) Rules() []*Rule { return rs.rules }

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// ByID looks up a rule by its unique identifier.
func (rs *RuleSet) ByID(id string) (*Rule, bool) {
	r, ok := rs.byID[id]
	return r, ok
}

// ByCategory returns all rules in the given category, in load order.
func (rs *RuleSet) ByCategory(category string) []*Rule {
	return rs.byCategory[category]
}

// Categories returns the distinct categories present in the set, unordered.
func (rs *RuleSet) Categories() []string {
	out := make([]string, 0, len(rs.byCategory))
	for c := range rs.byCategory {
		out = append(out, c)
	}
	return out
}

func (rs *RuleSet) add(r *Rule) {
	rs.rules = append(rs.rules, r)
	rs.byID[r.ID()] = r
	rs.byCategory[r.Category()] = append(rs.byCategory[r.Category()], r)
}
