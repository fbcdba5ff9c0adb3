package ruleset

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/verdict/api/schemas"
)

// Format identifies the encoding of a rule source document.
type Format string

// Supported rule document encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Source is one rule document to load: a name for error reporting, the
// declared encoding, and the raw bytes.
type Source struct {
	Name   string
	Format Format
	Data   []byte
}

// validFlags is the accepted subset of regex flags in pattern specs.
const validFlags = "ims"

// Load parses and validates rule source documents into an immutable RuleSet.
// Any validation failure is fatal for the entire load; the engine never runs
// with a partially valid rule set.
func Load(sources []Source) (*RuleSet, error) {
	rs := &RuleSet{
		byID:       make(map[string]*Rule),
		byCategory: make(map[string][]*Rule),
		tiers:      make(map[string]bool),
	}

	for _, src := range sources {
		doc, err := decodeDocument(src)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		for _, tier := range doc.Tiers {
			rs.tiers[tier] = true
		}
		for i := range doc.Rules {
			rule, err := compileRule(&doc.Rules[i], doc)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", src.Name, err)
			}
			if _, dup := rs.byID[rule.ID()]; dup {
				return nil, &DuplicateIDError{ID: rule.ID(), Source: src.Name}
			}
			rs.add(rule)
		}
	}
	return rs, nil
}

func decodeDocument(src Source) (*schemas.RuleDocument, error) {
	var doc schemas.RuleDocument
	switch src.Format {
	case FormatYAML:
		if err := yaml.Unmarshal(src.Data, &doc); err != nil {
			return nil, fmt.Errorf("yaml decode failed: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(src.Data, &doc); err != nil {
			return nil, fmt.Errorf("json decode failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported rule document format %q", src.Format)
	}
	return &doc, nil
}

// compileRule validates one rule record and compiles its patterns.
func compileRule(spec *schemas.RuleSpec, doc *schemas.RuleDocument) (*Rule, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return nil, fmt.Errorf("rule with empty id")
	}
	if strings.TrimSpace(spec.Category) == "" {
		return nil, fmt.Errorf("rule %q: empty category", spec.ID)
	}

	if err := validateSeverity(spec, doc); err != nil {
		return nil, err
	}
	if err := validateThreshold(spec, doc); err != nil {
		return nil, err
	}

	if len(spec.Patterns) == 0 && spec.Threshold == nil {
		return nil, &InvalidPatternError{RuleID: spec.ID, Reason: "rule declares no detection patterns"}
	}

	patterns := make([]CompiledPattern, 0, len(spec.Patterns))
	for i, ps := range spec.Patterns {
		cp, err := compilePattern(spec.ID, i, ps)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, cp)
	}

	return &Rule{Spec: *spec, Patterns: patterns}, nil
}

// validateSeverity enforces that exactly one severity form is declared and
// that a severity table is provably total over the document's tier set.
func validateSeverity(spec *schemas.RuleSpec, doc *schemas.RuleDocument) error {
	constant := spec.Severity != ""
	table := spec.SeverityByTier != nil

	switch {
	case constant && table:
		return fmt.Errorf("rule %q: severity and severity_by_tier are mutually exclusive", spec.ID)
	case !constant && !table:
		return fmt.Errorf("rule %q: no severity declared", spec.ID)
	case constant:
		if !spec.Severity.IsValid() {
			return fmt.Errorf("rule %q: unknown severity %q", spec.ID, spec.Severity)
		}
		return nil
	}

	t := spec.SeverityByTier
	if len(t.Tiers) == 0 && t.Default == "" {
		return &AmbiguousSeverityError{RuleID: spec.ID}
	}
	for tier, sev := range t.Tiers {
		if !sev.IsValid() {
			return fmt.Errorf("rule %q: unknown severity %q for tier %q", spec.ID, sev, tier)
		}
	}
	if t.Default != "" {
		if !t.Default.IsValid() {
			return fmt.Errorf("rule %q: unknown default severity %q", spec.ID, t.Default)
		}
		return nil
	}
	// No default: the table must cover every tier the document declares.
	if len(doc.Tiers) == 0 {
		return &AmbiguousSeverityError{RuleID: spec.ID}
	}
	for _, tier := range doc.Tiers {
		if _, ok := t.Tiers[tier]; !ok {
			return &AmbiguousSeverityError{RuleID: spec.ID, Tier: tier}
		}
	}
	return nil
}

// validateThreshold checks the rollup-level limit declaration. Minimum tables
// follow the same totality rule as severity tables.
func validateThreshold(spec *schemas.RuleSpec, doc *schemas.RuleDocument) error {
	t := spec.Threshold
	if t == nil {
		return nil
	}

	hasMin := t.Min != nil || len(t.MinByTier) > 0
	hasCap := t.MaxOccurrences != nil
	if !hasMin && !hasCap {
		return fmt.Errorf("rule %q: threshold declares neither a minimum nor max_occurrences", spec.ID)
	}
	if hasMin {
		if t.Metric == "" {
			return fmt.Errorf("rule %q: threshold minimum requires a metric name", spec.ID)
		}
		if t.Min != nil && len(t.MinByTier) > 0 {
			return fmt.Errorf("rule %q: min and min_by_tier are mutually exclusive", spec.ID)
		}
		if len(t.MinByTier) > 0 && t.MinDefault == nil {
			if len(doc.Tiers) == 0 {
				return &AmbiguousSeverityError{RuleID: spec.ID}
			}
			for _, tier := range doc.Tiers {
				if _, ok := t.MinByTier[tier]; !ok {
					return &AmbiguousSeverityError{RuleID: spec.ID, Tier: tier}
				}
			}
		}
	}
	if hasCap {
		if *t.MaxOccurrences < 0 {
			return fmt.Errorf("rule %q: max_occurrences must not be negative", spec.ID)
		}
		if len(spec.Patterns) == 0 {
			return fmt.Errorf("rule %q: max_occurrences requires detection patterns to count", spec.ID)
		}
	}
	return nil
}

// compilePattern compiles one pattern spec, applying the declared flags.
func compilePattern(ruleID string, idx int, ps schemas.PatternSpec) (CompiledPattern, error) {
	for _, f := range ps.Flags {
		if !strings.ContainsRune(validFlags, f) {
			return CompiledPattern{}, &InvalidPatternError{
				RuleID: ruleID,
				Reason: fmt.Sprintf("pattern %d: unsupported flag %q", idx, string(f)),
			}
		}
	}
	if ps.Regex == "" {
		return CompiledPattern{}, &InvalidPatternError{
			RuleID: ruleID,
			Reason: fmt.Sprintf("pattern %d: empty regex", idx),
		}
	}
	if ps.WindowLines < 0 {
		return CompiledPattern{}, &InvalidPatternError{
			RuleID: ruleID,
			Reason: fmt.Sprintf("pattern %d: negative window_lines", idx),
		}
	}

	re, err := regexp.Compile(withFlags(ps.Regex, ps.Flags))
	if err != nil {
		return CompiledPattern{}, &InvalidPatternError{
			RuleID: ruleID,
			Reason: fmt.Sprintf("pattern %d: %v", idx, err),
		}
	}

	cp := CompiledPattern{Spec: ps, Regex: re}
	if ps.Negative {
		if ps.Anchor == "" {
			return CompiledPattern{}, &InvalidPatternError{
				RuleID: ruleID,
				Reason: fmt.Sprintf("pattern %d: negative pattern requires an anchor", idx),
			}
		}
		anchor, err := regexp.Compile(withFlags(ps.Anchor, ps.Flags))
		if err != nil {
			return CompiledPattern{}, &InvalidPatternError{
				RuleID: ruleID,
				Reason: fmt.Sprintf("pattern %d: anchor: %v", idx, err),
			}
		}
		cp.Anchor = anchor
	} else if ps.Anchor != "" {
		return CompiledPattern{}, &InvalidPatternError{
			RuleID: ruleID,
			Reason: fmt.Sprintf("pattern %d: anchor is only valid on negative patterns", idx),
		}
	}
	return cp, nil
}

func withFlags(expr, flags string) string {
	if flags == "" {
		return expr
	}
	return "(?" + flags + ")" + expr
}
