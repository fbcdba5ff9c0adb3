// Package matcher compiles nothing at scan time: it executes the patterns
// the ruleset loader compiled once, over normalized artifact text, under a
// per-(rule, artifact) time budget so one pathological pairing can never
// take down a whole corpus scan.
package matcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/config"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

// SuppressionMarker on the matched line, or the line directly above it,
// suppresses the match. Followed by a rule id it suppresses that rule only;
// bare, it suppresses every rule on that line.
const SuppressionMarker = "verdict:ignore"

// errBudgetExceeded aborts the current (rule, artifact) pair.
var errBudgetExceeded = errors.New("pattern budget exceeded")

// RawMatch is one pattern hit: (rule, artifact, span). It exists only until
// aggregation merges it into a Finding.
type RawMatch struct {
	RuleID      string
	Path        string
	StartOffset int
	EndOffset   int
	StartLine   int
	EndLine     int
	Captures    []string
}

// ScanError records a (rule, artifact) pair that was abandoned. The engine
// surfaces it as an info-severity diagnostic finding so operators can see
// coverage was incomplete.
type ScanError struct {
	RuleID  string
	Path    string
	Message string
}

// Result is the outcome of scanning one artifact with all its eligible rules.
type Result struct {
	Matches    []RawMatch
	Errors     []ScanError
	Suppressed int
}

// Scanner executes compiled patterns over artifacts. It is stateless across
// artifacts and safe for concurrent use.
type Scanner struct {
	budget        time.Duration
	defaultWindow int
	normOpts      NormalizeOptions
	logger        *zap.Logger

	// now is injectable so budget exhaustion is testable without real waits.
	now func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock replaces the scanner's time source. Used by tests to simulate
// budget exhaustion deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithNormalizeOptions overrides the default lexical normalization (strip
// comments, keep string literals).
func WithNormalizeOptions(opts NormalizeOptions) Option {
	return func(s *Scanner) { s.normOpts = opts }
}

// New creates a Scanner from matcher configuration.
func New(cfg config.MatcherConfig, logger *zap.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		budget:        cfg.PatternBudget,
		defaultWindow: cfg.DefaultWindowLines,
		normOpts:      NormalizeOptions{StripComments: true},
		logger:        logger.Named("matcher"),
		now:           time.Now,
	}
	if s.budget <= 0 {
		s.budget = 2 * time.Second
	}
	if s.defaultWindow <= 0 {
		s.defaultWindow = 10
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan runs every eligible rule's patterns against one artifact. The match
// set for a given (rule, artifact) pair is independent of rule order. The
// returned error is non-nil only when the context is cancelled; per-pair
// failures are isolated into Result.Errors.
func (s *Scanner) Scan(ctx context.Context, rules []ruleset.ResolvedRule, art schemas.Artifact, language string) (Result, error) {
	var res Result

	norm := Normalize(art.Content, language, s.normOpts)
	li := newLineIndex(norm)
	rawLines := strings.Split(string(art.Content), "\n")

	for _, rule := range rules {
		if len(rule.Patterns) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		deadline := s.now().Add(s.budget)
		matches, err := s.scanRule(rule, norm, li, deadline)
		if err != nil {
			s.logger.Warn("Abandoning rule for artifact",
				zap.String("rule_id", rule.ID()),
				zap.String("path", art.Path),
				zap.Error(err))
			res.Errors = append(res.Errors, ScanError{
				RuleID:  rule.ID(),
				Path:    art.Path,
				Message: err.Error(),
			})
			continue
		}

		for _, m := range matches {
			m.Path = art.Path
			if suppressed(rawLines, m.StartLine, rule.ID()) {
				res.Suppressed++
				continue
			}
			res.Matches = append(res.Matches, m)
		}
	}
	return res, nil
}

// scanRule executes all of one rule's patterns under a shared deadline.
func (s *Scanner) scanRule(rule ruleset.ResolvedRule, norm []byte, li *lineIndex, deadline time.Time) ([]RawMatch, error) {
	var out []RawMatch
	for _, p := range rule.Patterns {
		var (
			matches []RawMatch
			err     error
		)
		if p.Spec.Negative {
			matches, err = s.scanNegative(rule, p, norm, li, deadline)
		} else {
			matches, err = s.scanPositive(rule, p, norm, li, deadline)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

// scanPositive reports every non-overlapping match of the pattern. The
// deadline is checked between match iterations, not inside the regexp engine:
// FindAllSubmatchIndex runs to completion, with RE2's linear-time execution
// bounding how long that can take.
func (s *Scanner) scanPositive(rule ruleset.ResolvedRule, p ruleset.CompiledPattern, norm []byte, li *lineIndex, deadline time.Time) ([]RawMatch, error) {
	locs := p.Regex.FindAllSubmatchIndex(norm, -1)
	matches := make([]RawMatch, 0, len(locs))
	for _, loc := range locs {
		if s.now().After(deadline) {
			return nil, errBudgetExceeded
		}
		matches = append(matches, RawMatch{
			RuleID:      rule.ID(),
			StartOffset: loc[0],
			EndOffset:   loc[1],
			StartLine:   li.lineOf(loc[0]),
			EndLine:     lineOfEnd(li, loc[0], loc[1]),
			Captures:    captures(norm, loc),
		})
	}
	return matches, nil
}

// scanNegative locates anchors, then reports each anchor whose companion
// pattern is absent from the bounded window that follows it.
func (s *Scanner) scanNegative(rule ruleset.ResolvedRule, p ruleset.CompiledPattern, norm []byte, li *lineIndex, deadline time.Time) ([]RawMatch, error) {
	window := p.Spec.WindowLines
	if window <= 0 {
		window = s.defaultWindow
	}

	anchors := p.Anchor.FindAllIndex(norm, -1)
	var matches []RawMatch
	for _, loc := range anchors {
		if s.now().After(deadline) {
			return nil, errBudgetExceeded
		}

		anchorLine := li.lineOf(loc[0])
		windowStart := loc[1]
		lastLine := anchorLine + window
		if lastLine > li.lineCount() {
			lastLine = li.lineCount()
		}
		windowEnd := li.endOfLine(norm, lastLine)
		if windowEnd < windowStart {
			windowEnd = windowStart
		}

		if p.Regex.Match(norm[windowStart:windowEnd]) {
			continue // companion present, rule satisfied
		}
		matches = append(matches, RawMatch{
			RuleID:      rule.ID(),
			StartOffset: loc[0],
			EndOffset:   loc[1],
			StartLine:   anchorLine,
			EndLine:     lineOfEnd(li, loc[0], loc[1]),
		})
	}
	return matches, nil
}

// suppressed checks the matched line and the line above it for an inline
// suppression marker naming this rule (or naming no rule at all).
func suppressed(rawLines []string, startLine int, ruleID string) bool {
	for _, ln := range []int{startLine, startLine - 1} {
		if ln < 1 || ln > len(rawLines) {
			continue
		}
		line := rawLines[ln-1]
		idx := strings.Index(line, SuppressionMarker)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len(SuppressionMarker):])
		if rest == "" {
			return true
		}
		for _, id := range strings.Fields(rest) {
			if id == ruleID {
				return true
			}
		}
	}
	return false
}

// lineOfEnd translates an exclusive end offset into an inclusive end line.
func lineOfEnd(li *lineIndex, start, end int) int {
	if end <= start {
		return li.lineOf(start)
	}
	return li.lineOf(end - 1)
}

func captures(norm []byte, loc []int) []string {
	if len(loc) <= 2 {
		return nil
	}
	out := make([]string, 0, len(loc)/2-1)
	for i := 2; i < len(loc); i += 2 {
		if loc[i] < 0 {
			out = append(out, "")
			continue
		}
		out = append(out, string(norm[loc[i]:loc[i+1]]))
	}
	return out
}
