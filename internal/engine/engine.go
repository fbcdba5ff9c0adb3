// Package engine orchestrates the scan pipeline: bind context, scan the
// corpus with a worker pool, aggregate, summarize. The pipeline is a linear
// state machine with no cycles; a failed load or context bind halts before
// any scanning, while per-artifact failures degrade to diagnostics and never
// revert the pipeline.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/aggregate"
	"github.com/xkilldash9x/verdict/internal/config"
	"github.com/xkilldash9x/verdict/internal/corpus"
	"github.com/xkilldash9x/verdict/internal/matcher"
	"github.com/xkilldash9x/verdict/internal/reporting"
	"github.com/xkilldash9x/verdict/internal/rollup"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

// State names one stage of the pipeline. Transitions are one-way:
// Loaded -> ContextBound -> Scanned -> Aggregated -> Summarized.
type State string

// Pipeline states in order.
const (
	StateLoaded       State = "loaded"
	StateContextBound State = "context_bound"
	StateScanned      State = "scanned"
	StateAggregated   State = "aggregated"
	StateSummarized   State = "summarized"
)

// Engine runs rule sets against corpora. The compiled rule set is read-only
// and shared by reference across all scan workers.
type Engine struct {
	rules   *ruleset.RuleSet
	cfg     *config.Config
	scanner *matcher.Scanner
	logger  *zap.Logger
	version string
}

// Option configures an Engine.
type Option func(*Engine)

// WithScanner injects a custom pattern scanner. Primarily used by tests to
// control the matcher clock.
func WithScanner(s *matcher.Scanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// WithVersion stamps reports with the tool version.
func WithVersion(v string) Option {
	return func(e *Engine) { e.version = v }
}

// New creates an Engine over a loaded rule set.
func New(rules *ruleset.RuleSet, cfg *config.Config, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		rules:  rules,
		cfg:    cfg,
		logger: logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scanner == nil {
		e.scanner = matcher.New(e.cfg.Matcher, e.logger)
	}
	return e
}

// artifactTask is one unit of scan work: an artifact, or a read failure to
// degrade into a diagnostic.
type artifactTask struct {
	art     schemas.Artifact
	readErr error
}

// workerResult is one worker's private output, merged only after the join
// barrier so the scan hot path takes no locks.
type workerResult struct {
	matches     []matcher.RawMatch
	diagnostics []schemas.Finding
	suppressed  int
}

// Run executes the full pipeline for one evaluation context and corpus.
// It either returns a complete report (possibly diagnostic-augmented) or an
// error before any report exists; never a silently truncated report.
func (e *Engine) Run(ctx context.Context, evalCtx schemas.EvaluationContext, provider corpus.Provider) (*schemas.Report, error) {
	scanID := uuid.New().String()
	logger := e.logger.With(zap.String("scan_id", scanID))

	state := StateLoaded
	advance := func(next State) {
		logger.Debug("Pipeline state transition",
			zap.String("from", string(state)), zap.String("to", string(next)))
		state = next
	}

	// Bind the evaluation context: applicability filtering and severity
	// resolution. Failure here is fatal, nothing has been scanned.
	resolved, err := e.rules.Resolve(evalCtx)
	if err != nil {
		return nil, fmt.Errorf("context binding failed: %w", err)
	}
	advance(StateContextBound)
	logger.Info("Context bound",
		zap.Int("eligible_rules", len(resolved)),
		zap.Int("total_rules", e.rules.Len()))

	rulesByID := make(map[string]ruleset.ResolvedRule, len(resolved))
	for _, r := range resolved {
		rulesByID[r.ID()] = r
	}

	results, err := e.scanCorpus(ctx, resolved, evalCtx, provider)
	if err != nil {
		return nil, err
	}
	advance(StateScanned)

	var (
		allMatches  []matcher.RawMatch
		diagnostics []schemas.Finding
		suppressed  int
	)
	for _, r := range results {
		allMatches = append(allMatches, r.matches...)
		diagnostics = append(diagnostics, r.diagnostics...)
		suppressed += r.suppressed
	}
	logger.Info("Corpus scanned",
		zap.Int("raw_matches", len(allMatches)),
		zap.Int("diagnostics", len(diagnostics)),
		zap.Int("suppressed", suppressed))

	findings, err := aggregate.Aggregate(allMatches, rulesByID, e.cfg.Aggregator.OverlapFraction)
	if err != nil {
		// Aggregation invariant violations are programming bugs, never
		// suppressed into the report.
		return nil, err
	}
	findings = append(findings, diagnostics...)
	advance(StateAggregated)

	summary := rollup.Summarize(findings, resolved, evalCtx, suppressed)
	advance(StateSummarized)

	report := &schemas.Report{
		ScanID:      scanID,
		ToolVersion: e.version,
		GeneratedAt: time.Now().UTC(),
		Context:     evalCtx,
		Findings:    reporting.SortFindings(findings),
		Summary:     summary,
	}
	logger.Info("Run complete",
		zap.Int("findings", len(report.Findings)),
		zap.Int("breaches", len(summary.Breaches)))
	return report, nil
}

// scanCorpus fans artifacts out to a bounded worker pool. Each worker keeps
// a private result; results merge only after all workers complete.
func (e *Engine) scanCorpus(ctx context.Context, resolved []ruleset.ResolvedRule, evalCtx schemas.EvaluationContext, provider corpus.Provider) ([]workerResult, error) {
	concurrency := e.cfg.Engine.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan artifactTask)
	results := make([]workerResult, concurrency)

	for i := 0; i < concurrency; i++ {
		res := &results[i]
		g.Go(func() error {
			for {
				// Cooperative cancellation between artifacts.
				select {
				case <-gctx.Done():
					return gctx.Err()
				case task, ok := <-tasks:
					if !ok {
						return nil
					}
					if err := e.scanOne(gctx, task, resolved, evalCtx, res); err != nil {
						return err
					}
				}
			}
		})
	}

	g.Go(func() error {
		defer close(tasks)
		return provider.Artifacts(gctx, func(art schemas.Artifact, readErr error) error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case tasks <- artifactTask{art: art, readErr: readErr}:
				return nil
			}
		})
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return results, nil
}

// scanOne processes a single artifact into the worker's private result.
func (e *Engine) scanOne(ctx context.Context, task artifactTask, resolved []ruleset.ResolvedRule, evalCtx schemas.EvaluationContext, res *workerResult) error {
	if task.readErr != nil {
		res.diagnostics = append(res.diagnostics,
			diagnosticFinding(task.art.Path, "", fmt.Sprintf("artifact unreadable: %v", task.readErr)))
		return nil
	}

	scanRes, err := e.scanner.Scan(ctx, resolved, task.art, evalCtx.Language)
	if err != nil {
		return err
	}

	res.matches = append(res.matches, scanRes.Matches...)
	res.suppressed += scanRes.Suppressed
	for _, scanErr := range scanRes.Errors {
		res.diagnostics = append(res.diagnostics,
			diagnosticFinding(scanErr.Path, scanErr.RuleID,
				fmt.Sprintf("rule %s abandoned: %s", scanErr.RuleID, scanErr.Message)))
	}
	return nil
}

// diagnosticFinding builds the info-severity finding that records degraded
// coverage for one artifact. The rule id participates in the fingerprint so
// two abandoned rules on the same artifact keep distinct identities.
func diagnosticFinding(path, ruleID, message string) schemas.Finding {
	loc := schemas.Location{Path: path}
	fpCategory := schemas.DiagnosticCategory
	if ruleID != "" {
		fpCategory += ":" + ruleID
	}
	f := schemas.Finding{
		ID:         schemas.Fingerprint(fpCategory, loc),
		Category:   schemas.DiagnosticCategory,
		Severity:   schemas.SeverityInfo,
		Location:   loc,
		Message:    message,
		Diagnostic: true,
	}
	if ruleID != "" {
		f.RuleIDs = []string{ruleID}
	}
	return f
}
