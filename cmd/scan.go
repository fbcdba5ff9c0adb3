package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/config"
	"github.com/xkilldash9x/verdict/internal/corpus"
	"github.com/xkilldash9x/verdict/internal/engine"
	"github.com/xkilldash9x/verdict/internal/observability"
	"github.com/xkilldash9x/verdict/internal/reporting"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Evaluates the loaded rule sets against a target directory or repository",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so CLI values override config file and env with the
			// right precedence.
			if err := viper.BindPFlag("engine.worker_concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			rulePaths, _ := cmd.Flags().GetStringSlice("rules")
			if len(rulePaths) == 0 {
				return fmt.Errorf("at least one --rules document is required")
			}
			sources, err := readRuleSources(rulePaths)
			if err != nil {
				return err
			}
			rules, err := ruleset.Load(sources)
			if err != nil {
				return fmt.Errorf("rule set rejected: %w", err)
			}

			evalCtx, err := evaluationContextFromFlags(cmd)
			if err != nil {
				return err
			}

			var provider corpus.Provider
			if rev, _ := cmd.Flags().GetString("git-rev"); rev != "" {
				provider = corpus.NewGitProvider(target, rev, cfg.Corpus, logger)
			} else {
				provider = corpus.NewFSProvider(target, cfg.Corpus, logger)
			}

			logger.Info("Starting scan",
				zap.String("target", target),
				zap.Int("rules", rules.Len()),
				zap.Int("concurrency", cfg.Engine.WorkerConcurrency),
			)

			eng := engine.New(rules, cfg, logger, engine.WithVersion(Version))
			report, err := eng.Run(ctx, evalCtx, provider)
			if err != nil {
				return err
			}

			format := viper.GetString("format")
			output := viper.GetString("output")
			reporter, err := reporting.New(format, output, logger)
			if err != nil {
				return err
			}
			if err := reporter.Write(report); err != nil {
				reporter.Close()
				return err
			}
			return reporter.Close()
		},
	}

	scanCmd.Flags().StringSlice("rules", nil, "rule document path (yaml or json); repeatable")
	scanCmd.Flags().String("format", "json", "output format: json or sarif")
	scanCmd.Flags().String("output", "", "output path (default stdout)")
	scanCmd.Flags().Int("concurrency", 0, "artifact scan concurrency (overrides config)")
	scanCmd.Flags().String("git-rev", "", "scan the committed tree of this revision instead of the working directory")
	scanCmd.Flags().String("language", "", "corpus language tag (e.g. go, python)")
	scanCmd.Flags().String("platform", "", "target platform tag (e.g. kubernetes, cisco-ios)")
	scanCmd.Flags().String("tier", "", "declared project tier (e.g. payment, prototype)")
	scanCmd.Flags().String("file-kind", "", "artifact kind tag (e.g. source, config, iac)")
	scanCmd.Flags().StringSlice("metric", nil, "declared measurement as name=value; repeatable")
	return scanCmd
}

// evaluationContextFromFlags builds the read-only per-run context.
func evaluationContextFromFlags(cmd *cobra.Command) (schemas.EvaluationContext, error) {
	evalCtx := schemas.EvaluationContext{}
	evalCtx.Language, _ = cmd.Flags().GetString("language")
	evalCtx.Platform, _ = cmd.Flags().GetString("platform")
	evalCtx.ProjectTier, _ = cmd.Flags().GetString("tier")
	evalCtx.FileKind, _ = cmd.Flags().GetString("file-kind")

	metrics, _ := cmd.Flags().GetStringSlice("metric")
	for _, m := range metrics {
		name, raw, ok := strings.Cut(m, "=")
		if !ok {
			return evalCtx, fmt.Errorf("invalid --metric %q, want name=value", m)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return evalCtx, fmt.Errorf("invalid --metric %q: %w", m, err)
		}
		if evalCtx.Metrics == nil {
			evalCtx.Metrics = make(map[string]float64)
		}
		evalCtx.Metrics[name] = value
	}
	return evalCtx, nil
}

// readRuleSources loads rule documents from disk, inferring the encoding
// from the file extension.
func readRuleSources(paths []string) ([]ruleset.Source, error) {
	sources := make([]ruleset.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rule document %s: %w", path, err)
		}
		var format ruleset.Format
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = ruleset.FormatYAML
		case ".json":
			format = ruleset.FormatJSON
		default:
			return nil, fmt.Errorf("rule document %s: unsupported extension (want .yaml, .yml or .json)", path)
		}
		sources = append(sources, ruleset.Source{Name: path, Format: format, Data: data})
	}
	return sources, nil
}

func init() {
	rootCmd.AddCommand(newScanCmd())
}
