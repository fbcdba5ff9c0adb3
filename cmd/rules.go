package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verdict/internal/observability"
	"github.com/xkilldash9x/verdict/internal/ruleset"
)

// newRulesCmd groups rule-document utilities.
func newRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Rule document utilities",
	}
	rulesCmd.AddCommand(newRulesLintCmd())
	return rulesCmd
}

// newRulesLintCmd validates rule documents without scanning anything.
// The loader applies the same fail-closed validation a scan would.
func newRulesLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [documents...]",
		Short: "Loads and validates rule documents, reporting the first error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			sources, err := readRuleSources(args)
			if err != nil {
				return err
			}
			rules, err := ruleset.Load(sources)
			if err != nil {
				return fmt.Errorf("rule set rejected: %w", err)
			}

			logger.Info("Rule documents valid",
				zap.Int("documents", len(sources)),
				zap.Int("rules", rules.Len()),
				zap.Int("categories", len(rules.Categories())),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d rules across %d categories\n",
				rules.Len(), len(rules.Categories()))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newRulesCmd())
}
