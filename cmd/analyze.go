// File: cmd/analyze.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/internal/analyzer"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var outputPath string

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the structure of the PathFinder site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			a.logger.Info("Analyzing site structure.", zap.String("login_url", a.cfg.Site().LoginURL))

			c, err := initializeComponents(ctx, a.cfg, a.logger, componentOptions{Browser: true})
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer c.Shutdown(ctx)

			fmt.Fprintln(out, "Analyzing PathFinder website structure...")
			snap, err := c.Analyzer.Run(ctx, c.Page)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			if err := writeJSON(outputPath, snap); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nAnalysis complete! Results saved to %s\n", outputPath)
			printSummary(out, analyzer.Summarize(snap))
			return nil
		},
	}

	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "analysis.json", "path to the output JSON file")
	return analyzeCmd
}
