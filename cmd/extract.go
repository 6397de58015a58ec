// File: cmd/extract.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/internal/extractor"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		rawURL     string
		outputPath string
		static     bool
	)

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract metadata from a URL without filling a form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := extractor.NormalizeURL(rawURL)
			if url == "" {
				return ErrURLRequired
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			a.logger.Info("Extracting data from URL.", zap.String("url", url), zap.Bool("static", static))

			c, err := initializeComponents(ctx, a.cfg, a.logger, componentOptions{Browser: !static})
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer c.Shutdown(ctx)

			rec := c.Extractor.Extract(ctx, url)
			if err := writeJSON(outputPath, rec); err != nil {
				return err
			}
			a.logger.Info("Extracted data saved.", zap.String("output", outputPath))

			printRecord(out, "Extraction Summary", rec)
			fmt.Fprintf(out, "Full data saved to: %s\n", outputPath)
			return nil
		},
	}

	extractCmd.Flags().StringVarP(&rawURL, "url", "u", "", "website or SharePoint URL to extract data from")
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "extracted_data.json", "path to the output JSON file")
	extractCmd.Flags().BoolVar(&static, "static", false, "use the static HTTP backend instead of a browser")
	_ = extractCmd.MarkFlagRequired("url")
	return extractCmd
}
