// File: cmd/fill.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/internal/extractor"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		rawURL     string
		configPath string
		noSubmit   bool
	)

	fillCmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the add-asset form with metadata extracted from a URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := extractor.NormalizeURL(rawURL)
			if url == "" {
				return ErrURLRequired
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			logger := a.logger.With(zap.String("url", url))
			logger.Info("Filling form with data from URL.")

			c, err := initializeComponents(ctx, a.cfg, a.logger, componentOptions{RunConfigPath: configPath, Browser: true})
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer c.Shutdown(ctx)

			if !c.Auth.Authenticate(ctx, c.Page) {
				fmt.Fprintln(out, "\nAuthentication failed. Please check your credentials.")
				return ErrAuthenticationFailed
			}

			defaults := c.RunConfig.DefaultValues
			rec := c.Extractor.Extract(ctx, url).WithDefaults(defaults.Title, defaults.Description, defaults.Tags)
			printRecord(out, "Extracted Data", rec)

			if err := c.Filler.Fill(ctx, c.Page, rec); err != nil {
				logger.Error("Failed to fill form.", zap.Error(err))
				return fmt.Errorf("failed to fill form: %w", err)
			}

			if noSubmit {
				logger.Info("Form filled but not submitted.")
				fmt.Fprintln(out, "\nForm filled successfully. Not submitted as requested.")
				return nil
			}
			if !c.Filler.Submit(ctx, c.Page) {
				logger.Error("Form submission failed.")
				fmt.Fprintln(out, "\nForm submission failed. Check logs for details.")
				return ErrSubmissionFailed
			}
			logger.Info("Form submitted successfully.")
			fmt.Fprintln(out, "\nForm submitted successfully! ✓")
			return nil
		},
	}

	fillCmd.Flags().StringVarP(&rawURL, "url", "u", "", "website or SharePoint URL to extract data from")
	fillCmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the run configuration file")
	fillCmd.Flags().BoolVar(&noSubmit, "no-submit", false, "fill the form but do not submit it")
	_ = fillCmd.MarkFlagRequired("url")
	return fillCmd
}

