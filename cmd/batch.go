// File: cmd/batch.go
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/internal/batch"
	"github.com/xkilldash9x/pathfinder-autofill/internal/extractor"
	"github.com/xkilldash9x/pathfinder-autofill/internal/store"
)

// ErrBatchIncomplete is returned when at least one URL failed.
var ErrBatchIncomplete = errors.New("batch finished with failures")

func newBatchCmd(a *app) *cobra.Command {
	var (
		inputPath  string
		configPath string
		outputPath string
		skipErrors bool
	)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Fill and submit the form for every URL in a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			logger := a.logger.With(zap.String("input", inputPath))

			urls, err := readBatchInput(inputPath)
			if err != nil {
				return err
			}
			logger.Info("Found URLs to process.", zap.Int("count", len(urls)))

			c, err := initializeComponents(ctx, a.cfg, a.logger, componentOptions{RunConfigPath: configPath, Browser: true, History: true})
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer c.Shutdown(ctx)

			runner := batch.NewRunner(c.Page, c.Auth, c.Extractor, c.Filler, c.RunConfig.DefaultValues, a.logger)
			runner.SkipErrors = skipErrors
			runner.Progress = out

			started := time.Now()
			res, runErr := runner.Run(ctx, urls)
			if errors.Is(runErr, batch.ErrAuthenticationFailed) {
				fmt.Fprintln(out, "\nAuthentication failed. Please check your credentials.")
				return ErrAuthenticationFailed
			}
			finished := time.Now()

			// Partial results of an interrupted run are still written.
			if err := batch.WriteResults(outputPath, res); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nBatch processing complete. Results saved to %s\n", outputPath)
			fmt.Fprintf(out, "Successful: %d, Failed: %d\n", len(res.Successful), len(res.Failed))

			if c.History != nil {
				run := historyRun(inputPath, started, finished, res)
				if id, err := c.History.RecordBatch(ctx, run); err != nil {
					logger.Warn("Failed to record batch history.", zap.Error(err))
				} else {
					logger.Info("Recorded batch history.", zap.String("run_id", id))
				}
			}

			if runErr != nil {
				return runErr
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d of %d URLs failed: %w", len(res.Failed), len(urls), ErrBatchIncomplete)
			}
			return nil
		},
	}

	batchCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a CSV file with URLs")
	batchCmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the run configuration file")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "batch_results.json", "path to the output JSON file")
	batchCmd.Flags().BoolVar(&skipErrors, "skip-errors", false, "continue with the next URL after a failure")
	_ = batchCmd.MarkFlagRequired("input")
	return batchCmd
}

// readBatchInput reads and normalizes the URLs of a batch input file.
func readBatchInput(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to open batch input: %w", err)
	}
	defer f.Close()

	raw, err := batch.ReadURLs(f)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		urls = append(urls, extractor.NormalizeURL(u))
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoURLs, path)
	}
	return urls, nil
}

// historyRun converts the outcomes, already in input order, into a history run.
// URLs never reached are left out.
func historyRun(input string, started, finished time.Time, res batch.Results) store.Run {
	run := store.Run{Input: input, StartedAt: started, FinishedAt: finished}
	for _, o := range res.Outcomes {
		run.Results = append(run.Results, store.Result{URL: o.URL, Title: o.Title, Error: o.Error, Succeeded: o.Succeeded})
	}
	return run
}
