// File: internal/batch/batch.go
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SubmissionFailed is the error recorded for a URL whose submit could not be confirmed.
const SubmissionFailed = "Form submission failed"

// ErrAuthenticationFailed is returned by Run when the single up-front login fails.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Authenticator logs a page in to the destination site.
type Authenticator interface {
	Authenticate(ctx context.Context, page schemas.Page) bool
}

// Extractor turns a URL into a MetadataRecord. It never fails; an empty
// record stands for an unreachable source.
type Extractor interface {
	Extract(ctx context.Context, url string) schemas.MetadataRecord
}

// Filler fills and submits the add-asset form.
type Filler interface {
	Fill(ctx context.Context, page schemas.Page, rec schemas.MetadataRecord) error
	Submit(ctx context.Context, page schemas.Page) bool
}

// Success is a URL whose form was submitted.
type Success struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Failure is a URL that could not be processed. Title is set only when the
// failure happened after a successful fill.
type Failure struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Error string `json:"error"`
}

// Outcome is one attempted URL at its position in the input.
type Outcome struct {
	Index     int
	URL       string
	Title     string
	Error     string
	Succeeded bool
}

// Results is the batch outcome, written as the results file.
type Results struct {
	Successful []Success `json:"successful"`
	Failed     []Failure `json:"failed"`
	// Outcomes lists every attempted URL in input order, duplicates included.
	Outcomes []Outcome `json:"-"`
}

// Runner processes URLs one after another on a single page.
type Runner struct {
	page      schemas.Page
	auth      Authenticator
	extractor Extractor
	filler    Filler
	defaults  config.DefaultValues
	logger    *zap.Logger

	// SkipErrors continues with the next URL after a failure instead of stopping.
	SkipErrors bool
	// Progress receives one human-readable line per step; nil is silent.
	Progress io.Writer
}

// NewRunner creates a Runner.
func NewRunner(page schemas.Page, auth Authenticator, extractor Extractor, filler Filler, defaults config.DefaultValues, logger *zap.Logger) *Runner {
	return &Runner{
		page:      page,
		auth:      auth,
		extractor: extractor,
		filler:    filler,
		defaults:  defaults,
		logger:    logger.Named("batch"),
	}
}

// Run authenticates once, then extracts, fills and submits each URL in order.
// Results hold every URL attempted; an error is returned only when the login
// fails or ctx ends the run early.
func (r *Runner) Run(ctx context.Context, urls []string) (Results, error) {
	res := Results{Successful: []Success{}, Failed: []Failure{}}
	r.logger.Info("Starting batch.", zap.Int("urls", len(urls)), zap.Bool("skip_errors", r.SkipErrors))

	if !r.auth.Authenticate(ctx, r.page) {
		return res, ErrAuthenticationFailed
	}

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Batch interrupted.", zap.Int("processed", i), zap.Error(err))
			return res, err
		}
		r.printf("\n[%d/%d] Processing %s\n", i+1, len(urls), url)
		logger := r.logger.With(zap.String("url", url), zap.Int("index", i+1))

		ok := r.process(ctx, i, url, &res, logger)
		if !ok && !r.SkipErrors {
			r.printf("Stopping batch processing due to error.\n")
			logger.Warn("Stopping batch after failure.")
			break
		}
	}

	r.logger.Info("Batch complete.", zap.Int("successful", len(res.Successful)), zap.Int("failed", len(res.Failed)))
	return res, nil
}

func (r *Runner) process(ctx context.Context, index int, url string, res *Results, logger *zap.Logger) bool {
	rec := r.extractor.Extract(ctx, url).
		WithDefaults(r.defaults.Title, r.defaults.Description, r.defaults.Tags)
	r.printf("Title: %s\n", orNA(rec.Title))

	if err := r.filler.Fill(ctx, r.page, rec); err != nil {
		logger.Error("Failed to fill form.", zap.Error(err))
		r.printf("✗ Error: %v\n", err)
		res.Failed = append(res.Failed, Failure{URL: url, Error: err.Error()})
		res.Outcomes = append(res.Outcomes, Outcome{Index: index, URL: url, Error: err.Error()})
		return false
	}
	if !r.filler.Submit(ctx, r.page) {
		logger.Error("Failed to submit form.")
		r.printf("✗ Submission failed\n")
		res.Failed = append(res.Failed, Failure{URL: url, Title: rec.Title, Error: SubmissionFailed})
		res.Outcomes = append(res.Outcomes, Outcome{Index: index, URL: url, Title: rec.Title, Error: SubmissionFailed})
		return false
	}

	logger.Info("Submitted form.")
	r.printf("✓ Submission successful\n")
	res.Successful = append(res.Successful, Success{URL: url, Title: rec.Title})
	res.Outcomes = append(res.Outcomes, Outcome{Index: index, URL: url, Title: rec.Title, Succeeded: true})
	return true
}

func (r *Runner) printf(format string, args ...interface{}) {
	if r.Progress != nil {
		fmt.Fprintf(r.Progress, format, args...)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// WriteResults writes res to path as indented JSON.
func WriteResults(path string, res Results) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch results: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write batch results: %w", err)
	}
	return nil
}
