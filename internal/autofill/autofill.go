// File: internal/autofill/autofill.go
package autofill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/auth"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
	"github.com/xkilldash9x/pathfinder-autofill/internal/selector"
)

// DefaultPollInterval is how often Submit checks for an outcome.
const DefaultPollInterval = 200 * time.Millisecond

// ErrLoginRequired is returned by Fill when the form redirects to the login
// page and re-authentication fails.
var ErrLoginRequired = errors.New("form requires login and re-authentication failed")

// Authenticator logs a page in to the destination site.
type Authenticator interface {
	Authenticate(ctx context.Context, page schemas.Page) bool
}

// Downloader fetches a remote resource into w.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) (contentType string, err error)
}

// Orchestrator fills the add-asset form from a MetadataRecord and submits it.
type Orchestrator struct {
	site       config.SiteConfig
	auth       Authenticator
	downloader Downloader
	selectors  *selector.Resolver
	logger     *zap.Logger

	pollInterval time.Duration
	tempDir      string
}

// NewOrchestrator creates an Orchestrator. downloader may be nil, in which
// case images are never attached.
func NewOrchestrator(site config.SiteConfig, authenticator Authenticator, downloader Downloader, logger *zap.Logger) *Orchestrator {
	logger = logger.Named("autofill")
	return &Orchestrator{
		site:         site,
		auth:         authenticator,
		downloader:   downloader,
		selectors:    selector.NewResolver(logger),
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
}

// Fill opens the form and fills every field it can locate. Missing fields are
// skipped; only navigation and authentication faults are returned.
func (o *Orchestrator) Fill(ctx context.Context, page schemas.Page, rec schemas.MetadataRecord) error {
	logger := o.logger.With(zap.String("source_url", rec.URL))
	logger.Info("Filling form.")

	if err := o.openForm(ctx, page); err != nil {
		return err
	}

	o.fillText(ctx, page, selector.TitleField, rec.Title, logger)
	o.fillText(ctx, page, selector.DescriptionField, rec.Description, logger)
	o.fillText(ctx, page, selector.URLField, rec.URL, logger)
	o.fillTags(ctx, page, rec.Tags, logger)
	o.attachImage(ctx, page, rec.Images, logger)

	logger.Info("Form filled.")
	return nil
}

// openForm navigates to the form, logging in again if the site redirects to
// the login page.
func (o *Orchestrator) openForm(ctx context.Context, page schemas.Page) error {
	if err := page.Navigate(ctx, o.site.FormURL); err != nil {
		return fmt.Errorf("failed to open form: %w", err)
	}
	loc, err := page.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to read form location: %w", err)
	}
	if !auth.OnLoginPage(loc, o.site.LoginMarker) {
		return nil
	}

	o.logger.Info("Login required before filling the form.", zap.String("location", loc))
	if o.auth == nil || !o.auth.Authenticate(ctx, page) {
		return ErrLoginRequired
	}
	if err := page.Navigate(ctx, o.site.FormURL); err != nil {
		return fmt.Errorf("failed to reopen form after login: %w", err)
	}
	return nil
}

func (o *Orchestrator) fillText(ctx context.Context, page schemas.Page, slot selector.Slot, value string, logger *zap.Logger) {
	if strings.TrimSpace(value) == "" {
		return
	}
	m, ok := o.selectors.Resolve(ctx, slot, page)
	if !ok {
		logger.Warn("Field not found; skipping.", zap.String("slot", slot.Name))
		return
	}
	if err := page.Fill(ctx, m.Selector, value); err != nil {
		logger.Warn("Failed to fill field.", zap.String("slot", slot.Name), zap.String("selector", m.Selector), zap.Error(err))
	}
}

// fillTags enters each tag into the tag input and commits it with Enter.
func (o *Orchestrator) fillTags(ctx context.Context, page schemas.Page, tags []string, logger *zap.Logger) {
	if len(tags) == 0 {
		return
	}
	m, ok := o.selectors.Resolve(ctx, selector.TagsField, page)
	if !ok {
		logger.Warn("Tag input not found; skipping tags.", zap.Int("tags", len(tags)))
		return
	}
	for _, tag := range tags {
		if err := page.Fill(ctx, m.Selector, tag); err != nil {
			logger.Warn("Failed to enter tag.", zap.String("tag", tag), zap.String("selector", m.Selector), zap.Error(err))
			continue
		}
		if err := page.Press(ctx, m.Selector, "Enter"); err != nil {
			logger.Warn("Failed to commit tag.", zap.String("tag", tag), zap.String("selector", m.Selector), zap.Error(err))
		}
	}
}

// attachImage downloads the first image to a temporary file and attaches it
// to the form's file input. Failures are logged; the form is still usable.
func (o *Orchestrator) attachImage(ctx context.Context, page schemas.Page, images []string, logger *zap.Logger) {
	if len(images) == 0 || o.downloader == nil {
		return
	}
	m, ok := o.selectors.Resolve(ctx, selector.FileInput, page)
	if !ok {
		return
	}
	imageURL := images[0]
	if err := o.uploadFrom(ctx, page, m.Selector, imageURL); err != nil {
		logger.Error("Failed to upload image.", zap.String("image_url", imageURL), zap.String("selector", m.Selector), zap.Error(err))
		return
	}
	logger.Info("Attached image.", zap.String("image_url", imageURL))
}

func (o *Orchestrator) uploadFrom(ctx context.Context, page schemas.Page, sel, imageURL string) error {
	f, err := os.CreateTemp(o.tempDir, "pathfinder-image-*"+imageExt(imageURL, ""))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	contentType, err := o.downloader.Download(ctx, imageURL, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	// Some upload widgets check the extension, so match it to the content type.
	if ext := imageExt(imageURL, contentType); !strings.HasSuffix(name, ext) {
		renamed := strings.TrimSuffix(name, path.Ext(name)) + ext
		if err := os.Rename(name, renamed); err == nil {
			defer os.Remove(renamed)
			name = renamed
		}
	}
	return page.SetFiles(ctx, sel, []string{name})
}

// imageExt picks a file extension from the content type, then the URL path,
// defaulting to .jpg.
func imageExt(imageURL, contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/gif":
			return ".gif"
		case "image/webp":
			return ".webp"
		case "image/svg+xml":
			return ".svg"
		}
	}
	if u, err := url.Parse(imageURL); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg":
			return ext
		}
	}
	return ".jpg"
}

// Submit clicks the submit control and waits up to SubmitWait for either a
// success indicator that becomes visible after the click or the page leaving
// the form URL. It never retries.
func (o *Orchestrator) Submit(ctx context.Context, page schemas.Page) bool {
	m, ok := o.selectors.Resolve(ctx, selector.SubmitButton, page)
	if !ok {
		o.logger.Error("Could not find a submit button.")
		return false
	}
	// Indicators already on screen, such as a success banner left from an
	// earlier submission, do not confirm this one.
	before := o.selectors.Observe(ctx, selector.SuccessIndicator, page)
	o.logger.Info("Submitting form.", zap.String("selector", m.Selector))
	if err := page.Click(ctx, m.Selector); err != nil {
		o.logger.Error("Failed to click submit.", zap.String("selector", m.Selector), zap.Error(err))
		return false
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.site.SubmitWait)
	defer cancel()
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		if ind, ok := selector.Appeared(before, o.selectors.Observe(waitCtx, selector.SuccessIndicator, page)); ok {
			o.logger.Info("Success indicator found.", zap.String("selector", ind.Selector))
			return true
		}
		if loc, err := page.Location(waitCtx); err == nil && !strings.Contains(loc, o.site.FormURL) {
			o.logger.Info("Form submission redirected to a new page.", zap.String("location", loc))
			return true
		}
		select {
		case <-waitCtx.Done():
			o.logger.Error("Could not confirm form submission success.", zap.Duration("waited", o.site.SubmitWait))
			return false
		case <-ticker.C:
		}
	}
}
