// File: internal/extractor/extractor.go
package extractor

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// Profile selects which page conventions drive extraction.
type Profile string

const (
	ProfileGeneric  Profile = "generic"
	ProfileDocument Profile = "document"
)

// Backend names, as logged.
const (
	backendRender = "render"
	backendStatic = "static"
)

var errNoRenderSession = errors.New("document profile requires a rendering session")

// Pipeline produces a MetadataRecord from a URL using a live page when one is
// available and a static fetch otherwise.
type Pipeline struct {
	cfg     config.ExtractionConfig
	page    schemas.Page
	fetcher Fetcher
	norm    normalizer
	logger  *zap.Logger
}

// NewPipeline creates a Pipeline. A nil page selects the static backend for
// every URL; the fetcher is also the fallback for generic pages.
func NewPipeline(cfg config.ExtractionConfig, page schemas.Page, fetcher Fetcher, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		page:    page,
		fetcher: fetcher,
		norm:    normalizer{cfg: cfg},
		logger:  logger.Named("extractor"),
	}
}

// NormalizeURL trims raw and adds an https scheme when none is present.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimLeft(raw, "/")
	}
	return raw
}

// ProfileFor classifies rawURL by host.
func (p *Pipeline) ProfileFor(rawURL string) Profile {
	if hostMatches(rawURL, p.cfg.DocumentHosts) {
		return ProfileDocument
	}
	return ProfileGeneric
}

func hostMatches(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		if h != "" && strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// Extract never fails: any unrecoverable fault yields a record carrying only
// the URL.
func (p *Pipeline) Extract(ctx context.Context, rawURL string) schemas.MetadataRecord {
	profile := p.ProfileFor(rawURL)
	logger := p.logger.With(zap.String("url", rawURL), zap.String("profile", string(profile)))
	logger.Info("Extracting metadata.")

	var (
		rec schemas.MetadataRecord
		err error
	)
	switch profile {
	case ProfileDocument:
		rec, err = p.extractDocument(ctx, rawURL, logger)
	default:
		rec, err = p.extractGeneric(ctx, rawURL, logger)
	}
	if err != nil {
		logger.Error("Extraction failed; returning an empty record.", zap.Error(err))
		return schemas.EmptyRecord(rawURL)
	}
	logger.Info("Extraction complete.",
		zap.Int("tags", len(rec.Tags)),
		zap.Int("images", len(rec.Images)),
		zap.Bool("empty", rec.IsEmpty()))
	return rec
}

func (p *Pipeline) extractGeneric(ctx context.Context, rawURL string, logger *zap.Logger) (schemas.MetadataRecord, error) {
	if p.page != nil {
		snap, err := p.renderGeneric(ctx, rawURL)
		if err == nil {
			return p.finishGeneric(rawURL, snap, logger), nil
		}
		if ctx.Err() != nil {
			return schemas.MetadataRecord{}, ctx.Err()
		}
		logger.Warn("Render backend failed; retrying with static fetch.", zap.Error(err))
	}
	if p.fetcher == nil {
		return schemas.MetadataRecord{}, errors.New("no static fetcher configured")
	}
	snap, err := staticSnapshot(ctx, p.fetcher, rawURL, p.cfg.ArticleMetadata)
	if err != nil {
		return schemas.MetadataRecord{}, err
	}
	logger.Debug("Extracted via backend.", zap.String("backend", backendStatic))
	return p.finishGeneric(rawURL, snap, logger), nil
}

func (p *Pipeline) renderGeneric(ctx context.Context, rawURL string) (*pageSnapshot, error) {
	if err := p.page.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	snap, err := probePage(ctx, p.page, p.cfg.ArticleMetadata)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Extracted via backend.", zap.String("backend", backendRender), zap.String("url", rawURL))
	return snap, nil
}

func (p *Pipeline) finishGeneric(rawURL string, snap *pageSnapshot, logger *zap.Logger) schemas.MetadataRecord {
	rec := p.norm.generic(rawURL, snap)
	if !p.cfg.ArticleMetadata {
		return rec
	}
	meta, err := articleMetadata(snap.HTML, snap.Location)
	if err != nil {
		logger.Debug("Readability could not parse the page.", zap.Error(err))
		return rec
	}
	if len(meta) > 0 {
		rec.Metadata = meta
	}
	return rec
}

func (p *Pipeline) extractDocument(ctx context.Context, rawURL string, logger *zap.Logger) (schemas.MetadataRecord, error) {
	if p.page == nil {
		return schemas.MetadataRecord{}, errNoRenderSession
	}
	if err := p.page.Navigate(ctx, rawURL); err != nil {
		return schemas.MetadataRecord{}, err
	}
	loc, err := p.page.Location(ctx)
	if err != nil {
		return schemas.MetadataRecord{}, err
	}
	if hostMatches(loc, p.cfg.IdentityProviderHosts) {
		logger.Error("Document site redirected to its identity provider; authentication is required.",
			zap.String("location", loc))
		return schemas.EmptyRecord(rawURL), nil
	}
	snap, err := probePage(ctx, p.page, false)
	if err != nil {
		return schemas.MetadataRecord{}, err
	}
	return p.norm.document(rawURL, snap), nil
}
