// File: internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/auth"
	"github.com/xkilldash9x/pathfinder-autofill/internal/cache"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	//go:embed js/login.js
	loginScript string
	//go:embed js/auth_tokens.js
	authTokensScript string
	//go:embed js/form.js
	formScript string
	//go:embed js/click_probe.js
	clickProbeScript string
)

const outerHTMLScript = "document.documentElement.outerHTML"

// cookieMarkers select the cookies reported by the authTokens phase.
var cookieMarkers = []string{"token", "auth", "sid", "session"}

// Analyzer inspects the destination site's login and add-asset pages and
// records what it finds, one phase at a time.
type Analyzer struct {
	site     config.SiteConfig
	cfg      config.AnalysisConfig
	snapshot *cache.SnapshotStore
	logger   *zap.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// New creates an Analyzer. snapshot may be nil, in which case nothing is persisted.
func New(site config.SiteConfig, cfg config.AnalysisConfig, snapshot *cache.SnapshotStore, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		site:     site,
		cfg:      cfg,
		snapshot: snapshot,
		logger:   logger.Named("analyzer"),
		sleep:    sleepContext,
	}
}

// Run executes every phase in order. The returned snapshot holds whatever
// phases completed, even when an error stops the run early. An unreachable
// form page is a finding, not an error.
func (a *Analyzer) Run(ctx context.Context, page schemas.Page) (Snapshot, error) {
	var snap Snapshot
	a.logger.Info("Starting site analysis.", zap.String("login_url", a.site.LoginURL), zap.String("form_url", a.site.FormURL))

	login, err := a.analyzeLogin(ctx, page)
	if err != nil {
		return snap, fmt.Errorf("login phase: %w", err)
	}
	snap.Login = login
	a.persist(cache.PhaseLogin, login)

	tokens, err := a.analyzeAuthTokens(ctx, page)
	if err != nil {
		return snap, fmt.Errorf("auth token phase: %w", err)
	}
	snap.AuthTokens = tokens
	a.persist(cache.PhaseAuthTokens, tokens)

	form, err := a.analyzeForm(ctx, page)
	if err != nil {
		return snap, fmt.Errorf("form phase: %w", err)
	}
	snap.AddAssetForm = form
	a.persist(cache.PhaseAddAssetForm, form)
	if form.Blocked() {
		a.logger.Warn("Form page requires login; skipping selector analysis.", zap.String("location", form.URL))
		return snap, nil
	}

	sels, err := a.analyzeSelectors(ctx, page)
	if err != nil {
		return snap, fmt.Errorf("selector phase: %w", err)
	}
	snap.Selectors = sels
	a.persist(cache.PhaseSelectors, sels)

	a.logger.Info("Site analysis complete.")
	return snap, nil
}

func (a *Analyzer) persist(phase string, findings interface{}) {
	if a.snapshot == nil {
		return
	}
	if !a.snapshot.Put(phase, findings) {
		a.logger.Warn("Failed to persist analysis phase.", zap.String("phase", phase))
	}
}

func (a *Analyzer) analyzeLogin(ctx context.Context, page schemas.Page) (*LoginFindings, error) {
	a.logger.Info("Analyzing login page.")
	stop := page.CaptureRequests(ctx, a.site.APIPrefix)
	navErr := page.Navigate(ctx, a.site.LoginURL)
	var findings LoginFindings
	var evalErr error
	if navErr == nil {
		evalErr = evaluateInto(ctx, page, loginScript, &findings)
	}
	captured := stop()
	if navErr != nil {
		return nil, navErr
	}
	if evalErr != nil {
		return nil, evalErr
	}

	findings.NetworkRequests = NetworkFindings{Endpoints: endpoints(captured), Headers: map[string]string{}}
	if n := len(captured); n > 0 && captured[n-1].Headers != nil {
		findings.NetworkRequests.Headers = captured[n-1].Headers
	}
	if findings.LocalStorage == nil {
		findings.LocalStorage = map[string]string{}
	}
	if findings.SampleInputs == nil {
		findings.SampleInputs = map[string]string{}
	}
	a.logger.Debug("Login page analyzed.",
		zap.Int("forms", len(findings.Forms)),
		zap.Int("api_requests", len(captured)))
	return &findings, nil
}

func (a *Analyzer) analyzeAuthTokens(ctx context.Context, page schemas.Page) (*AuthTokenFindings, error) {
	a.logger.Info("Analyzing stored auth tokens.")
	var findings AuthTokenFindings
	if err := evaluateInto(ctx, page, authTokensScript, &findings); err != nil {
		return nil, err
	}
	if findings.LocalStorage == nil {
		findings.LocalStorage = map[string]string{}
	}
	if findings.SessionStorage == nil {
		findings.SessionStorage = map[string]string{}
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	findings.Cookies = []schemas.Cookie{}
	for _, c := range cookies {
		if containsAny(strings.ToLower(c.Name), cookieMarkers) {
			findings.Cookies = append(findings.Cookies, c)
		}
	}
	return &findings, nil
}

func (a *Analyzer) analyzeForm(ctx context.Context, page schemas.Page) (*FormFindings, error) {
	a.logger.Info("Analyzing add-asset form.")
	stop := page.CaptureRequests(ctx, a.site.APIPrefix)
	findings, err := a.inspectForm(ctx, page)
	captured := stop()
	if err != nil {
		return nil, err
	}
	if !findings.Blocked() {
		findings.APIEndpoints = endpoints(captured)
	}
	return findings, nil
}

// inspectForm runs while requests are being captured.
func (a *Analyzer) inspectForm(ctx context.Context, page schemas.Page) (*FormFindings, error) {
	if err := page.Navigate(ctx, a.site.FormURL); err != nil {
		return nil, err
	}
	loc, err := page.Location(ctx)
	if err != nil {
		return nil, err
	}
	if auth.OnLoginPage(loc, a.site.LoginMarker) {
		return &FormFindings{Error: ErrLoginRequired, URL: loc}, nil
	}

	var findings FormFindings
	if err := evaluateInto(ctx, page, formScript, &findings); err != nil {
		return nil, err
	}
	findings.URL = loc

	if a.cfg.ProbeClicks {
		var clicked int
		if err := evaluateInto(ctx, page, clickProbeScript, &clicked); err != nil {
			a.logger.Warn("Click probe failed.", zap.Error(err))
		} else {
			a.logger.Debug("Clicked form controls to surface API calls.", zap.Int("clicked", clicked))
			a.sleep(ctx, a.cfg.CaptureWait)
		}
	}
	return &findings, nil
}

func (a *Analyzer) analyzeSelectors(ctx context.Context, page schemas.Page) (*SelectorFindings, error) {
	a.logger.Info("Collecting form selectors.")
	var html string
	if err := evaluateInto(ctx, page, outerHTMLScript, &html); err != nil {
		return nil, err
	}
	return collectSelectors(ctx, html, a.logger)
}

func endpoints(captured []schemas.CapturedRequest) []Endpoint {
	out := make([]Endpoint, 0, len(captured))
	for _, r := range captured {
		out = append(out, Endpoint{URL: r.URL, Method: r.Method, Headers: r.Headers})
	}
	return out
}

func evaluateInto(ctx context.Context, page schemas.Page, script string, v interface{}) error {
	raw, err := page.Evaluate(ctx, script)
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("script returned no result")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
