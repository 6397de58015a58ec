// File: internal/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
	"github.com/xkilldash9x/pathfinder-autofill/internal/selector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPollInterval is how often the location is checked while waiting for a
// login to navigate away.
const DefaultPollInterval = 250 * time.Millisecond

var errFieldNotFound = errors.New("field not found")

// TokenStore caches the token of the last successful login.
type TokenStore interface {
	Get() (string, bool)
	Put(token string) bool
}

// Resolver tries every configured way of logging in to the destination site,
// in priority order, until one lands the page outside the login screen.
type Resolver struct {
	site      config.SiteConfig
	tokens    TokenStore
	env       config.Credentials
	run       config.Credentials
	selectors *selector.Resolver
	logger    *zap.Logger

	pollInterval time.Duration
	now          func() time.Time
}

// NewResolver creates a Resolver. env and run are the environment and run
// configuration credentials; either may be empty.
func NewResolver(site config.SiteConfig, tokens TokenStore, env, run config.Credentials, logger *zap.Logger) *Resolver {
	logger = logger.Named("auth")
	return &Resolver{
		site:         site,
		tokens:       tokens,
		env:          env,
		run:          run,
		selectors:    selector.NewResolver(logger),
		logger:       logger,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
}

// OnLoginPage reports whether location is the login screen.
func OnLoginPage(location, marker string) bool {
	return marker != "" && strings.Contains(location, marker)
}

// Strategies returns the attempts Authenticate would make, in order: the
// cached token, then environment token, API key and credentials, then the same
// three from the run configuration.
func (r *Resolver) Strategies() []Strategy {
	var out []Strategy
	if r.tokens != nil {
		if token, ok := r.tokens.Get(); ok {
			out = append(out, Strategy{Source: SourceCache, Method: MethodToken, creds: config.Credentials{AccessToken: token}})
		}
	}
	out = append(out, expandCredentials(SourceEnvironment, r.env)...)
	out = append(out, expandCredentials(SourceConfig, r.run)...)
	return out
}

// Authenticate logs page in. It returns true on the first strategy that
// succeeds and false once every strategy has failed.
func (r *Resolver) Authenticate(ctx context.Context, page schemas.Page) bool {
	strategies := r.Strategies()
	if len(strategies) == 0 {
		r.logger.Error("No usable credentials found in cache, environment or run configuration.")
		return false
	}

	for _, s := range strategies {
		if ctx.Err() != nil {
			r.logger.Warn("Authentication interrupted.", zap.Error(ctx.Err()))
			return false
		}
		logger := r.logger.With(zap.Stringer("strategy", s))
		logger.Info("Trying authentication strategy.")

		ok, err := r.attempt(ctx, page, s)
		if err != nil {
			logger.Warn("Authentication strategy failed.", zap.Error(err))
			continue
		}
		if ok {
			logger.Info("Authenticated.")
			return true
		}
		logger.Info("Authentication strategy did not leave the login page.")
	}
	r.logger.Error("All authentication methods failed.", zap.Int("strategies", len(strategies)))
	return false
}

func (r *Resolver) attempt(ctx context.Context, page schemas.Page, s Strategy) (bool, error) {
	switch s.Method {
	case MethodToken:
		return r.withToken(ctx, page, s.creds.AccessToken)
	case MethodAPIKey:
		return r.withForm(ctx, page, []fieldValue{{selector.APIKeyField, s.creds.APIKey}})
	case MethodCredentials:
		return r.withForm(ctx, page, []fieldValue{
			{selector.UsernameField, s.creds.Username},
			{selector.PasswordField, s.creds.Password},
		})
	default:
		return false, fmt.Errorf("unknown method %q", s.Method)
	}
}

// withToken injects token into localStorage and reloads. If the site still
// shows the login screen, the token is typed into a token field instead.
func (r *Resolver) withToken(ctx context.Context, page schemas.Page, token string) (bool, error) {
	if tokenExpired(token, r.now()) {
		return false, errors.New("token is a JWT past its exp claim")
	}
	if err := page.Navigate(ctx, r.site.LoginURL); err != nil {
		return false, err
	}
	if _, err := page.Evaluate(ctx, setItemScript(r.site.StorageTokenKey, token)); err != nil {
		return false, fmt.Errorf("failed to inject token: %w", err)
	}
	if err := page.Reload(ctx); err != nil {
		return false, err
	}

	loc, err := page.Location(ctx)
	if err != nil {
		return false, err
	}
	if !OnLoginPage(loc, r.site.LoginMarker) {
		r.cache(token)
		return true, nil
	}

	r.logger.Debug("Token injection kept the login page; trying the token field.")
	ok, err := r.submitForm(ctx, page, []fieldValue{{selector.TokenField, token}})
	if err != nil || !ok {
		return ok, err
	}
	r.cache(token)
	return true, nil
}

type fieldValue struct {
	slot  selector.Slot
	value string
}

// withForm fills the login form and, on success, caches whatever token the
// site stored.
func (r *Resolver) withForm(ctx context.Context, page schemas.Page, fields []fieldValue) (bool, error) {
	if err := page.Navigate(ctx, r.site.LoginURL); err != nil {
		return false, err
	}
	ok, err := r.submitForm(ctx, page, fields)
	if err != nil || !ok {
		return ok, err
	}
	if token := r.readToken(ctx, page); token != "" {
		r.cache(token)
	}
	return true, nil
}

// submitForm fills every field, clicks the login submit control and waits
// for the page to leave the login screen.
func (r *Resolver) submitForm(ctx context.Context, page schemas.Page, fields []fieldValue) (bool, error) {
	for _, f := range fields {
		m, ok := r.selectors.Resolve(ctx, f.slot, page)
		if !ok {
			return false, fmt.Errorf("%s: %w", f.slot.Name, errFieldNotFound)
		}
		if err := page.Fill(ctx, m.Selector, f.value); err != nil {
			return false, err
		}
	}
	submit, ok := r.selectors.Resolve(ctx, selector.LoginSubmit, page)
	if !ok {
		return false, fmt.Errorf("%s: %w", selector.LoginSubmit.Name, errFieldNotFound)
	}
	if err := page.Click(ctx, submit.Selector); err != nil {
		return false, err
	}
	return r.waitLeaveLogin(ctx, page)
}

// waitLeaveLogin polls the location until it no longer shows the login
// screen or LoginWait elapses.
func (r *Resolver) waitLeaveLogin(ctx context.Context, page schemas.Page) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.site.LoginWait)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		loc, err := page.Location(waitCtx)
		if err == nil && !OnLoginPage(loc, r.site.LoginMarker) {
			return true, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		case <-ticker.C:
		}
	}
}

// readToken returns the site's stored access token, or "" if there is none.
func (r *Resolver) readToken(ctx context.Context, page schemas.Page) string {
	raw, err := page.Evaluate(ctx, getItemScript(r.site.StorageTokenKey))
	if err != nil {
		r.logger.Debug("Could not read the stored access token.", zap.Error(err))
		return ""
	}
	var token *string
	if err := json.Unmarshal(raw, &token); err != nil || token == nil {
		return ""
	}
	return *token
}

func (r *Resolver) cache(token string) {
	if r.tokens == nil {
		return
	}
	if !r.tokens.Put(token) {
		r.logger.Warn("Authenticated, but the token could not be cached.")
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func setItemScript(key, value string) string {
	return fmt.Sprintf("localStorage.setItem(%s, %s)", quote(key), quote(value))
}

func getItemScript(key string) string {
	return fmt.Sprintf("localStorage.getItem(%s)", quote(key))
}
