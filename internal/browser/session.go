// internal/browser/session.go
package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// Session is one browser tab. It implements schemas.Page and is meant to be
// driven by one caller at a time.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger

	closeOnce sync.Once
	onClose   func()
}

var _ schemas.Page = (*Session)(nil)

func newSession(tabCtx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger, onClose func()) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		ctx:     tabCtx,
		cancel:  cancel,
		cfg:     cfg,
		logger:  logger.With(zap.String("session_id", id)),
		onClose: onClose,
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// run executes actions on the tab, bounded by both the caller's ctx and timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, timeout)
		defer cancelTimeout()
	}
	return chromedp.Run(opCtx, actions...)
}

func (s *Session) settle() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.WaitReady("body", chromedp.ByQuery).Do(ctx); err != nil {
			return err
		}
		if s.cfg.SettleWait <= 0 {
			return nil
		}
		return chromedp.Sleep(s.cfg.SettleWait).Do(ctx)
	})
}

// Navigate loads url and waits for the body plus the settle period.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Navigate(url), s.settle()); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Reload reloads the current document.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Reload(), s.settle()); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// Location returns the current document URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Evaluate runs script in the page and returns its JSON value; undefined becomes null.
func (s *Session) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.Evaluate(script).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			msg := exc.Text
			if exc.Exception != nil && exc.Exception.Description != "" {
				msg = exc.Exception.Description
			}
			return fmt.Errorf("script exception: %s", msg)
		}
		if obj == nil || obj.Type == runtime.TypeUndefined || len(obj.Value) == 0 {
			out = json.RawMessage("null")
			return nil
		}
		out = json.RawMessage(obj.Value)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return out, nil
}

// evaluateInto runs script and decodes its result into v.
func (s *Session) evaluateInto(ctx context.Context, script string, v interface{}) error {
	raw, err := s.Evaluate(ctx, script)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Count returns the number of elements matching selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := s.evaluateInto(ctx, fmt.Sprintf("document.querySelectorAll(%s).length", quote(selector)), &n)
	return n, err
}

// CountVisible returns the number of rendered elements matching selector.
func (s *Session) CountVisible(ctx context.Context, selector string) (int, error) {
	var n int
	err := s.evaluateInto(ctx, fmt.Sprintf(countVisibleJS, quote(selector)), &n)
	return n, err
}

// FindByLabel implements schemas.Page.
func (s *Session) FindByLabel(ctx context.Context, text string) (string, bool, error) {
	var sel *string
	if err := s.evaluateInto(ctx, fmt.Sprintf(findByLabelJS, quote(text)), &sel); err != nil {
		return "", false, err
	}
	if sel == nil {
		return "", false, nil
	}
	return *sel, true, nil
}

// FindByText implements schemas.Page.
func (s *Session) FindByText(ctx context.Context, tagSelector, text string) (string, bool, error) {
	var sel *string
	if err := s.evaluateInto(ctx, fmt.Sprintf(findByTextJS, quote(tagSelector), quote(text), quote(refAttr)), &sel); err != nil {
		return "", false, err
	}
	if sel == nil {
		return "", false, nil
	}
	return *sel, true, nil
}

// Fill clears the element and types value into it.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	err := s.run(ctx, s.cfg.ActionTimeout,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

var namedKeys = map[string]string{
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Escape":    kb.Escape,
	"Backspace": kb.Backspace,
}

// Press sends a named key (Enter, Tab, Escape, Backspace) or literal text.
func (s *Session) Press(ctx context.Context, selector, key string) error {
	keys, ok := namedKeys[key]
	if !ok {
		keys = key
	}
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.SendKeys(selector, keys, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("press %s on %q failed: %w", key, selector, err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// SetFiles attaches local files to a file input.
func (s *Session) SetFiles(ctx context.Context, selector string, paths []string) error {
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("set files on %q failed: %w", selector, err)
	}
	return nil
}

// Cookies returns cookies for the current document.
func (s *Session) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	var raw []*network.Cookie
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	out := make([]schemas.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, schemas.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return out, nil
}

// CaptureRequests records requests whose URL contains urlFragment until stop is
// called. The listener lives on a child context that stop cancels, which detaches it.
func (s *Session) CaptureRequests(ctx context.Context, urlFragment string) func() []schemas.CapturedRequest {
	listenCtx, cancel := CombineContext(s.ctx, ctx)

	var (
		mu       sync.Mutex
		captured []schemas.CapturedRequest
	)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventRequestWillBeSent)
		if !ok || e.Request == nil || !strings.Contains(e.Request.URL, urlFragment) {
			return
		}
		req := schemas.CapturedRequest{
			URL:       e.Request.URL,
			Method:    e.Request.Method,
			Headers:   flattenHeaders(e.Request.Headers),
			PostData:  decodePostData(e.Request.PostDataEntries),
			Timestamp: time.Now(),
		}
		mu.Lock()
		captured = append(captured, req)
		mu.Unlock()
	})

	var once sync.Once
	return func() []schemas.CapturedRequest {
		once.Do(cancel)
		mu.Lock()
		defer mu.Unlock()
		return append([]schemas.CapturedRequest(nil), captured...)
	}
}

func flattenHeaders(h network.Headers) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func decodePostData(entries []*network.PostDataEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		if e == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(e.Bytes)
		if err != nil {
			continue
		}
		sb.Write(data)
	}
	return sb.String()
}

// Close closes the tab. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		// chromedp.Cancel closes the target and waits for it to go away.
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()
		select {
		case cerr := <-done:
			if cerr != nil && !errors.Is(cerr, context.Canceled) {
				err = fmt.Errorf("failed to close session %s: %w", s.id, cerr)
			}
		case <-ctx.Done():
			err = fmt.Errorf("timed out closing session %s: %w", s.id, ctx.Err())
		}
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Debug("Session closed.")
	})
	return err
}
