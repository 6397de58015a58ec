// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// Manager owns the browser process and the tabs opened on it.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// allocatorFlag is one Chrome command-line switch.
type allocatorFlag struct {
	name  string
	value interface{}
}

// allocatorFlags derives the Chrome switches from the browser settings.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
		{"disable-background-networking", true},
		{"disable-popup-blocking", true},
		{"headless", cfg.Headless},
	}
	if cfg.Headless {
		flags = append(flags, allocatorFlag{"hide-scrollbars", true}, allocatorFlag{"mute-audio", true})
	}
	if cfg.DisableCache {
		flags = append(flags,
			allocatorFlag{"disk-cache-size", "0"},
			allocatorFlag{"media-cache-size", "0"},
			allocatorFlag{"disable-cache", true},
		)
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			allocatorFlag{"ignore-certificate-errors", true},
			allocatorFlag{"allow-insecure-localhost", true},
		)
	}
	if cfg.UserAgent != "" {
		flags = append(flags, allocatorFlag{"user-agent", cfg.UserAgent})
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		flags = append(flags, allocatorFlag{"window-size", strconv.Itoa(w) + "," + strconv.Itoa(h)})
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if key == "" {
			continue
		}
		if found {
			flags = append(flags, allocatorFlag{key, value})
		} else {
			flags = append(flags, allocatorFlag{key, true})
		}
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	flags := allocatorFlags(cfg)
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags))
	for _, f := range flags {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	return opts
}

// NewManager launches the browser. The process lives until Shutdown or until ctx is canceled.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	logger = logger.Named("browser")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	sugar := logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(sugar.Debugf),
		chromedp.WithLogf(sugar.Debugf),
	)

	// The first Run on a fresh context starts the browser.
	startCtx, cancelStart := context.WithTimeout(browserCtx, cfg.NavigationTimeout)
	defer cancelStart()
	if err := chromedp.Run(startCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("Browser started.", zap.Bool("headless", cfg.Headless))
	return &Manager{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sessions:      make(map[string]*Session),
	}, nil
}

// NewSession opens a new tab with network events enabled.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(m.browserCtx)

	initCtx, cancelInit := CombineContext(tabCtx, ctx)
	defer cancelInit()
	if err := chromedp.Run(initCtx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	var s *Session
	s = newSession(tabCtx, cancel, m.cfg, m.logger, func() {
		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
	})

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Debug("Session opened.", zap.String("session_id", s.ID()))
	return s, nil
}

// Shutdown closes every open tab concurrently, then the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range open {
		s := s
		g.Go(func() error { return s.Close(gctx) })
	}
	err := g.Wait()

	m.browserCancel()
	m.allocCancel()
	m.logger.Info("Browser shut down.", zap.Int("sessions_closed", len(open)))
	return err
}
