// File: internal/network/httpclient.go
package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// Transport defaults for the static-fetch client.
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 20 * time.Second
	DefaultIdleConnTimeout       = 30 * time.Second
	DefaultMaxIdleConnsPerHost   = 4
	DefaultMaxRedirects          = 10

	// MaxBodySize bounds how much of a document or image is read.
	MaxBodySize = 20 << 20
)

// ErrBodyTooLarge is returned when a response exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Document is a fetched HTML page, decoded to UTF-8.
type Document struct {
	// FinalURL is the URL after redirects; it is the base for relative references.
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client performs politely rate-limited GETs with browser-like headers. It
// follows redirects and decodes compressed and non-UTF-8 bodies.
// Safe for concurrent use.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     config.NetworkConfig
	logger  *zap.Logger
}

// NewHTTPTransport builds the HTTP/2-capable transport used by Client.
func NewHTTPTransport(cfg config.NetworkConfig, logger *zap.Logger) *http.Transport {
	dialer := &net.Dialer{Timeout: DefaultDialTimeout, KeepAlive: DefaultKeepAliveInterval}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.IgnoreTLSErrors,
		},
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		// Decompression is handled by compressionTransport so brotli is covered too.
		DisableCompression: true,
		ForceAttemptHTTP2:  true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
	}
	return transport
}

// NewClient creates a Client from the network settings.
func NewClient(cfg config.NetworkConfig, logger *zap.Logger) *Client {
	logger = logger.Named("httpclient")
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		http: &http.Client{
			Transport: newCompressionTransport(NewHTTPTransport(cfg, logger)),
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= DefaultMaxRedirects {
					return fmt.Errorf("stopped after %d redirects", DefaultMaxRedirects)
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		cfg:     cfg,
		logger:  logger,
	}
}

func (c *Client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	return resp, nil
}

// FetchDocument GETs an HTML page. Non-2xx responses are errors.
func (c *Client) FetchDocument(ctx context.Context, url string) (*Document, error) {
	resp, err := c.get(ctx, url, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	utf8Body, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		c.logger.Debug("Unknown charset; reading body as-is.", zap.String("url", url), zap.Error(err))
		utf8Body = resp.Body
	}
	body, err := readLimited(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	doc := &Document{
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}
	c.logger.Debug("Fetched document.",
		zap.String("url", url),
		zap.String("final_url", doc.FinalURL),
		zap.Int("bytes", len(body)))
	return doc, nil
}

// Download streams the resource at url into w and returns its content type.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (string, error) {
	resp, err := c.get(ctx, url, "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	n, err := io.Copy(w, io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	if n > MaxBodySize {
		return "", ErrBodyTooLarge
	}
	return resp.Header.Get("Content-Type"), nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}
