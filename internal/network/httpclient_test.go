// internal/network/httpclient_test.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

func testNetworkConfig() config.NetworkConfig {
	return config.NetworkConfig{
		Timeout:   5 * time.Second,
		UserAgent: config.DefaultUserAgent,
		RateBurst: 1,
	}
}

func TestFetchDocument_HeadersAndFinalURL(t *testing.T) {
	t.Parallel()
	var gotUA, gotAE string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final/page", http.StatusFound)
	})
	mux.HandleFunc("/final/page", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAE = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<title>ok</title>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testNetworkConfig(), zaptest.NewLogger(t))
	doc, err := c.FetchDocument(context.Background(), srv.URL+"/start")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/final/page", doc.FinalURL, "redirects are followed and the final URL reported")
	assert.Equal(t, "<title>ok</title>", string(doc.Body))
	assert.Equal(t, config.DefaultUserAgent, gotUA)
	assert.Contains(t, gotAE, "br")
}

func TestFetchDocument_Non2xx(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(testNetworkConfig(), zaptest.NewLogger(t))
	_, err := c.FetchDocument(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchDocument_Charset(t *testing.T) {
	t.Parallel()
	// "café" in ISO-8859-1.
	latin1 := []byte{'<', 'p', '>', 'c', 'a', 'f', 0xe9, '<', '/', 'p', '>'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write(latin1)
	}))
	defer srv.Close()

	c := NewClient(testNetworkConfig(), zaptest.NewLogger(t))
	doc, err := c.FetchDocument(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", string(doc.Body))
}

func compressed(t *testing.T, encoding, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	default:
		t.Fatalf("unknown encoding %s", encoding)
	}
	_, err := io.WriteString(w, body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFetchDocument_Decompression(t *testing.T) {
	t.Parallel()
	const page = "<html><body>compressed body</body></html>"

	for _, enc := range []string{"gzip", "br", "deflate"} {
		enc := enc
		t.Run(enc, func(t *testing.T) {
			t.Parallel()
			payload := compressed(t, enc, page)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", enc)
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write(payload)
			}))
			defer srv.Close()

			c := NewClient(testNetworkConfig(), zaptest.NewLogger(t))
			doc, err := c.FetchDocument(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, page, string(doc.Body))
		})
	}
}

func TestDecompressResponse_RawDeflateAndUnsupported(t *testing.T) {
	var raw bytes.Buffer
	fw, err := flate.NewWriter(&raw, flate.DefaultCompression)
	require.NoError(t, err)
	_, _ = io.WriteString(fw, "raw deflate")
	require.NoError(t, fw.Close())

	resp := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"deflate"}},
		Body:   io.NopCloser(bytes.NewReader(raw.Bytes())),
	}
	require.NoError(t, decompressResponse(resp))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "raw deflate", string(got))
	assert.True(t, resp.Uncompressed)
	assert.NoError(t, resp.Body.Close())

	bad := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"zstd"}},
		Body:   io.NopCloser(strings.NewReader("x")),
	}
	assert.Error(t, decompressResponse(bad))
}

func TestDownload(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer srv.Close()

	c := NewClient(testNetworkConfig(), zaptest.NewLogger(t))
	var buf bytes.Buffer
	ct, err := c.Download(context.Background(), srv.URL+"/a.png", &buf)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "\x89PNG fake", buf.String())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cfg := testNetworkConfig()
	cfg.RateLimit = 10 // one token every 100ms
	c := NewClient(cfg, zaptest.NewLogger(t))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.FetchDocument(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestFetchDocument_CancelledContext(t *testing.T) {
	t.Parallel()
	c := NewClient(testNetworkConfig(), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchDocument(ctx, "http://127.0.0.1:1/")
	assert.Error(t, err)
}
