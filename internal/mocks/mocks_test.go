// File: internal/mocks/mocks_test.go
package mocks

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
)

func TestMockDownloaderWritesBody(t *testing.T) {
	m := new(MockDownloader)
	m.On("Download", mock.Anything, "https://img.example/a.png", mock.Anything).
		Return([]byte("PNG"), "image/png", nil)

	var buf bytes.Buffer
	ct, err := m.Download(context.Background(), "https://img.example/a.png", &buf)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "PNG", buf.String())
	m.AssertExpectations(t)
}

func TestFakePageLocalStorage(t *testing.T) {
	ctx := context.Background()
	p := NewFakePage("https://site.example/login")

	_, err := p.Evaluate(ctx, `localStorage.setItem("accessToken", "t-1")`)
	require.NoError(t, err)
	raw, err := p.Evaluate(ctx, `localStorage.getItem("accessToken")`)
	require.NoError(t, err)
	assert.JSONEq(t, `"t-1"`, string(raw))

	raw, err = p.Evaluate(ctx, `localStorage.getItem("missing")`)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestFakePageActionsRequireElements(t *testing.T) {
	ctx := context.Background()
	p := NewFakePage("about:blank")
	p.Elements["#title"] = 1

	require.NoError(t, p.Fill(ctx, "#title", "x"))
	assert.Error(t, p.Fill(ctx, "#missing", "x"))
	assert.Error(t, p.Click(ctx, "#missing"))
	assert.Equal(t, []Action{{Selector: "#title", Value: "x"}}, p.Fills)
}

func TestFakePageCaptureRequests(t *testing.T) {
	p := NewFakePage("about:blank")
	p.Requests = []schemas.CapturedRequest{{URL: "https://site.example/api/assets"}, {URL: "https://cdn.example/app.js"}}

	stop := p.CaptureRequests(context.Background(), "/api/")
	assert.Equal(t, 1, p.ActiveCaptures)
	got := stop()
	assert.Equal(t, 0, p.ActiveCaptures)
	require.Len(t, got, 1)
	assert.Equal(t, "https://site.example/api/assets", got[0].URL)
}
