// File: internal/analyzer/analyzer_test.go
package analyzer

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/cache"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
	"github.com/xkilldash9x/pathfinder-autofill/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const formHTML = `<html><body>
<form id="asset-form" action="/api/assets" method="post">
  <label for="title">Asset title</label>
  <input id="title" name="title" placeholder="Enter title">
  <textarea name="description" aria-label="Description"></textarea>
  <input type="url" name="link" class="form-control url-input">
  <input name="tags" placeholder="Add tags">
  <input type="file" id="image-upload" accept="image/*">
  <button type="submit" id="submit-button">Create asset</button>
</form>
</body></html>`

const (
	loginResult = `{
		"forms": [{"action": "https://pathfinder.xtech-sg.net/login", "method": "post", "id": "login", "className": "",
		           "inputs": [{"type": "text", "name": "username", "id": "username", "placeholder": "Username"}]}],
		"localStorage": {"theme": "dark"},
		"sampleInputs": {"tokenPlaceholder": "Paste your token"},
		"url": "https://pathfinder.xtech-sg.net/login"
	}`
	tokensResult = `{"localStorage": {"accessToken": "abc"}, "sessionStorage": {}}`
	formResult   = `{
		"forms": [{"action": "/api/assets", "method": "post", "id": "asset-form", "className": "",
		           "inputs": [{"type": "text", "name": "title", "id": "title", "required": true, "label": "Asset title"},
		                      {"type": "textarea", "name": "description", "id": ""}]}],
		"dynamicElements": [{"tagName": "DIV", "id": "app", "className": "", "attributes": [{"name": "v-model", "value": "asset"}]}],
		"fileUploads": [{"id": "image-upload", "name": "", "accept": "image/*", "multiple": false}],
		"fieldGroups": []
	}`
)

func analysisPage(t *testing.T) *mocks.FakePage {
	t.Helper()
	page := mocks.NewFakePage("about:blank")
	page.Requests = []schemas.CapturedRequest{
		{URL: "https://pathfinder.xtech-sg.net/api/session", Method: "GET", Headers: map[string]string{"accept": "application/json"}},
		{URL: "https://cdn.example/app.js", Method: "GET"},
	}
	page.CookieJar = []schemas.Cookie{
		{Name: "connect.sid", Value: "s1"},
		{Name: "theme", Value: "dark"},
		{Name: "AuthState", Value: "ok"},
	}
	page.EvaluateFunc = func(_ *mocks.FakePage, script string) (stdjson.RawMessage, error) {
		switch script {
		case loginScript:
			return stdjson.RawMessage(loginResult), nil
		case authTokensScript:
			return stdjson.RawMessage(tokensResult), nil
		case formScript:
			return stdjson.RawMessage(formResult), nil
		case clickProbeScript:
			return stdjson.RawMessage("4"), nil
		case outerHTMLScript:
			b, err := json.Marshal(formHTML)
			return b, err
		}
		return nil, errors.New("unexpected script")
	}
	return page
}

func newTestAnalyzer(t *testing.T, cfg config.AnalysisConfig) (*Analyzer, *cache.SnapshotStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".pathfinder_analysis.json")
	store := cache.NewSnapshotStore(cache.NewStore(zaptest.NewLogger(t)), path)
	a := New(config.NewDefaultConfig().Site(), cfg, store, zaptest.NewLogger(t))
	a.sleep = func(context.Context, time.Duration) {}
	return a, store, path
}

func TestRun_AllPhases(t *testing.T) {
	page := analysisPage(t)
	a, _, path := newTestAnalyzer(t, config.AnalysisConfig{})
	site := config.NewDefaultConfig().Site()

	snap, err := a.Run(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, []string{site.LoginURL, site.FormURL}, page.Navigations)
	assert.Zero(t, page.ActiveCaptures, "every capture must be stopped")

	require.NotNil(t, snap.Login)
	assert.Len(t, snap.Login.Forms, 1)
	assert.Equal(t, "dark", snap.Login.LocalStorage["theme"])
	assert.Equal(t, "Paste your token", snap.Login.SampleInputs["tokenPlaceholder"])
	require.Len(t, snap.Login.NetworkRequests.Endpoints, 1)
	assert.Equal(t, "https://pathfinder.xtech-sg.net/api/session", snap.Login.NetworkRequests.Endpoints[0].URL)
	assert.Equal(t, "application/json", snap.Login.NetworkRequests.Headers["accept"])

	require.NotNil(t, snap.AuthTokens)
	assert.Equal(t, "abc", snap.AuthTokens.LocalStorage["accessToken"])
	var cookieNames []string
	for _, c := range snap.AuthTokens.Cookies {
		cookieNames = append(cookieNames, c.Name)
	}
	assert.Equal(t, []string{"connect.sid", "AuthState"}, cookieNames)

	require.NotNil(t, snap.AddAssetForm)
	assert.False(t, snap.AddAssetForm.Blocked())
	assert.Equal(t, site.FormURL, snap.AddAssetForm.URL)
	assert.True(t, snap.AddAssetForm.Forms[0].Inputs[0].Required)
	assert.Len(t, snap.AddAssetForm.APIEndpoints, 1)
	assert.Len(t, snap.AddAssetForm.DynamicElements, 1)

	require.NotNil(t, snap.Selectors)
	assert.Equal(t, "#title", snap.Selectors.Resolved["title field"])

	persisted := cache.NewStore(zaptest.NewLogger(t)).Load(path)
	for _, phase := range []string{cache.PhaseLogin, cache.PhaseAuthTokens, cache.PhaseAddAssetForm, cache.PhaseSelectors} {
		assert.Contains(t, persisted, phase)
	}
	assert.NotContains(t, page.Scripts, clickProbeScript, "click probing is opt-in")
}

func TestRun_FormBehindLogin(t *testing.T) {
	site := config.NewDefaultConfig().Site()
	page := analysisPage(t)
	page.NavigateFunc = func(p *mocks.FakePage, url string) error {
		if url == site.FormURL {
			p.Loc = site.LoginURL + "?next=/add"
			return nil
		}
		p.Loc = url
		return nil
	}
	a, store, _ := newTestAnalyzer(t, config.AnalysisConfig{})

	snap, err := a.Run(context.Background(), page)
	require.NoError(t, err)

	require.NotNil(t, snap.AddAssetForm)
	assert.Equal(t, &FormFindings{Error: ErrLoginRequired, URL: site.LoginURL + "?next=/add"}, snap.AddAssetForm)
	assert.Nil(t, snap.Selectors)
	assert.NotContains(t, store.Snapshot(), cache.PhaseSelectors)
	assert.NotContains(t, page.Scripts, formScript)
	assert.Zero(t, page.ActiveCaptures)
}

func TestRun_ProbeClicks(t *testing.T) {
	page := analysisPage(t)
	a, _, _ := newTestAnalyzer(t, config.AnalysisConfig{ProbeClicks: true, CaptureWait: time.Second})
	var slept time.Duration
	a.sleep = func(_ context.Context, d time.Duration) { slept = d }

	_, err := a.Run(context.Background(), page)
	require.NoError(t, err)

	assert.Contains(t, page.Scripts, clickProbeScript)
	assert.Equal(t, time.Second, slept)
}

func TestRun_LoginNavigationFailure(t *testing.T) {
	page := analysisPage(t)
	page.NavigateFunc = func(*mocks.FakePage, string) error { return errors.New("net::ERR_CONNECTION_REFUSED") }
	a, store, _ := newTestAnalyzer(t, config.AnalysisConfig{})

	snap, err := a.Run(context.Background(), page)

	assert.ErrorContains(t, err, "login phase")
	assert.Nil(t, snap.Login)
	assert.Empty(t, store.Snapshot())
	assert.Zero(t, page.ActiveCaptures)
}

func TestRun_NullScriptResultIsAnError(t *testing.T) {
	page := analysisPage(t)
	page.EvaluateFunc = func(*mocks.FakePage, string) (stdjson.RawMessage, error) {
		return stdjson.RawMessage("null"), nil
	}
	a, _, _ := newTestAnalyzer(t, config.AnalysisConfig{})

	_, err := a.Run(context.Background(), page)
	assert.ErrorContains(t, err, "no result")
}

func TestCollectSelectors(t *testing.T) {
	got, err := collectSelectors(context.Background(), formHTML, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"#title", `input[name="title"]`, `input[placeholder*="title" i]`}, got.Title)
	assert.Contains(t, got.Description, `textarea[name="description"]`)
	assert.Contains(t, got.Description, `textarea[aria-label*="description" i]`)
	assert.Equal(t, []string{"input.url-input", `input[name="link"]`}, got.URL)
	assert.Equal(t, []string{`input[name="tags"]`, `input[placeholder*="tags" i]`}, got.Tags)
	assert.Equal(t, []string{"#image-upload"}, got.Image)
	assert.Equal(t, []string{"#image-upload"}, got.FileUpload)
	assert.Equal(t, []string{"#submit-button"}, got.SubmitButton)

	assert.Equal(t, map[string]string{
		"title field":       "#title",
		"description field": `textarea[name="description"]`,
		"url field":         `input[type="url"]`,
		"tags field":        `input[name="tags"]`,
		"file input":        `input[type="file"]`,
		"submit button":     "#submit-button",
	}, got.Resolved)
}

func TestCollectSelectors_TextSubmitAndOddIDs(t *testing.T) {
	html := `<form>
	  <label for="asset.name">Title</label><input id="asset.name">
	  <button id="go" type="button">Save</button>
	</form>`
	got, err := collectSelectors(context.Background(), html, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{`[id="asset.name"]`}, got.Title)
	assert.Equal(t, []string{"#go"}, got.SubmitButton)
	assert.Empty(t, got.FileUpload)
	assert.Equal(t, `[id="asset.name"]`, got.Resolved["title field"])
	assert.NotContains(t, got.Resolved, "submit button", "a Save button is not a submit candidate")
}

func TestSummarize(t *testing.T) {
	snap := Snapshot{
		AuthTokens: &AuthTokenFindings{
			LocalStorage:   map[string]string{"accessToken": "a"},
			SessionStorage: map[string]string{"authState": "b"},
			Cookies:        []schemas.Cookie{{Name: "sid"}},
		},
		AddAssetForm: &FormFindings{
			Forms:       []Form{{Inputs: make([]FormInput, 4)}, {Inputs: make([]FormInput, 2)}},
			FileUploads: []FileUpload{{ID: "f"}},
		},
		Selectors: &SelectorFindings{
			Title: []string{"a", "b", "c", "d"},
			URL:   []string{"#url"},
		},
	}

	s := Summarize(snap)

	assert.Equal(t, 2, s.Forms)
	assert.Equal(t, 6, s.Fields)
	assert.Equal(t, []int{4, 2}, s.FormFields)
	assert.Equal(t, 1, s.FileUploads)
	assert.Equal(t, 3, s.Tokens)
	assert.Equal(t, map[string][]string{"title": {"a", "b", "c"}, "url": {"#url"}}, s.Selectors)
	assert.Equal(t, map[string]int{"title": 1}, s.Omitted)
	assert.False(t, s.LoginRequired)

	blocked := Summarize(Snapshot{AddAssetForm: &FormFindings{Error: ErrLoginRequired}})
	assert.True(t, blocked.LoginRequired)
	assert.Empty(t, blocked.Selectors)
}
