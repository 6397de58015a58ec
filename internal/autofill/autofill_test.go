// File: internal/autofill/autofill_test.go
package autofill

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
	"github.com/xkilldash9x/pathfinder-autofill/internal/mocks"
)

func siteConfig() config.SiteConfig {
	site := config.NewDefaultConfig().Site()
	site.SubmitWait = 100 * time.Millisecond
	return site
}

func newTestOrchestrator(t *testing.T, a Authenticator, d Downloader) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(siteConfig(), a, d, zaptest.NewLogger(t))
	o.pollInterval = 5 * time.Millisecond
	o.tempDir = t.TempDir()
	return o
}

func formPage() *mocks.FakePage {
	p := mocks.NewFakePage("about:blank")
	p.Elements["#title"] = 1
	p.Elements[`input[name="title"]`] = 1
	p.Elements["#description"] = 1
	p.Elements[`input[type="url"]`] = 1
	p.Elements[`input[name="tags"]`] = 1
	return p
}

func record() schemas.MetadataRecord {
	return schemas.MetadataRecord{
		Title:       "Guide",
		Description: "A guide.",
		Tags:        []string{"go", "web"},
		URL:         "https://source.example/guide",
		Images:      []string{},
	}
}

func TestFill_SelectorPriority(t *testing.T) {
	page := formPage()
	o := newTestOrchestrator(t, nil, nil)

	require.NoError(t, o.Fill(context.Background(), page, record()))

	assert.Equal(t, []string{siteConfig().FormURL}, page.Navigations)
	assert.Equal(t, []mocks.Action{
		{Selector: "#title", Value: "Guide"},
		{Selector: "#description", Value: "A guide."},
		{Selector: `input[type="url"]`, Value: "https://source.example/guide"},
		{Selector: `input[name="tags"]`, Value: "go"},
		{Selector: `input[name="tags"]`, Value: "web"},
	}, page.Fills, "only the highest-priority title candidate may be filled")
	assert.Equal(t, []mocks.Action{
		{Selector: `input[name="tags"]`, Value: "Enter"},
		{Selector: `input[name="tags"]`, Value: "Enter"},
	}, page.Presses)
}

func TestFill_SkipsEmptyValuesAndMissingSlots(t *testing.T) {
	page := mocks.NewFakePage("about:blank")
	page.Elements["#description"] = 1
	rec := record()
	rec.Description = "  "

	o := newTestOrchestrator(t, nil, nil)
	require.NoError(t, o.Fill(context.Background(), page, rec))

	assert.Empty(t, page.Fills)
	assert.Empty(t, page.Presses)
}

func TestFill_ReauthenticatesOnLoginRedirect(t *testing.T) {
	site := siteConfig()
	page := formPage()
	redirected := false
	page.NavigateFunc = func(p *mocks.FakePage, url string) error {
		if url == site.FormURL && !redirected {
			redirected = true
			p.Loc = site.LoginURL
			return nil
		}
		p.Loc = url
		return nil
	}
	authn := new(mocks.MockAuthenticator)
	authn.On("Authenticate", mock.Anything, page).Return(true).Once()

	o := newTestOrchestrator(t, authn, nil)
	require.NoError(t, o.Fill(context.Background(), page, record()))

	assert.Equal(t, []string{site.FormURL, site.FormURL}, page.Navigations)
	assert.NotEmpty(t, page.Fills)
	authn.AssertExpectations(t)
}

func TestFill_LoginRequiredWhenReauthenticationFails(t *testing.T) {
	site := siteConfig()
	page := formPage()
	page.NavigateFunc = func(p *mocks.FakePage, _ string) error {
		p.Loc = site.LoginURL
		return nil
	}
	authn := new(mocks.MockAuthenticator)
	authn.On("Authenticate", mock.Anything, page).Return(false)

	err := newTestOrchestrator(t, authn, nil).Fill(context.Background(), page, record())

	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Empty(t, page.Fills)
}

func TestFill_NavigationError(t *testing.T) {
	page := formPage()
	page.NavigateFunc = func(*mocks.FakePage, string) error { return errors.New("net::ERR_NAME_NOT_RESOLVED") }

	err := newTestOrchestrator(t, nil, nil).Fill(context.Background(), page, record())
	assert.ErrorContains(t, err, "failed to open form")
}

func TestFill_AttachesFirstImageAndRemovesTempFile(t *testing.T) {
	page := formPage()
	page.Elements[`input[type="file"]`] = 1
	dl := new(mocks.MockDownloader)
	dl.On("Download", mock.Anything, "https://img.example/hero", mock.Anything).
		Return([]byte("PNGDATA"), "image/png", nil).Once()

	rec := record()
	rec.Images = []string{"https://img.example/hero", "https://img.example/second.jpg"}
	o := newTestOrchestrator(t, nil, dl)
	require.NoError(t, o.Fill(context.Background(), page, rec))

	require.Len(t, page.Uploads, 1)
	assert.Equal(t, `input[type="file"]`, page.Uploads[0].Selector)
	assert.Equal(t, ".png", filepath.Ext(page.Uploads[0].Value))
	assert.Equal(t, []byte("PNGDATA"), page.UploadContent[0])

	entries, err := os.ReadDir(o.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files must be removed after attaching")
	dl.AssertExpectations(t)
}

func TestFill_ImageFailureIsNotFatal(t *testing.T) {
	page := formPage()
	page.Elements[`input[type="file"]`] = 1
	dl := new(mocks.MockDownloader)
	dl.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(nil, "", errors.New("404"))

	rec := record()
	rec.Images = []string{"https://img.example/missing.jpg"}
	o := newTestOrchestrator(t, nil, dl)

	require.NoError(t, o.Fill(context.Background(), page, rec))
	assert.Empty(t, page.Uploads)
	entries, err := os.ReadDir(o.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFill_NoFileInputSkipsDownload(t *testing.T) {
	page := formPage()
	dl := new(mocks.MockDownloader)
	rec := record()
	rec.Images = []string{"https://img.example/a.jpg"}

	require.NoError(t, newTestOrchestrator(t, nil, dl).Fill(context.Background(), page, rec))
	dl.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".png", imageExt("https://a.example/x.jpg", "image/png; charset=binary"))
	assert.Equal(t, ".webp", imageExt("https://a.example/x.WEBP?v=2", ""))
	assert.Equal(t, ".jpg", imageExt("https://a.example/x", "application/octet-stream"))
}

func TestSubmit(t *testing.T) {
	site := siteConfig()

	t.Run("NoSubmitControl", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		assert.False(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
		assert.Empty(t, page.Clicks)
	})

	t.Run("SuccessIndicator", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Elements[`button[type="submit"]`] = 1
		page.ClickFunc = func(p *mocks.FakePage, _ string) error {
			p.Elements[".alert-success"] = 1
			return nil
		}
		assert.True(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
		assert.Equal(t, []string{`button[type="submit"]`}, page.Clicks)
	})

	t.Run("TextIndicator", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Texts["button|Create asset"] = `[data-pathfinder-ref="1"]`
		page.ClickFunc = func(p *mocks.FakePage, _ string) error {
			p.Texts["div|Asset created successfully"] = `[data-pathfinder-ref="2"]`
			return nil
		}
		assert.True(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
		assert.Equal(t, []string{`[data-pathfinder-ref="1"]`}, page.Clicks)
	})

	t.Run("RedirectAwayFromForm", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Elements["#submit-button"] = 1
		page.Elements[`button[type="submit"]`] = 1
		page.ClickFunc = func(p *mocks.FakePage, _ string) error {
			p.Loc = "https://pathfinder.xtech-sg.net/assets/42"
			return nil
		}
		assert.True(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
		assert.Equal(t, []string{"#submit-button"}, page.Clicks)
	})

	t.Run("HiddenIndicatorTemplate", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Elements[`button[type="submit"]`] = 1
		page.Elements[".success-message"] = 1
		page.Visible[".success-message"] = 0

		assert.False(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
		assert.Len(t, page.Clicks, 1)
	})

	t.Run("IndicatorVisibleBeforeClick", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Elements[`button[type="submit"]`] = 1
		page.Elements[".alert-success"] = 1

		assert.False(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
	})

	t.Run("TemplateRevealedByClick", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Elements[`button[type="submit"]`] = 1
		page.Elements[".success-message"] = 1
		page.Visible[".success-message"] = 0
		page.ClickFunc = func(p *mocks.FakePage, _ string) error {
			p.Visible[".success-message"] = 1
			return nil
		}
		assert.True(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
	})

	t.Run("NeitherWithinTimeout", func(t *testing.T) {
		page := mocks.NewFakePage(site.FormURL)
		page.Elements[`input[type="submit"]`] = 1

		start := time.Now()
		assert.False(t, newTestOrchestrator(t, nil, nil).Submit(context.Background(), page))
		assert.Len(t, page.Clicks, 1, "submission is never retried")
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
