// File: internal/mocks/page.go
package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
)

// Action is one recorded interaction with a FakePage.
type Action struct {
	Selector string
	Value    string
}

// FakePage is an in-memory schemas.Page. The DOM is modelled as selector counts;
// behaviour is scripted through the hook functions. Not safe for concurrent use,
// matching the Page contract.
type FakePage struct {
	SessionID string
	Loc       string

	// Elements maps a CSS selector to the number of elements it matches.
	Elements map[string]int
	// Visible overrides how many of those are rendered; absent selectors are
	// fully visible.
	Visible map[string]int
	// Labels maps visible label text to the selector of the field it labels.
	Labels map[string]string
	// Texts maps "tag|visible text" to the selector of that element.
	Texts map[string]string
	// Storage is the page's localStorage.
	Storage   map[string]string
	CookieJar []schemas.Cookie
	// Requests are returned by CaptureRequests when their URL matches.
	Requests []schemas.CapturedRequest

	CountErr     map[string]error
	NavigateFunc func(p *FakePage, url string) error
	ReloadFunc   func(p *FakePage) error
	ClickFunc    func(p *FakePage, selector string) error
	EvaluateFunc func(p *FakePage, script string) (json.RawMessage, error)

	// Recorded interactions.
	Navigations    []string
	Reloads        int
	Fills          []Action
	Presses        []Action
	Clicks         []string
	Uploads        []Action
	UploadContent  [][]byte
	UploadPaths    []string
	ActiveCaptures int
	Scripts        []string
}

var _ schemas.Page = (*FakePage)(nil)

// NewFakePage returns a FakePage positioned at loc.
func NewFakePage(loc string) *FakePage {
	return &FakePage{
		SessionID: "fake-session",
		Loc:       loc,
		Elements:  map[string]int{},
		Visible:   map[string]int{},
		Labels:    map[string]string{},
		Texts:     map[string]string{},
		Storage:   map[string]string{},
		CountErr:  map[string]error{},
	}
}

func (p *FakePage) ID() string { return p.SessionID }

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Navigations = append(p.Navigations, url)
	if p.NavigateFunc != nil {
		return p.NavigateFunc(p, url)
	}
	p.Loc = url
	return nil
}

func (p *FakePage) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Reloads++
	if p.ReloadFunc != nil {
		return p.ReloadFunc(p)
	}
	return nil
}

func (p *FakePage) Location(ctx context.Context) (string, error) {
	return p.Loc, ctx.Err()
}

// Evaluate understands localStorage.setItem/getItem calls with JSON-quoted
// arguments; everything else goes to EvaluateFunc or yields null.
func (p *FakePage) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.Scripts = append(p.Scripts, script)
	if args, ok := callArgs(script, "localStorage.setItem("); ok && len(args) == 2 {
		p.Storage[args[0]] = args[1]
		return json.RawMessage("null"), nil
	}
	if args, ok := callArgs(script, "localStorage.getItem("); ok && len(args) == 1 {
		v, found := p.Storage[args[0]]
		if !found {
			return json.RawMessage("null"), nil
		}
		b, _ := json.Marshal(v)
		return b, nil
	}
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(p, script)
	}
	return json.RawMessage("null"), nil
}

func callArgs(script, prefix string) ([]string, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(script), ";")
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, ")") {
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, prefix), ")")
	var args []string
	if err := json.Unmarshal([]byte("["+inner+"]"), &args); err != nil {
		return nil, false
	}
	return args, true
}

func (p *FakePage) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := p.CountErr[selector]; err != nil {
		return 0, err
	}
	return p.Elements[selector], nil
}

func (p *FakePage) CountVisible(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := p.CountErr[selector]; err != nil {
		return 0, err
	}
	if n, ok := p.Visible[selector]; ok {
		return n, nil
	}
	if n := p.Elements[selector]; n > 0 {
		return n, nil
	}
	if p.exists(selector) {
		return 1, nil
	}
	return 0, nil
}

func (p *FakePage) FindByLabel(_ context.Context, text string) (string, bool, error) {
	for label, sel := range p.Labels {
		if strings.Contains(strings.ToLower(label), strings.ToLower(text)) {
			return sel, true, nil
		}
	}
	return "", false, nil
}

func (p *FakePage) FindByText(_ context.Context, tag, text string) (string, bool, error) {
	for key, sel := range p.Texts {
		t, visible, _ := strings.Cut(key, "|")
		if t == tag && strings.Contains(strings.ToLower(visible), strings.ToLower(text)) {
			return sel, true, nil
		}
	}
	return "", false, nil
}

func (p *FakePage) exists(selector string) bool {
	if p.Elements[selector] > 0 {
		return true
	}
	for _, sel := range p.Labels {
		if sel == selector {
			return true
		}
	}
	for _, sel := range p.Texts {
		if sel == selector {
			return true
		}
	}
	return false
}

func (p *FakePage) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.exists(selector) {
		return fmt.Errorf("no element matches %q", selector)
	}
	p.Fills = append(p.Fills, Action{Selector: selector, Value: value})
	return nil
}

func (p *FakePage) Press(ctx context.Context, selector, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.exists(selector) {
		return fmt.Errorf("no element matches %q", selector)
	}
	p.Presses = append(p.Presses, Action{Selector: selector, Value: key})
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.exists(selector) {
		return fmt.Errorf("no element matches %q", selector)
	}
	p.Clicks = append(p.Clicks, selector)
	if p.ClickFunc != nil {
		return p.ClickFunc(p, selector)
	}
	return nil
}

// SetFiles records the attachment and snapshots the first file's content,
// since callers remove temporary files right after attaching.
func (p *FakePage) SetFiles(ctx context.Context, selector string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.exists(selector) {
		return fmt.Errorf("no element matches %q", selector)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files given")
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return err
	}
	p.Uploads = append(p.Uploads, Action{Selector: selector, Value: paths[0]})
	p.UploadPaths = append(p.UploadPaths, paths...)
	p.UploadContent = append(p.UploadContent, data)
	return nil
}

func (p *FakePage) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	return p.CookieJar, ctx.Err()
}

func (p *FakePage) CaptureRequests(_ context.Context, urlFragment string) func() []schemas.CapturedRequest {
	p.ActiveCaptures++
	stopped := false
	return func() []schemas.CapturedRequest {
		if !stopped {
			stopped = true
			p.ActiveCaptures--
		}
		var out []schemas.CapturedRequest
		for _, r := range p.Requests {
			if strings.Contains(r.URL, urlFragment) {
				out = append(out, r)
			}
		}
		return out
	}
}
