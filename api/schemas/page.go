package schemas

import (
	"context"
	"encoding/json"
	"time"
)

// Page is the capability surface of one live rendering session. It is used
// sequentially by one caller at a time; implementations are not required to be
// safe for concurrent use.
type Page interface {
	// ID returns the unique ID of the session.
	ID() string
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Reload reloads the current document.
	Reload(ctx context.Context) error
	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)
	// Evaluate runs a script and returns its JSON-encoded result.
	Evaluate(ctx context.Context, script string) (json.RawMessage, error)

	// Count returns how many elements match a CSS selector.
	Count(ctx context.Context, selector string) (int, error)
	// CountVisible is Count restricted to elements that are rendered with a
	// non-empty box and are not hidden by style.
	CountVisible(ctx context.Context, selector string) (int, error)
	// FindByLabel locates the field a <label> containing text points at via "for".
	// The returned selector addresses that field.
	FindByLabel(ctx context.Context, text string) (string, bool, error)
	// FindByText locates the first element matching tagSelector whose visible text
	// contains text. The returned selector addresses that element.
	FindByText(ctx context.Context, tagSelector, text string) (string, bool, error)

	// Fill replaces the value of the first element matching selector.
	Fill(ctx context.Context, selector, value string) error
	// Press dispatches a key (for example "Enter") to the first matching element.
	Press(ctx context.Context, selector, key string) error
	// Click clicks the first matching element.
	Click(ctx context.Context, selector string) error
	// SetFiles attaches local files to a file input.
	SetFiles(ctx context.Context, selector string, paths []string) error

	// Cookies returns the cookies visible to the current document.
	Cookies(ctx context.Context) ([]Cookie, error)
	// CaptureRequests starts recording outgoing requests whose URL contains
	// urlFragment. The returned function removes the listener and yields what
	// was recorded; it must be called exactly once.
	CaptureRequests(ctx context.Context, urlFragment string) (stop func() []CapturedRequest)
}

// Cookie is a browser cookie as reported by the session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// CapturedRequest is one request observed while a capture was active.
type CapturedRequest struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	PostData  string            `json:"postData,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
