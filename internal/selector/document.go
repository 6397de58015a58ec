// File: internal/selector/document.go
package selector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// RefAttr marks elements located by text or label so a follow-up query can address them.
const RefAttr = "data-pathfinder-ref"

// DocumentQuerier answers resolver queries against a parsed HTML document.
// Text matches tag the matched node with RefAttr, mutating the document.
type DocumentQuerier struct {
	doc  *goquery.Document
	refs int
}

// NewDocumentQuerier wraps a parsed document.
func NewDocumentQuerier(doc *goquery.Document) *DocumentQuerier {
	return &DocumentQuerier{doc: doc}
}

// Count implements Querier.
func (d *DocumentQuerier) Count(_ context.Context, selector string) (int, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return 0, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return d.doc.FindMatcher(m).Length(), nil
}

// FindByLabel implements Querier.
func (d *DocumentQuerier) FindByLabel(_ context.Context, text string) (string, bool, error) {
	needle := strings.ToLower(text)
	var found string
	d.doc.Find("label[for]").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(label.Text()), needle) {
			return true
		}
		id, _ := label.Attr("for")
		if id == "" {
			return true
		}
		sel := fmt.Sprintf(`[id=%q]`, id)
		if d.doc.Find(sel).Length() > 0 {
			found = sel
			return false
		}
		return true
	})
	return found, found != "", nil
}

// FindByText implements Querier.
func (d *DocumentQuerier) FindByText(_ context.Context, tagSelector, text string) (string, bool, error) {
	m, err := cascadia.Compile(tagSelector)
	if err != nil {
		return "", false, fmt.Errorf("invalid selector %q: %w", tagSelector, err)
	}
	needle := strings.ToLower(text)
	var found string
	d.doc.FindMatcher(m).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(s.Text()), needle) {
			return true
		}
		ref, ok := s.Attr(RefAttr)
		if !ok {
			d.refs++
			ref = strconv.Itoa(d.refs)
			s.SetAttr(RefAttr, ref)
		}
		found = fmt.Sprintf(`[%s=%q]`, RefAttr, ref)
		return false
	})
	return found, found != "", nil
}
