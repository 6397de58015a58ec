// File: internal/extractor/static.go
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/pathfinder-autofill/internal/network"
)

// Fetcher is the static-fetch backend's transport.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*network.Document, error)
}

// staticSnapshot fetches url and builds the page view from the raw HTML.
func staticSnapshot(ctx context.Context, fetcher Fetcher, target string, withHTML bool) (*pageSnapshot, error) {
	doc, err := fetcher.FetchDocument(ctx, target)
	if err != nil {
		return nil, err
	}
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", doc.FinalURL, err)
	}
	snap := snapshotFromDocument(dom, doc.FinalURL)
	if withHTML {
		snap.HTML = string(doc.Body)
	}
	return snap, nil
}

// snapshotFromDocument reads the same fields the probe script collects.
func snapshotFromDocument(dom *goquery.Document, finalURL string) *pageSnapshot {
	snap := &pageSnapshot{
		Location: finalURL,
		BaseURL:  effectiveBase(dom, finalURL),
		Title:    dom.Find("title").First().Text(),
	}
	snap.MetaDescription, _ = dom.Find(`meta[name="description"]`).First().Attr("content")
	snap.MetaKeywords, _ = dom.Find(`meta[name="keywords"]`).First().Attr("content")

	content := dom.Find("main, article").First()
	if content.Length() == 0 {
		content = dom.Find(".content, #content").First()
	}
	if content.Length() == 0 {
		content = dom.Find("body").First()
	}
	snap.ContentText = collapse(content.Text())

	dom.Find(".tag, .tags a, .category, .categories a").Each(func(_ int, s *goquery.Selection) {
		snap.TagTexts = append(snap.TagTexts, collapse(s.Text()))
	})

	dom.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		w, wok := dimension(s, "width")
		h, hok := dimension(s, "height")
		snap.Images = append(snap.Images, imageRef{Src: src, Width: w, Height: h, Sized: wok && hok})
	})

	snap.DocTitle = collapse(dom.Find(".SPPageTitle, .ms-webpart-titleText, .od-ItemContent-title").First().Text())
	snap.DocDescription = collapse(dom.Find(`.od-ItemContent-secondaryText, .ms-listviewtable td[aria-describedby*="Description"]`).First().Text())
	snap.DocContentText = collapse(dom.Find("#contentBox, .ms-webpartPage-root").First().Text())
	dom.Find(".ms-metadata-grid-row, .od-DetailPane-propertyRow").Each(func(_ int, row *goquery.Selection) {
		label := row.Find(".ms-metadata-grid-label, .od-DetailPane-propertyLabel").First()
		value := row.Find(".ms-metadata-grid-value, .od-DetailPane-propertyValue").First()
		if label.Length() > 0 && value.Length() > 0 {
			snap.Properties = append(snap.Properties, property{Label: collapse(label.Text()), Value: collapse(value.Text())})
		}
	})
	snap.PreviewImage, _ = dom.Find(".od-ItemTile-filePreviewImage, .ms-filePreview img").First().Attr("src")
	return snap
}

// dimension parses a declared width/height attribute such as "120" or "120px".
func dimension(s *goquery.Selection, name string) (int, bool) {
	raw, ok := s.Attr(name)
	if !ok {
		return 0, false
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "px")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// effectiveBase is <base href> resolved against the final URL, or the final URL.
func effectiveBase(dom *goquery.Document, finalURL string) string {
	href, ok := dom.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return finalURL
	}
	b, err := url.Parse(finalURL)
	if err != nil {
		return finalURL
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return finalURL
	}
	return b.ResolveReference(ref).String()
}
