// File: internal/extractor/article.go
package extractor

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Metadata keys filled from readability on generic pages.
const (
	MetaAuthor    = "author"
	MetaSiteName  = "site_name"
	MetaExcerpt   = "excerpt"
	MetaPublished = "published"
)

// articleMetadata runs readability over html and returns the byline-style
// fields it found, or nil when there are none.
func articleMetadata(html, pageURL string) (map[string]string, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), u)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	put := func(k, v string) {
		if v = collapse(v); v != "" {
			out[k] = v
		}
	}
	put(MetaAuthor, article.Byline)
	put(MetaSiteName, article.SiteName)
	put(MetaExcerpt, article.Excerpt)
	if article.PublishedTime != nil {
		out[MetaPublished] = article.PublishedTime.Format("2006-01-02")
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
