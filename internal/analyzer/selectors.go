// File: internal/analyzer/selectors.go
package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/internal/selector"
)

// fieldTerms are the substrings that tie a form control to a semantic field.
var fieldTerms = []struct {
	field string
	terms []string
}{
	{"title", []string{"title", "name", "heading"}},
	{"description", []string{"description", "desc", "summary", "about"}},
	{"url", []string{"url", "link", "website", "address"}},
	{"tags", []string{"tags", "keywords", "categories", "labels"}},
	{"image", []string{"image", "img", "photo", "picture", "thumbnail"}},
}

var submitWords = []string{"submit", "create", "add", "save"}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

const controls = `input, textarea, select, div[role="combobox"], [contenteditable="true"]`

// collectSelectors parses the form page and lists working selectors per field.
func collectSelectors(ctx context.Context, html string, logger *zap.Logger) (*SelectorFindings, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse form page: %w", err)
	}

	found := map[string]*orderedSet{}
	for _, ft := range fieldTerms {
		found[ft.field] = &orderedSet{}
	}

	doc.Find(controls).Each(func(_ int, s *goquery.Selection) {
		for _, ft := range fieldTerms {
			for _, term := range ft.terms {
				found[ft.field].add(controlSelectors(s, term)...)
			}
		}
	})
	doc.Find("label[for]").Each(func(_ int, label *goquery.Selection) {
		id, _ := label.Attr("for")
		if id == "" || doc.Find(attrEquals("id", id)).Length() == 0 {
			return
		}
		text := strings.ToLower(label.Text())
		for _, ft := range fieldTerms {
			if containsAny(text, ft.terms) {
				found[ft.field].add(idSelector(id))
			}
		}
	})

	out := &SelectorFindings{
		Title:        found["title"].items(),
		Description:  found["description"].items(),
		URL:          found["url"].items(),
		Tags:         found["tags"].items(),
		Image:        found["image"].items(),
		FileUpload:   fileUploadSelectors(doc),
		SubmitButton: submitSelectors(doc),
		Resolved:     resolveSlots(ctx, doc, logger),
	}
	return out, nil
}

// controlSelectors returns the selectors that address s through an attribute
// containing term, most specific first.
func controlSelectors(s *goquery.Selection, term string) []string {
	tag := goquery.NodeName(s)
	var out []string
	if id, ok := s.Attr("id"); ok && containsFold(id, term) {
		out = append(out, idSelector(id))
	}
	if name, ok := s.Attr("name"); ok && containsFold(name, term) {
		out = append(out, tag+attrEquals("name", name))
	}
	if ph, ok := s.Attr("placeholder"); ok && containsFold(ph, term) {
		out = append(out, fmt.Sprintf(`%s[placeholder*=%q i]`, tag, term))
	}
	if aria, ok := s.Attr("aria-label"); ok && containsFold(aria, term) {
		out = append(out, fmt.Sprintf(`%s[aria-label*=%q i]`, tag, term))
	}
	if class, ok := s.Attr("class"); ok {
		for _, token := range strings.Fields(class) {
			if containsFold(token, term) && plainIdent.MatchString(token) {
				out = append(out, tag+"."+token)
			}
		}
	}
	return out
}

func fileUploadSelectors(doc *goquery.Document) []string {
	set := &orderedSet{}
	doc.Find(`input[type="file"]`).Each(func(_ int, s *goquery.Selection) {
		switch {
		case hasAttr(s, "id"):
			id, _ := s.Attr("id")
			set.add(idSelector(id))
		case hasAttr(s, "name"):
			name, _ := s.Attr("name")
			set.add(`input[type="file"]` + attrEquals("name", name))
		default:
			set.add(`input[type="file"]`)
		}
	})
	return set.items()
}

func submitSelectors(doc *goquery.Document) []string {
	set := &orderedSet{}
	doc.Find(`button[type="submit"], input[type="submit"]`).Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			set.add(idSelector(id))
			return
		}
		t, _ := s.Attr("type")
		set.add(goquery.NodeName(s) + attrEquals("type", t))
	})
	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("id")
		if !ok || id == "" {
			return
		}
		if containsAny(strings.ToLower(s.Text()), submitWords) {
			set.add(idSelector(id))
		}
	})
	return set.items()
}

// resolveSlots reports which selector the form filler would pick for each
// slot. Text matches have no stable selector and are reported by candidate.
func resolveSlots(ctx context.Context, doc *goquery.Document, logger *zap.Logger) map[string]string {
	resolver := selector.NewResolver(logger)
	q := selector.NewDocumentQuerier(doc)
	out := map[string]string{}
	for _, slot := range selector.FormSlots {
		m, ok := resolver.Resolve(ctx, slot, q)
		if !ok {
			continue
		}
		if m.Candidate.Kind == selector.ByText {
			out[slot.Name] = m.Candidate.String()
			continue
		}
		out[slot.Name] = m.Selector
	}
	return out
}

func idSelector(id string) string {
	if plainIdent.MatchString(id) {
		return "#" + id
	}
	return attrEquals("id", id)
}

func attrEquals(attr, value string) string {
	return fmt.Sprintf(`[%s=%q]`, attr, value)
}

func hasAttr(s *goquery.Selection, name string) bool {
	v, ok := s.Attr(name)
	return ok && v != ""
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

type orderedSet struct {
	seen map[string]struct{}
	list []string
}

func (o *orderedSet) add(values ...string) {
	if o.seen == nil {
		o.seen = map[string]struct{}{}
	}
	for _, v := range values {
		if _, dup := o.seen[v]; dup {
			continue
		}
		o.seen[v] = struct{}{}
		o.list = append(o.list, v)
	}
}

func (o *orderedSet) items() []string {
	if o.list == nil {
		return []string{}
	}
	return o.list
}
