// File: internal/extractor/snapshot.go
package extractor

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// imageRef is an <img> as seen by a backend, before filtering.
type imageRef struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// Sized is false when the backend could not tell the dimensions.
	Sized bool `json:"sized"`
}

type property struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// pageSnapshot is the raw view of a page shared by both backends. The render
// backend decodes it from the probe script; the static backend builds it with goquery.
type pageSnapshot struct {
	Location        string     `json:"location"`
	BaseURL         string     `json:"baseURL"`
	Title           string     `json:"title"`
	MetaDescription string     `json:"metaDescription"`
	MetaKeywords    string     `json:"metaKeywords"`
	ContentText     string     `json:"contentText"`
	TagTexts        []string   `json:"tagTexts"`
	Images          []imageRef `json:"images"`

	DocTitle       string     `json:"docTitle"`
	DocDescription string     `json:"docDescription"`
	DocContentText string     `json:"docContentText"`
	Properties     []property `json:"properties"`
	PreviewImage   string     `json:"previewImage"`

	HTML string `json:"html"`
}

// normalizer turns snapshots into records under the configured limits.
type normalizer struct {
	cfg config.ExtractionConfig
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// generic builds the generic-profile record for sourceURL.
func (n normalizer) generic(sourceURL string, snap *pageSnapshot) schemas.MetadataRecord {
	rec := schemas.EmptyRecord(sourceURL)
	rec.Title = collapse(snap.Title)

	rec.Description = strings.TrimSpace(snap.MetaDescription)
	if rec.Description == "" {
		rec.Description = truncate(collapse(snap.ContentText), n.cfg.DescriptionMaxLength)
	}

	rec.Tags = n.tags(snap.MetaKeywords, ",", snap.TagTexts)
	rec.Images = n.images(snap.BaseURL, snap.Images)
	return rec
}

// document builds the document-management profile record for sourceURL.
func (n normalizer) document(sourceURL string, snap *pageSnapshot) schemas.MetadataRecord {
	rec := schemas.EmptyRecord(sourceURL)

	rec.Title = collapse(snap.DocTitle)
	if rec.Title == "" {
		rec.Title = collapse(snap.Title)
	}

	switch {
	case strings.TrimSpace(snap.DocDescription) != "":
		rec.Description = collapse(snap.DocDescription)
	case strings.TrimSpace(snap.MetaDescription) != "":
		rec.Description = strings.TrimSpace(snap.MetaDescription)
	default:
		rec.Description = truncate(collapse(snap.DocContentText), n.cfg.DescriptionMaxLength)
	}

	for _, p := range snap.Properties {
		key, val := collapse(p.Label), collapse(p.Value)
		if key == "" || val == "" {
			continue
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]string)
		}
		rec.Metadata[key] = val
	}

	var set schemas.TagSet
	source, ok := rec.Metadata["Tags"]
	if !ok {
		source = rec.Metadata["Keywords"]
	}
	for _, t := range strings.Split(source, ";") {
		set.Add(t)
	}
	rec.Tags = set.Tags()

	if preview := resolveImage(snap.BaseURL, snap.PreviewImage); preview != "" {
		rec.Images = []string{preview}
	} else {
		rec.Images = n.images(snap.BaseURL, snap.Images)
	}
	return rec
}

// tags splits the keyword list and, when it yields fewer than the probe
// threshold, tops it up with short tag-like element texts.
func (n normalizer) tags(keywords, sep string, probed []string) []string {
	var set schemas.TagSet
	if keywords != "" {
		for _, k := range strings.Split(keywords, sep) {
			set.Add(k)
		}
	}
	if set.Len() >= n.cfg.TagProbeThreshold {
		return set.Tags()
	}
	for _, t := range probed {
		if set.Len() >= n.cfg.MaxTags {
			break
		}
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) >= n.cfg.MaxTagLength {
			continue
		}
		set.Add(t)
	}
	return set.Tags()
}

// images applies the size filter, resolves sources against base, skips data
// URLs and duplicates, and caps the result, keeping encounter order.
func (n normalizer) images(base string, refs []imageRef) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, img := range refs {
		if len(out) >= n.cfg.MaxImages {
			break
		}
		if img.Sized && (img.Width <= n.cfg.MinImageDimension || img.Height <= n.cfg.MinImageDimension) {
			continue
		}
		src := resolveImage(base, img.Src)
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

// resolveImage makes src absolute against base. Empty, unparsable and data:
// sources yield "".
func resolveImage(base, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
