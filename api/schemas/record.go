package schemas

import "strings"

// MetadataRecord is the normalized description of a source resource, produced by
// the extraction pipeline and consumed by the form filler. Treat it as immutable:
// helpers return copies instead of mutating.
type MetadataRecord struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags"`
	URL         string            `json:"url"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// EmptyRecord returns a record carrying only the source URL.
func EmptyRecord(url string) MetadataRecord {
	return MetadataRecord{URL: url, Tags: []string{}, Images: []string{}}
}

// IsEmpty reports whether nothing but the URL was extracted.
func (r MetadataRecord) IsEmpty() bool {
	return r.Title == "" && r.Description == "" && len(r.Tags) == 0 &&
		len(r.Images) == 0 && len(r.Metadata) == 0
}

// Clone returns a deep copy. Nil and empty slices stay as they were.
func (r MetadataRecord) Clone() MetadataRecord {
	out := r
	if r.Tags != nil {
		out.Tags = append([]string{}, r.Tags...)
	}
	if r.Images != nil {
		out.Images = append([]string{}, r.Images...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// WithDefaults returns a new record where empty fields take the given defaults.
// Tags are replaced by the defaults only when the record has none.
func (r MetadataRecord) WithDefaults(title, description string, tags []string) MetadataRecord {
	out := r.Clone()
	if strings.TrimSpace(out.Title) == "" {
		out.Title = title
	}
	if strings.TrimSpace(out.Description) == "" {
		out.Description = description
	}
	if len(out.Tags) == 0 && len(tags) > 0 {
		out.Tags = append([]string{}, tags...)
	}
	return out
}

// TagSet accumulates tags in insertion order, dropping empties and duplicates.
type TagSet struct {
	seen map[string]struct{}
	tags []string
}

// Add appends tag after trimming; it reports whether the tag was new.
func (s *TagSet) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, dup := s.seen[tag]; dup {
		return false
	}
	s.seen[tag] = struct{}{}
	s.tags = append(s.tags, tag)
	return true
}

// Len returns the number of accepted tags.
func (s *TagSet) Len() int { return len(s.tags) }

// Tags returns the accepted tags; never nil.
func (s *TagSet) Tags() []string {
	if s.tags == nil {
		return []string{}
	}
	return append([]string{}, s.tags...)
}
