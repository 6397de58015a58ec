// File: internal/analyzer/summary.go
package analyzer

// maxSummarySelectors caps the selectors listed per field in a Summary.
const maxSummarySelectors = 3

// Summary is the condensed view of a Snapshot printed after analysis.
type Summary struct {
	LoginRequired bool                `json:"loginRequired"`
	Forms         int                 `json:"forms"`
	Fields        int                 `json:"fields"`
	FormFields    []int               `json:"formFields"`
	FileUploads   int                 `json:"fileUploads"`
	Selectors     map[string][]string `json:"selectors"`
	// Omitted counts the selectors per field left out of Selectors.
	Omitted map[string]int `json:"omitted"`
	Tokens        int                 `json:"tokens"`
}

// Summarize condenses snap.
func Summarize(snap Snapshot) Summary {
	s := Summary{Selectors: map[string][]string{}, Omitted: map[string]int{}}
	if f := snap.AddAssetForm; f != nil {
		s.LoginRequired = f.Blocked()
		s.Forms = len(f.Forms)
		for _, form := range f.Forms {
			s.Fields += len(form.Inputs)
			s.FormFields = append(s.FormFields, len(form.Inputs))
		}
		s.FileUploads = len(f.FileUploads)
	}
	if sel := snap.Selectors; sel != nil {
		for field, list := range map[string][]string{
			"title":        sel.Title,
			"description":  sel.Description,
			"url":          sel.URL,
			"tags":         sel.Tags,
			"image":        sel.Image,
			"fileUpload":   sel.FileUpload,
			"submitButton": sel.SubmitButton,
		} {
			if len(list) == 0 {
				continue
			}
			if len(list) > maxSummarySelectors {
				s.Omitted[field] = len(list) - maxSummarySelectors
				list = list[:maxSummarySelectors]
			}
			s.Selectors[field] = list
		}
	}
	if t := snap.AuthTokens; t != nil {
		s.Tokens = len(t.LocalStorage) + len(t.SessionStorage) + len(t.Cookies)
	}
	return s
}
