// File: internal/analyzer/types.go
package analyzer

import "github.com/xkilldash9x/pathfinder-autofill/api/schemas"

// ErrLoginRequired is the error text recorded when the form page redirects to login.
const ErrLoginRequired = "Login required"

// FormInput describes one control inside a form.
type FormInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder,omitempty"`
	ClassName   string `json:"className,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Label       string `json:"label,omitempty"`
	Value       string `json:"value,omitempty"`
}

// Form describes one <form>.
type Form struct {
	Action    string      `json:"action"`
	Method    string      `json:"method"`
	ID        string      `json:"id"`
	ClassName string      `json:"className"`
	Inputs    []FormInput `json:"inputs"`
}

// Endpoint is an API request seen while a phase ran.
type Endpoint struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

// NetworkFindings groups captured API requests. Headers are those of the last request.
type NetworkFindings struct {
	Endpoints []Endpoint        `json:"endpoints"`
	Headers   map[string]string `json:"headers"`
}

// LoginFindings is the result of the login phase.
type LoginFindings struct {
	Forms           []Form            `json:"forms"`
	LocalStorage    map[string]string `json:"localStorage"`
	NetworkRequests NetworkFindings   `json:"networkRequests"`
	SampleInputs    map[string]string `json:"sampleInputs"`
	URL             string            `json:"url"`
}

// AuthTokenFindings is the result of the authTokens phase.
type AuthTokenFindings struct {
	LocalStorage   map[string]string `json:"localStorage"`
	Cookies        []schemas.Cookie  `json:"cookies"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// Attribute is one name/value attribute pair.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DynamicElement is an element carrying a front-end framework binding.
type DynamicElement struct {
	TagName    string      `json:"tagName"`
	ID         string      `json:"id"`
	ClassName  string      `json:"className"`
	Attributes []Attribute `json:"attributes"`
}

// FileUpload describes an <input type=file>.
type FileUpload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Accept   string `json:"accept"`
	Multiple bool   `json:"multiple"`
}

// FieldGroup is a fieldset or form-group with its controls.
type FieldGroup struct {
	Title     string      `json:"title"`
	ID        string      `json:"id"`
	ClassName string      `json:"className"`
	Inputs    []FormInput `json:"inputs"`
}

// FormFindings is the result of the addAssetForm phase. When the form was
// unreachable only Error and URL are set.
type FormFindings struct {
	Forms           []Form           `json:"forms,omitempty"`
	DynamicElements []DynamicElement `json:"dynamicElements,omitempty"`
	APIEndpoints    []Endpoint       `json:"apiEndpoints,omitempty"`
	FileUploads     []FileUpload     `json:"fileUploads,omitempty"`
	FieldGroups     []FieldGroup     `json:"fieldGroups,omitempty"`
	URL             string           `json:"url"`
	Error           string           `json:"error,omitempty"`
}

// Blocked reports whether the form could not be analyzed.
func (f *FormFindings) Blocked() bool { return f != nil && f.Error != "" }

// SelectorFindings lists, per semantic field, the selectors that match
// something on the form page. Resolved maps each form slot to the selector the
// filler would use.
type SelectorFindings struct {
	Title        []string          `json:"title"`
	Description  []string          `json:"description"`
	URL          []string          `json:"url"`
	Tags         []string          `json:"tags"`
	Image        []string          `json:"image"`
	FileUpload   []string          `json:"fileUpload"`
	SubmitButton []string          `json:"submitButton"`
	Resolved     map[string]string `json:"resolved"`
}

// Snapshot is the combined result of a full analysis run.
type Snapshot struct {
	Login        *LoginFindings     `json:"login,omitempty"`
	AuthTokens   *AuthTokenFindings `json:"authTokens,omitempty"`
	AddAssetForm *FormFindings      `json:"addAssetForm,omitempty"`
	Selectors    *SelectorFindings  `json:"selectors,omitempty"`
}
