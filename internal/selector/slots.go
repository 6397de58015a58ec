// File: internal/selector/slots.go
package selector

// The tables below are the whole locating policy for the login and add-asset
// pages. Order within a slot is priority.

// -- Authentication --

// TokenField locates the access-token input on the login page.
var TokenField = Slot{
	Name: "token field",
	Candidates: []Candidate{
		{Kind: ByPlaceholder, Tag: "input", Value: "token"},
		{Kind: ByID, Value: "accessToken"},
		{Kind: ByName, Tag: "input", Value: "token"},
	},
}

// APIKeyField locates the API key input on the login page.
var APIKeyField = Slot{
	Name: "api key field",
	Candidates: []Candidate{
		{Kind: ByPlaceholder, Tag: "input", Value: "api"},
		{Kind: ByID, Value: "apiKey"},
		{Kind: ByName, Tag: "input", Value: "apiKey"},
		{Kind: ByName, Tag: "input", Value: "api_key"},
	},
}

// UsernameField locates the username or email input.
var UsernameField = Slot{
	Name: "username field",
	Candidates: []Candidate{
		{Kind: ByID, Value: "username"},
		{Kind: ByID, Value: "email"},
		{Kind: ByName, Tag: "input", Value: "username"},
		{Kind: ByName, Tag: "input", Value: "email"},
		{Kind: ByCSS, Value: `input[type="email"]`},
		{Kind: ByPlaceholder, Tag: "input", Value: "username"},
		{Kind: ByPlaceholder, Tag: "input", Value: "email"},
		{Kind: ByLabel, Value: "Username"},
		{Kind: ByLabel, Value: "Email"},
	},
}

// PasswordField locates the password input.
var PasswordField = Slot{
	Name: "password field",
	Candidates: []Candidate{
		{Kind: ByID, Value: "password"},
		{Kind: ByName, Tag: "input", Value: "password"},
		{Kind: ByCSS, Value: `input[type="password"]`},
		{Kind: ByPlaceholder, Tag: "input", Value: "password"},
		{Kind: ByLabel, Value: "Password"},
	},
}

// LoginSubmit locates the control that submits the login form.
var LoginSubmit = Slot{
	Name: "login submit",
	Candidates: []Candidate{
		{Kind: ByCSS, Value: `button[type="submit"]`},
		{Kind: ByCSS, Value: `input[type="submit"]`},
		{Kind: ByText, Value: "Log in"},
		{Kind: ByText, Value: "Login"},
		{Kind: ByText, Value: "Sign in"},
	},
}

// -- Add asset form --

// TitleField locates the asset title input.
var TitleField = Slot{
	Name: "title field",
	Candidates: []Candidate{
		{Kind: ByID, Value: "title"},
		{Kind: ByName, Tag: "input", Value: "title"},
		{Kind: ByPlaceholder, Tag: "input", Value: "title"},
		{Kind: ByPlaceholder, Tag: "input", Value: "name"},
		{Kind: ByAriaLabel, Tag: "input", Value: "title"},
		{Kind: ByLabel, Value: "Title"},
	},
}

// DescriptionField locates the asset description textarea or input.
var DescriptionField = Slot{
	Name: "description field",
	Candidates: []Candidate{
		{Kind: ByID, Value: "description"},
		{Kind: ByName, Tag: "textarea", Value: "description"},
		{Kind: ByPlaceholder, Tag: "textarea", Value: "description"},
		{Kind: ByAriaLabel, Tag: "textarea", Value: "description"},
		{Kind: ByLabel, Value: "Description"},
	},
}

// URLField locates the source URL input.
var URLField = Slot{
	Name: "url field",
	Candidates: []Candidate{
		{Kind: ByID, Value: "url"},
		{Kind: ByName, Tag: "input", Value: "url"},
		{Kind: ByCSS, Value: `input[type="url"]`},
		{Kind: ByPlaceholder, Tag: "input", Value: "url"},
		{Kind: ByPlaceholder, Tag: "input", Value: "link"},
		{Kind: ByLabel, Value: "URL"},
	},
}

// TagsField locates the tag entry; each tag is typed and confirmed with Enter.
var TagsField = Slot{
	Name: "tags field",
	Candidates: []Candidate{
		{Kind: ByName, Tag: "input", Value: "tags"},
		{Kind: ByPlaceholder, Tag: "input", Value: "tag"},
		{Kind: ByClass, Value: "tags-input"},
		{Kind: ByCSS, Value: `div[role="combobox"]`},
	},
}

// FileInput locates the image upload input.
var FileInput = Slot{
	Name: "file input",
	Candidates: []Candidate{
		{Kind: ByCSS, Value: `input[type="file"]`},
	},
}

// SubmitButton locates the control that submits the add-asset form.
var SubmitButton = Slot{
	Name: "submit button",
	Candidates: []Candidate{
		{Kind: ByID, Value: "submit-button"},
		{Kind: ByCSS, Value: `button[type="submit"]`},
		{Kind: ByCSS, Value: `input[type="submit"]`},
		{Kind: ByText, Value: "Submit"},
		{Kind: ByText, Value: "Create"},
		{Kind: ByText, Value: "Add"},
	},
}

// SuccessIndicator locates the confirmation shown after a successful submission.
var SuccessIndicator = Slot{
	Name: "success indicator",
	Candidates: []Candidate{
		{Kind: ByClass, Value: "success-message"},
		{Kind: ByClass, Value: "alert-success"},
		{Kind: ByText, Tag: "div", Value: "successfully"},
		{Kind: ByText, Tag: "div", Value: "Success"},
	},
}

// FormSlots are the add-asset slots reported by site analysis.
var FormSlots = []Slot{TitleField, DescriptionField, URLField, TagsField, FileInput, SubmitButton}

// LoginSlots are the login slots reported by site analysis.
var LoginSlots = []Slot{TokenField, APIKeyField, UsernameField, PasswordField, LoginSubmit}
