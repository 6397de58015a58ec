// File: internal/selector/selector.go
package selector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Kind identifies how a candidate locates an element.
type Kind int

const (
	// ByID matches the exact id attribute.
	ByID Kind = iota
	// ByName matches the exact name attribute.
	ByName
	// ByPlaceholder matches a case-insensitive substring of the placeholder.
	ByPlaceholder
	// ByAriaLabel matches a case-insensitive substring of aria-label.
	ByAriaLabel
	// ByClass matches a single class token.
	ByClass
	// ByLabel matches a <label> whose text contains Value and follows its "for".
	ByLabel
	// ByCSS is a raw CSS selector.
	ByCSS
	// ByText matches visible text content; used for action elements.
	ByText
)

func (k Kind) String() string {
	switch k {
	case ByID:
		return "id"
	case ByName:
		return "name"
	case ByPlaceholder:
		return "placeholder"
	case ByAriaLabel:
		return "aria-label"
	case ByClass:
		return "class"
	case ByLabel:
		return "label"
	case ByCSS:
		return "css"
	case ByText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Candidate is one matching rule. Tag optionally narrows the element type
// (for example "input" or "textarea"); ByText defaults it to "button".
type Candidate struct {
	Kind  Kind
	Value string
	Tag   string
}

// CSS returns the selector a candidate compiles to. Label and text candidates
// have no static form and return "".
func (c Candidate) CSS() string {
	switch c.Kind {
	case ByID:
		return "#" + c.Value
	case ByName:
		return fmt.Sprintf(`%s[name=%q]`, c.Tag, c.Value)
	case ByPlaceholder:
		return fmt.Sprintf(`%s[placeholder*=%q i]`, c.Tag, c.Value)
	case ByAriaLabel:
		return fmt.Sprintf(`%s[aria-label*=%q i]`, c.Tag, c.Value)
	case ByClass:
		return c.Tag + "." + c.Value
	case ByCSS:
		return c.Value
	default:
		return ""
	}
}

func (c Candidate) String() string {
	if css := c.CSS(); css != "" {
		return css
	}
	if c.Kind == ByText {
		return fmt.Sprintf("%s:text(%q)", c.textTag(), c.Value)
	}
	return fmt.Sprintf("%s(%q)", c.Kind, c.Value)
}

func (c Candidate) textTag() string {
	if c.Tag == "" {
		return "button"
	}
	return c.Tag
}

// Slot is a named field-location task with its candidates in priority order.
type Slot struct {
	Name       string
	Candidates []Candidate
}

// Match is the outcome of a successful resolution.
type Match struct {
	Slot string
	// Selector addresses the matched element and can be passed back to the page.
	Selector  string
	Candidate Candidate
	// Index is the position of the winning candidate within the slot.
	Index int
}

// Querier is the query capability the resolver needs from a page or document.
type Querier interface {
	Count(ctx context.Context, selector string) (int, error)
	FindByLabel(ctx context.Context, text string) (string, bool, error)
	FindByText(ctx context.Context, tagSelector, text string) (string, bool, error)
}

// Resolver walks slot candidates in declared order and returns the first hit.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("selector")}
}

// Resolve returns the first candidate of slot that yields at least one element.
// There is no scoring: declaration order is the priority. A query error on one
// candidate is logged and treated as a miss for that candidate.
func (r *Resolver) Resolve(ctx context.Context, slot Slot, q Querier) (Match, bool) {
	for i, cand := range slot.Candidates {
		if ctx.Err() != nil {
			return Match{}, false
		}
		sel, ok, err := r.try(ctx, cand, q)
		if err != nil {
			r.logger.Debug("Selector candidate query failed.",
				zap.String("slot", slot.Name),
				zap.Stringer("candidate", cand),
				zap.Error(err))
			continue
		}
		if ok {
			r.logger.Debug("Resolved slot.",
				zap.String("slot", slot.Name),
				zap.Stringer("candidate", cand),
				zap.Int("index", i))
			return Match{Slot: slot.Name, Selector: sel, Candidate: cand, Index: i}, true
		}
	}
	r.logger.Debug("No candidate matched slot.", zap.String("slot", slot.Name))
	return Match{}, false
}

func (r *Resolver) try(ctx context.Context, cand Candidate, q Querier) (string, bool, error) {
	switch cand.Kind {
	case ByLabel:
		return q.FindByLabel(ctx, cand.Value)
	case ByText:
		return q.FindByText(ctx, cand.textTag(), cand.Value)
	default:
		css := cand.CSS()
		if css == "" {
			return "", false, fmt.Errorf("candidate %v has no selector form", cand)
		}
		n, err := q.Count(ctx, css)
		if err != nil {
			return "", false, err
		}
		return css, n > 0, nil
	}
}

// VisibleQuerier is a Querier that can also tell rendered elements from hidden ones.
type VisibleQuerier interface {
	Querier
	CountVisible(ctx context.Context, selector string) (int, error)
}

// Presence is what one candidate addressed at a point in time.
type Presence struct {
	Candidate Candidate
	// Selector is empty when the candidate found nothing.
	Selector string
	Visible  int
}

// Observe records, for every candidate of slot, the element it addresses and
// how many matching elements are visible. Query errors read as absent.
func (r *Resolver) Observe(ctx context.Context, slot Slot, q VisibleQuerier) []Presence {
	out := make([]Presence, len(slot.Candidates))
	for i, cand := range slot.Candidates {
		out[i].Candidate = cand
		if ctx.Err() != nil {
			continue
		}
		sel, ok, err := r.try(ctx, cand, q)
		if err == nil && ok {
			var n int
			n, err = q.CountVisible(ctx, sel)
			out[i].Selector, out[i].Visible = sel, n
		}
		if err != nil {
			r.logger.Debug("Selector candidate query failed.",
				zap.String("slot", slot.Name),
				zap.Stringer("candidate", cand),
				zap.Error(err))
		}
	}
	return out
}

// Appeared returns the first candidate that is visible in after but was not
// in before: it addresses a different element now, or more of them are visible.
// before and after must come from Observe on the same slot.
func Appeared(before, after []Presence) (Presence, bool) {
	for i, now := range after {
		if now.Visible == 0 {
			continue
		}
		if i >= len(before) {
			return now, true
		}
		was := before[i]
		if was.Selector != now.Selector || now.Visible > was.Visible {
			return now, true
		}
	}
	return Presence{}, false
}
