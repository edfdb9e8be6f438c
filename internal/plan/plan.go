// Package plan defines the extraction plan: the data contract between
// selector inference and review extraction.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"

	"github.com/reviewlens/reviewlens/internal/types"
)

// SelectorKind identifies the selector language used by a plan.
type SelectorKind string

const (
	KindCSS   SelectorKind = "css"
	KindXPath SelectorKind = "xpath"
)

// FieldRule locates one review field relative to its container element.
// An empty Attribute means the element's text content.
type FieldRule struct {
	Selector  string `json:"selector"`
	Attribute string `json:"attribute,omitempty"`
}

// UnmarshalJSON accepts both the object form {"selector": ..., "attribute": ...}
// and a bare selector string. Models asked for strict JSON still drift between
// the two.
func (r *FieldRule) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r.Selector = s
		return nil
	}
	type alias FieldRule
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = FieldRule(a)
	return nil
}

// ExtractionPlan describes where review fields live on one page template.
// It is created once per template by inference and applied unchanged to every
// page of the paginated sequence.
type ExtractionPlan struct {
	ContainerSelector string       `json:"container_selector"`
	Title             *FieldRule   `json:"title_selector"`
	Body              *FieldRule   `json:"body_selector"`
	Rating            *FieldRule   `json:"rating_selector"`
	Reviewer          *FieldRule   `json:"reviewer_selector"`
	NextPage          *FieldRule   `json:"next_page_selector"`
	Kind              SelectorKind `json:"selector_kind"`
}

// Validate checks the plan invariants: a non-empty container selector, at
// least one content field (title or body), a known selector kind, and
// compilable selector expressions. A plan failing validation must never
// reach the extractor.
func (p *ExtractionPlan) Validate() error {
	if strings.TrimSpace(p.ContainerSelector) == "" {
		return fmt.Errorf("container_selector is empty")
	}
	if !ruleSet(p.Title) && !ruleSet(p.Body) {
		return fmt.Errorf("plan has no content fields: title_selector and body_selector are both empty")
	}
	if p.Kind != KindCSS && p.Kind != KindXPath {
		return fmt.Errorf("selector_kind must be %q or %q, got %q", KindCSS, KindXPath, p.Kind)
	}

	for name, sel := range map[string]string{
		"container_selector": p.ContainerSelector,
		"title_selector":     ruleSelector(p.Title),
		"body_selector":      ruleSelector(p.Body),
		"rating_selector":    ruleSelector(p.Rating),
		"reviewer_selector":  ruleSelector(p.Reviewer),
		"next_page_selector": ruleSelector(p.NextPage),
	} {
		if sel == "" {
			continue
		}
		if err := compileCheck(p.Kind, sel); err != nil {
			return fmt.Errorf("%s %q: %w", name, sel, err)
		}
	}
	return nil
}

// ruleSet reports whether a field rule carries a usable selector.
func ruleSet(r *FieldRule) bool {
	return r != nil && strings.TrimSpace(r.Selector) != ""
}

func ruleSelector(r *FieldRule) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Selector)
}

// compileCheck verifies a selector expression parses in the plan's language.
func compileCheck(kind SelectorKind, sel string) error {
	switch kind {
	case KindCSS:
		if _, err := cascadia.Parse(sel); err != nil {
			return fmt.Errorf("invalid CSS selector: %w", err)
		}
	case KindXPath:
		if _, err := xpath.Compile(sel); err != nil {
			return fmt.Errorf("invalid XPath expression: %w", err)
		}
	}
	return nil
}

// response is the wire shape the model is asked to produce.
type response struct {
	ReviewsFound *bool `json:"reviews_found"`
	ExtractionPlan
}

// Decode parses a model response into a validated plan. The response may wrap
// the JSON object in prose or a markdown fence; everything outside the first
// balanced JSON object is ignored. A well-formed response with
// "reviews_found": false yields types.ErrNoReviews.
func Decode(raw string) (*ExtractionPlan, error) {
	obj := extractJSON(raw)
	if obj == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var r response
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	if r.ReviewsFound != nil && !*r.ReviewsFound {
		return nil, types.ErrNoReviews
	}

	p := r.ExtractionPlan
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("plan validation: %w", err)
	}
	return &p, nil
}

// normalize trims selectors, drops rules without a selector, lowercases the
// kind, and defaults the next-page attribute to href.
func (p *ExtractionPlan) normalize() {
	p.ContainerSelector = strings.TrimSpace(p.ContainerSelector)
	p.Kind = SelectorKind(strings.ToLower(strings.TrimSpace(string(p.Kind))))
	if p.Kind == "" {
		p.Kind = KindCSS
	}

	for _, r := range []**FieldRule{&p.Title, &p.Body, &p.Rating, &p.Reviewer, &p.NextPage} {
		if *r == nil {
			continue
		}
		(*r).Selector = strings.TrimSpace((*r).Selector)
		(*r).Attribute = strings.TrimSpace((*r).Attribute)
		if (*r).Selector == "" {
			*r = nil
		}
	}

	if p.NextPage != nil && p.NextPage.Attribute == "" {
		p.NextPage.Attribute = "href"
	}
}

// extractJSON finds the first balanced JSON object in s. Returns "" when
// there is none.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
