// Package extractor applies an extraction plan to a rendered page snapshot.
package extractor

import (
	"log/slog"

	"github.com/reviewlens/reviewlens/internal/plan"
	"github.com/reviewlens/reviewlens/internal/selector"
	"github.com/reviewlens/reviewlens/internal/types"
)

// ratingFallbackAttrs are tried in order when the plan's rating rule does not
// yield a value. Review widgets commonly stash the numeric rating in one of
// these instead of visible text.
var ratingFallbackAttrs = []string{"data-rating", "content", "aria-label", "title"}

// Extractor walks plan containers in a snapshot and lifts raw review records.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "extractor"),
	}
}

// Extract returns one RawReview per container element matched by the plan.
// A field selector that fails to match leaves that field nil; a record is
// never dropped for a malformed child. An unmatched container selector
// yields an empty slice: an empty page is a legitimate outcome.
//
// The returned error is reserved for plans that should never have reached
// extraction (failed validation upstream).
func (e *Extractor) Extract(doc *selector.Document, p *plan.ExtractionPlan) ([]types.RawReview, error) {
	if err := p.Validate(); err != nil {
		return nil, &types.ExtractionError{Selector: p.ContainerSelector, Err: err}
	}

	containers, err := doc.All(p.Kind, p.ContainerSelector)
	if err != nil {
		// Validate compiles every selector, so this is an invariant failure.
		return nil, &types.ExtractionError{Selector: p.ContainerSelector, Err: err}
	}

	records := make([]types.RawReview, 0, len(containers))
	for _, c := range containers {
		records = append(records, types.RawReview{
			Title:     e.field(c, p.Kind, p.Title),
			Body:      e.field(c, p.Kind, p.Body),
			RatingRaw: e.ratingField(c, p.Kind, p.Rating),
			Reviewer:  e.field(c, p.Kind, p.Reviewer),
		})
	}

	e.logger.Debug("extraction complete",
		"containers", len(containers),
		"selector", p.ContainerSelector,
	)
	return records, nil
}

// field resolves one field rule within a container. Missing rule, missing
// element, or empty value all degrade to nil.
func (e *Extractor) field(c *selector.Node, kind plan.SelectorKind, rule *plan.FieldRule) *string {
	node := e.resolve(c, kind, rule)
	if node == nil {
		return nil
	}
	return value(node, rule.Attribute)
}

// ratingField resolves the rating rule, then falls back through the common
// rating-bearing attributes before settling on text content. The raw string
// is preserved as-is for the normalizer; malformed values are its problem.
func (e *Extractor) ratingField(c *selector.Node, kind plan.SelectorKind, rule *plan.FieldRule) *string {
	node := e.resolve(c, kind, rule)
	if node == nil {
		return nil
	}

	if rule.Attribute != "" && rule.Attribute != "text" {
		if v := value(node, rule.Attribute); v != nil {
			return v
		}
	}
	for _, attr := range ratingFallbackAttrs {
		if v := value(node, attr); v != nil {
			return v
		}
	}
	return value(node, "")
}

// resolve finds the element for a field rule inside the container subtree.
func (e *Extractor) resolve(c *selector.Node, kind plan.SelectorKind, rule *plan.FieldRule) *selector.Node {
	if rule == nil {
		return nil
	}
	node, err := c.Find(kind, rule.Selector)
	if err != nil {
		e.logger.Warn("field selector failed", "selector", rule.Selector, "error", err)
		return nil
	}
	return node
}

// value reads the attribute (or text when attr is empty) from a node,
// returning nil for absent or blank values.
func value(n *selector.Node, attr string) *string {
	var v string
	if attr == "" || attr == "text" {
		v = n.Text()
	} else {
		av, ok := n.Attr(attr)
		if !ok {
			return nil
		}
		v = av
	}
	if v == "" {
		return nil
	}
	return &v
}
