package types

// RawReview is a single review as lifted from the page, before any
// normalization. Every field is optional: a selector that fails to match
// within one container leaves the field nil, it does not fail the record.
type RawReview struct {
	Title     *string
	Body      *string
	RatingRaw *string
	Reviewer  *string
}

// NormalizedReview is the canonical output shape. Rating is on the 0–5 scale;
// it is nil whenever the raw rating was absent or unparseable; a value is
// never guessed.
type NormalizedReview struct {
	Title           *string  `json:"title"`
	Body            *string  `json:"body"`
	Reviewer        *string  `json:"reviewer"`
	Rating          *float64 `json:"rating"`
	SourcePageIndex int      `json:"source_page_index"`
}

// ScrapeResult is the final payload for one scrape request.
type ScrapeResult struct {
	Reviews   []NormalizedReview `json:"reviews"`
	PageCount int                `json:"page_count"`
	// PlanReused reports whether the inferred plan was applied to more than
	// one page of the same site.
	PlanReused bool `json:"plan_reused"`
}

// String returns a pointer to s. Convenience for building optional fields.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
