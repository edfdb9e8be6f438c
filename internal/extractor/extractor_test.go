package extractor

import (
	"log/slog"
	"os"
	"testing"

	"github.com/reviewlens/reviewlens/internal/plan"
	"github.com/reviewlens/reviewlens/internal/selector"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testHTML = `<!DOCTYPE html>
<html>
<body>
	<div class="review">
		<h3 class="title">Solid purchase</h3>
		<p class="body">Does what it says on the tin.</p>
		<span class="stars" data-rating="4.5">★★★★☆</span>
		<span class="author">Dana</span>
	</div>
	<div class="review">
		<h3 class="title">Broke in a week</h3>
		<p class="body">Would not buy again.</p>
		<span class="stars">1 star</span>
	</div>
	<div class="review">
		<p class="body">No title on this one.</p>
		<span class="author">Kim</span>
	</div>
</body>
</html>`

func testPlan() *plan.ExtractionPlan {
	return &plan.ExtractionPlan{
		ContainerSelector: "div.review",
		Title:             &plan.FieldRule{Selector: "h3.title"},
		Body:              &plan.FieldRule{Selector: "p.body"},
		Rating:            &plan.FieldRule{Selector: "span.stars"},
		Reviewer:          &plan.FieldRule{Selector: "span.author"},
		Kind:              plan.KindCSS,
	}
}

func parse(t *testing.T, html string) *selector.Document {
	t.Helper()
	doc, err := selector.Parse(html)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestExtract(t *testing.T) {
	ex := New(testLogger)
	records, err := ex.Extract(parse(t, testHTML), testPlan())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Extract() returned %d records, want 3", len(records))
	}

	first := records[0]
	if first.Title == nil || *first.Title != "Solid purchase" {
		t.Errorf("first.Title = %v", first.Title)
	}
	if first.Body == nil || *first.Body != "Does what it says on the tin." {
		t.Errorf("first.Body = %v", first.Body)
	}
	if first.Reviewer == nil || *first.Reviewer != "Dana" {
		t.Errorf("first.Reviewer = %v", first.Reviewer)
	}
	// data-rating attribute wins over the glyph text.
	if first.RatingRaw == nil || *first.RatingRaw != "4.5" {
		t.Errorf("first.RatingRaw = %v", first.RatingRaw)
	}
}

// A record missing some fields is kept with those fields nil, and its
// populated fields are untouched.
func TestExtractResilience(t *testing.T) {
	ex := New(testLogger)
	records, err := ex.Extract(parse(t, testHTML), testPlan())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	second := records[1]
	if second.Reviewer != nil {
		t.Errorf("second.Reviewer = %q, want nil", *second.Reviewer)
	}
	if second.RatingRaw == nil || *second.RatingRaw != "1 star" {
		t.Errorf("second.RatingRaw = %v, want raw text preserved", second.RatingRaw)
	}

	third := records[2]
	if third.Title != nil {
		t.Errorf("third.Title = %q, want nil", *third.Title)
	}
	if third.Body == nil || *third.Body != "No title on this one." {
		t.Errorf("third.Body = %v", third.Body)
	}
	if third.RatingRaw != nil {
		t.Errorf("third.RatingRaw = %q, want nil", *third.RatingRaw)
	}
}

func TestExtractNoContainers(t *testing.T) {
	ex := New(testLogger)
	records, err := ex.Extract(parse(t, "<html><body><p>nothing here</p></body></html>"), testPlan())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Extract() returned %d records, want 0", len(records))
	}
}

func TestExtractInvalidPlan(t *testing.T) {
	ex := New(testLogger)
	bad := &plan.ExtractionPlan{Kind: plan.KindCSS}
	if _, err := ex.Extract(parse(t, testHTML), bad); err == nil {
		t.Error("Extract() with invalid plan succeeded, want error")
	}
}

func TestExtractRatingAttributeFallback(t *testing.T) {
	const html = `<html><body>
		<div class="review">
			<p class="body">Accessible rating markup.</p>
			<span class="stars" aria-label="3 out of 5 stars"></span>
		</div>
	</body></html>`

	p := &plan.ExtractionPlan{
		ContainerSelector: "div.review",
		Body:              &plan.FieldRule{Selector: "p.body"},
		Rating:            &plan.FieldRule{Selector: "span.stars"},
		Kind:              plan.KindCSS,
	}

	ex := New(testLogger)
	records, err := ex.Extract(parse(t, html), p)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].RatingRaw == nil || *records[0].RatingRaw != "3 out of 5 stars" {
		t.Errorf("RatingRaw = %v, want aria-label fallback", records[0].RatingRaw)
	}
}

func TestExtractXPathPlan(t *testing.T) {
	p := &plan.ExtractionPlan{
		ContainerSelector: `//div[@class='review']`,
		Title:             &plan.FieldRule{Selector: `.//h3[@class='title']`},
		Body:              &plan.FieldRule{Selector: `.//p[@class='body']`},
		Kind:              plan.KindXPath,
	}

	ex := New(testLogger)
	records, err := ex.Extract(parse(t, testHTML), p)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Title == nil || *records[0].Title != "Solid purchase" {
		t.Errorf("records[0].Title = %v", records[0].Title)
	}
}
