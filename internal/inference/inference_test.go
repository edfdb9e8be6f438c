package inference

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/reviewlens/reviewlens/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const validPlanJSON = `{
	"reviews_found": true,
	"selector_kind": "css",
	"container_selector": "div.review",
	"title_selector": {"selector": "h3"},
	"body_selector": {"selector": "p"}
}`

const testSnapshot = `<html><body><div class="review"><h3>Nice</h3><p>Good stuff</p></div></body></html>`

// fakeModel replays a scripted sequence of responses.
type fakeModel struct {
	responses []string
	errs      []error
	calls     int
}

func (m *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", errors.New("fakeModel: script exhausted")
}

type countingObserver struct{ retries int }

func (o *countingObserver) IncInferenceRetry() { o.retries++ }

func TestInferPlan(t *testing.T) {
	model := &fakeModel{responses: []string{validPlanJSON}}
	eng := New(model, DefaultConfig(), testLogger)

	p, err := eng.InferPlan(context.Background(), testSnapshot, "https://example.com/reviews")
	if err != nil {
		t.Fatalf("InferPlan() error = %v", err)
	}
	if p.ContainerSelector != "div.review" {
		t.Errorf("container = %q", p.ContainerSelector)
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want 1", model.calls)
	}
}

func TestInferPlanRetriesMalformed(t *testing.T) {
	model := &fakeModel{responses: []string{
		"I think the reviews are in div.review, hope that helps!",
		validPlanJSON,
	}}
	obs := &countingObserver{}
	eng := New(model, Config{MaxRetries: 2}, testLogger)
	eng.SetRetryObserver(obs)

	p, err := eng.InferPlan(context.Background(), testSnapshot, "https://example.com")
	if err != nil {
		t.Fatalf("InferPlan() error = %v", err)
	}
	if p == nil {
		t.Fatal("InferPlan() = nil plan")
	}
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}
	if obs.retries != 1 {
		t.Errorf("retries observed = %d, want 1", obs.retries)
	}
}

func TestInferPlanExhaustsRetries(t *testing.T) {
	model := &fakeModel{responses: []string{"nope", "still nope", "never"}}
	eng := New(model, Config{MaxRetries: 2}, testLogger)

	_, err := eng.InferPlan(context.Background(), testSnapshot, "https://example.com")
	var infErr *types.InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("InferPlan() error = %v, want *types.InferenceError", err)
	}
	if infErr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", infErr.Attempts)
	}
	if model.calls != 3 {
		t.Errorf("model called %d times, want 3", model.calls)
	}
}

func TestInferPlanNoReviewsNotRetried(t *testing.T) {
	model := &fakeModel{responses: []string{`{"reviews_found": false}`, validPlanJSON}}
	eng := New(model, Config{MaxRetries: 2}, testLogger)

	_, err := eng.InferPlan(context.Background(), testSnapshot, "https://example.com")
	if !errors.Is(err, types.ErrNoReviews) {
		t.Fatalf("InferPlan() error = %v, want ErrNoReviews", err)
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want 1; a clean no-reviews answer must not be retried", model.calls)
	}
}

func TestInferPlanModelErrorNotRetried(t *testing.T) {
	modelErr := &types.ModelError{Provider: "ollama", Reason: "connection refused", Err: errors.New("dial tcp")}
	model := &fakeModel{errs: []error{modelErr}, responses: []string{"", validPlanJSON}}
	eng := New(model, Config{MaxRetries: 2}, testLogger)

	_, err := eng.InferPlan(context.Background(), testSnapshot, "https://example.com")
	var infErr *types.InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("InferPlan() error = %v, want *types.InferenceError", err)
	}
	if !errors.Is(err, modelErr) {
		t.Errorf("InferPlan() error does not wrap the model error: %v", err)
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want 1; transport failures must not be retried", model.calls)
	}
}

func TestReduceDOM(t *testing.T) {
	const page = `<html><head><title>t</title><style>.a{color:red}</style></head>
	<body>
		<script>var tracking = "beacon";</script>
		<div class="review">Useful    content</div>
		<svg><path d="M0 0"/></svg>
	</body></html>`

	reduced, err := ReduceDOM(page, 64*1024)
	if err != nil {
		t.Fatalf("ReduceDOM() error = %v", err)
	}
	for _, gone := range []string{"tracking", "color:red", "<svg", "<script"} {
		if strings.Contains(reduced, gone) {
			t.Errorf("reduced DOM still contains %q", gone)
		}
	}
	if !strings.Contains(reduced, "Useful content") {
		t.Errorf("reduced DOM lost content or kept raw whitespace: %q", reduced)
	}
}

func TestReduceDOMTruncates(t *testing.T) {
	page := "<html><body><p>" + strings.Repeat("review text ", 4096) + "</p></body></html>"

	reduced, err := ReduceDOM(page, 1024)
	if err != nil {
		t.Fatalf("ReduceDOM() error = %v", err)
	}
	if len(reduced) > 1024 {
		t.Errorf("reduced DOM is %d bytes, cap is 1024", len(reduced))
	}
}

func TestReduceDOMTruncatesOnRuneBoundary(t *testing.T) {
	page := "<html><body><p>" + strings.Repeat("★", 2048) + "</p></body></html>"

	reduced, err := ReduceDOM(page, 1000)
	if err != nil {
		t.Fatalf("ReduceDOM() error = %v", err)
	}
	if len(reduced) > 1000 {
		t.Errorf("reduced DOM is %d bytes, cap is 1000", len(reduced))
	}
	if !utf8.ValidString(reduced) {
		t.Error("truncation split a multi-byte rune")
	}
}

func TestBuildPromptMentionsDomain(t *testing.T) {
	prompt := buildPrompt("<body></body>", "https://shop.example.com/product/42")
	if !strings.Contains(prompt, "shop.example.com") {
		t.Error("prompt does not name the page's domain")
	}
	if !strings.Contains(prompt, "reviews_found") {
		t.Error("prompt does not describe the response schema")
	}
}
