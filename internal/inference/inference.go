// Package inference turns a rendered page into an extraction plan by asking
// a language model to locate the review elements.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/reviewlens/reviewlens/internal/plan"
	"github.com/reviewlens/reviewlens/internal/types"
)

// ModelClient is the minimal contract the engine needs from an LLM backend.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config tunes the inference engine.
type Config struct {
	// MaxRetries bounds re-asks on malformed model output. Transport
	// failures and valid "no reviews" answers are never retried.
	MaxRetries int

	// MaxDOMBytes caps the reduced snapshot submitted to the model.
	MaxDOMBytes int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  2,
		MaxDOMBytes: 24 * 1024,
	}
}

// RetryObserver is notified when malformed model output forces a re-ask.
type RetryObserver interface {
	IncInferenceRetry()
}

// Engine infers extraction plans. It is invoked once per page template:
// callers reuse the returned plan across every page of the same paginated
// sequence instead of re-asking per page.
type Engine struct {
	model    ModelClient
	cfg      Config
	logger   *slog.Logger
	observer RetryObserver
}

// SetRetryObserver wires a retry counter. A nil observer is allowed.
func (e *Engine) SetRetryObserver(o RetryObserver) { e.observer = o }

// New creates an inference engine.
func New(model ModelClient, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxDOMBytes <= 0 {
		cfg.MaxDOMBytes = DefaultConfig().MaxDOMBytes
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Engine{
		model:  model,
		cfg:    cfg,
		logger: logger.With("component", "inference"),
	}
}

// InferPlan asks the model for an extraction plan for the given snapshot.
// It returns types.ErrNoReviews (unwrapped) when the model answers, well
// formed, that the page holds no reviews. All other failures surface as
// *types.InferenceError after the malformed-output retry budget is spent.
func (e *Engine) InferPlan(ctx context.Context, snapshot, pageURL string) (*plan.ExtractionPlan, error) {
	reduced, err := ReduceDOM(snapshot, e.cfg.MaxDOMBytes)
	if err != nil {
		return nil, &types.InferenceError{URL: pageURL, Attempts: 0, Err: err}
	}
	prompt := buildPrompt(reduced, pageURL)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		attempts++

		raw, err := e.model.Complete(ctx, prompt)
		if err != nil {
			// The backend itself is unusable; retrying the same call
			// will not fix quota or connectivity.
			return nil, &types.InferenceError{URL: pageURL, Attempts: attempts, Err: err}
		}

		p, err := plan.Decode(raw)
		if err == nil {
			e.logger.Info("plan inferred",
				"url", pageURL,
				"kind", p.Kind,
				"container", p.ContainerSelector,
				"attempts", attempts,
			)
			return p, nil
		}
		if errors.Is(err, types.ErrNoReviews) {
			e.logger.Info("model reports no reviews", "url", pageURL)
			return nil, types.ErrNoReviews
		}

		lastErr = err
		if e.observer != nil && attempt < e.cfg.MaxRetries {
			e.observer.IncInferenceRetry()
		}
		e.logger.Warn("malformed plan from model",
			"url", pageURL,
			"attempt", attempts,
			"error", err,
		)
	}

	return nil, &types.InferenceError{URL: pageURL, Attempts: attempts, Err: lastErr}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ReduceDOM shrinks a snapshot before prompt submission: scripts, styles and
// other non-structural subtrees are dropped, whitespace is collapsed, and
// the result is truncated to maxBytes on a rune boundary.
func ReduceDOM(snapshot string, maxBytes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return "", fmt.Errorf("parse snapshot: %w", err)
	}

	doc.Find("script, style, noscript, svg, iframe, link, template").Remove()

	body := doc.Find("body")
	reduced, err := goquery.OuterHtml(body)
	if err != nil || strings.TrimSpace(reduced) == "" {
		reduced, _ = doc.Html()
	}
	reduced = whitespaceRe.ReplaceAllString(reduced, " ")

	if len(reduced) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(reduced[cut]) {
			cut--
		}
		reduced = reduced[:cut]
	}
	return reduced, nil
}

// buildPrompt renders the selector-inference prompt. The model is told to
// answer with machine-parseable JSON only, no prose.
func buildPrompt(reducedDOM, pageURL string) string {
	domain := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		domain = u.Host
	}

	var b strings.Builder
	b.WriteString("You are a web scraping expert. Analyze the HTML below from ")
	b.WriteString(domain)
	b.WriteString(" and identify where customer reviews live.\n\n")
	b.WriteString(`Respond with a single JSON object and nothing else:
{
  "reviews_found": true,
  "selector_kind": "css",
  "container_selector": "<selector matching each individual review element>",
  "title_selector": {"selector": "<relative to container>", "attribute": ""},
  "body_selector": {"selector": "<relative to container>", "attribute": ""},
  "rating_selector": {"selector": "<relative to container>", "attribute": "<attribute holding the rating, or empty for text>"},
  "reviewer_selector": {"selector": "<relative to container>", "attribute": ""},
  "next_page_selector": {"selector": "<link or button to the next page of reviews>", "attribute": "href"}
}

Rules:
- selector_kind is "css" or "xpath"; prefer CSS, use XPath only when CSS cannot express the location.
- Field selectors are evaluated inside each container element.
- Use null for fields that do not exist on this page; title or body must be present.
- next_page_selector is null when the reviews are not paginated.
- If the page contains no reviews at all, respond {"reviews_found": false}.

HTML:
`)
	b.WriteString(reducedDOM)
	return b.String()
}
