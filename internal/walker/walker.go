// Package walker drives a scrape session across paginated review pages.
package walker

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/extractor"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/plan"
	"github.com/reviewlens/reviewlens/internal/rating"
	"github.com/reviewlens/reviewlens/internal/renderer"
	"github.com/reviewlens/reviewlens/internal/selector"
	"github.com/reviewlens/reviewlens/internal/types"
)

// Config bounds a scrape session.
type Config struct {
	// MaxPages is the hard ceiling on pages walked per session. Pagination
	// links are untrusted input.
	MaxPages int

	// Timeout bounds total session wall-clock time. Zero means the caller's
	// context is the only bound.
	Timeout time.Duration
}

// DefaultConfig returns walker defaults.
func DefaultConfig() Config {
	return Config{
		MaxPages: 20,
		Timeout:  2 * time.Minute,
	}
}

// state is the walker's position in the RENDER/EXTRACT/DECIDE cycle.
type state int

const (
	stateRender state = iota
	stateExtract
	stateDecide
	stateDone
)

// Session owns one scrape: the renderer handle, the inferred plan, the
// accumulated reviews, and the visited-page set. Sessions are single-use and
// never shared between requests.
type Session struct {
	renderer renderer.Renderer
	extr     *extractor.Extractor
	plan     *plan.ExtractionPlan
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics

	visited map[string]bool
	reviews []types.NormalizedReview
	pages   int
}

// NewSession creates a session around an already-acquired renderer and an
// inferred plan. The caller keeps ownership of the renderer's release.
func NewSession(r renderer.Renderer, ex *extractor.Extractor, p *plan.ExtractionPlan, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Session {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	return &Session{
		renderer: r,
		extr:     ex,
		plan:     p,
		cfg:      cfg,
		logger:   logger.With("component", "walker"),
		metrics:  metrics,
		visited:  make(map[string]bool),
	}
}

// Run walks the paginated sequence starting from the first page's snapshot
// (already rendered for inference) and returns the accumulated reviews and
// the number of pages extracted.
//
// On session timeout the walk ends as if DONE were reached: the partial
// results are returned together with types.ErrSessionTimeout. A renderer
// failure mid-walk also returns what was gathered so far, with the cause.
func (s *Session) Run(ctx context.Context, first renderer.Snapshot) ([]types.NormalizedReview, int, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var (
		snap    = first
		target  string
		doc     *selector.Document
		st      = stateExtract // page 1 arrives pre-rendered
		walkErr error
	)

	for st != stateDone {
		if ctx.Err() != nil {
			s.logger.Warn("session deadline reached, returning partial results",
				"pages", s.pages,
				"reviews", len(s.reviews),
			)
			walkErr = types.ErrSessionTimeout
			break
		}

		switch st {
		case stateRender:
			next, err := s.renderer.Render(ctx, target)
			if err != nil {
				if ctx.Err() != nil {
					walkErr = types.ErrSessionTimeout
				} else {
					walkErr = err
				}
				st = stateDone
				continue
			}
			s.metrics.IncPages()
			snap = next
			st = stateExtract

		case stateExtract:
			s.markVisited(snap.URL)
			var err error
			doc, err = s.extractPage(snap)
			if err != nil {
				walkErr = err
				st = stateDone
				continue
			}
			st = stateDecide

		case stateDecide:
			var err error
			target, snap, st, err = s.decide(ctx, doc, snap)
			if err != nil {
				walkErr = err
				st = stateDone
			}
		}
	}

	s.logger.Info("walk complete",
		"pages", s.pages,
		"reviews", len(s.reviews),
		"err", walkErr,
	)
	return s.reviews, s.pages, walkErr
}

// extractPage parses a snapshot, applies the plan, normalizes each record,
// and appends the results tagged with the current page index.
func (s *Session) extractPage(snap renderer.Snapshot) (*selector.Document, error) {
	doc, err := selector.Parse(snap.HTML)
	if err != nil {
		return nil, &types.RenderError{URL: snap.URL, Reason: "unparseable snapshot", Err: err}
	}

	records, err := s.extr.Extract(doc, s.plan)
	if err != nil {
		return nil, err
	}

	s.pages++
	for _, r := range records {
		s.reviews = append(s.reviews, types.NormalizedReview{
			Title:           r.Title,
			Body:            r.Body,
			Reviewer:        r.Reviewer,
			Rating:          rating.Normalize(r.RatingRaw),
			SourcePageIndex: s.pages,
		})
	}
	s.metrics.AddReviews(len(records))

	s.logger.Debug("page extracted",
		"page", s.pages,
		"url", snap.URL,
		"records", len(records),
	)
	return doc, nil
}

// decide locates the next-page element and picks the transition out of
// DECIDE. It returns the render target (href case) or a fresh snapshot
// (click case) along with the next state.
func (s *Session) decide(ctx context.Context, doc *selector.Document, snap renderer.Snapshot) (string, renderer.Snapshot, state, error) {
	if s.plan.NextPage == nil {
		return "", snap, stateDone, nil
	}
	if s.pages >= s.cfg.MaxPages {
		s.logger.Warn("max page count reached", "max_pages", s.cfg.MaxPages)
		return "", snap, stateDone, nil
	}

	node, err := doc.First(s.plan.Kind, s.plan.NextPage.Selector)
	if err != nil || node == nil {
		// Absent next element ends the walk; a selector error cannot happen
		// for a validated plan but would end it the same way.
		return "", snap, stateDone, nil
	}
	if disabled(node) {
		s.logger.Debug("next-page element disabled", "page", s.pages)
		return "", snap, stateDone, nil
	}

	if href := nextHref(node, s.plan.NextPage.Attribute); href != "" {
		target := resolveURL(snap.URL, href)
		if target == "" {
			return "", snap, stateDone, nil
		}
		if s.seen(target) {
			s.logger.Warn("pagination loop detected", "target", target)
			return "", snap, stateDone, nil
		}
		return target, snap, stateRender, nil
	}

	// No usable href: a button-style pager. Ask the renderer to click it.
	clicked, err := s.renderer.Click(ctx, s.plan.Kind, s.plan.NextPage.Selector)
	if err != nil {
		if errors.Is(err, types.ErrInteractionUnsupported) {
			s.logger.Debug("next-page element not followable by this renderer")
			return "", snap, stateDone, nil
		}
		if ctx.Err() != nil {
			return "", snap, stateDone, types.ErrSessionTimeout
		}
		return "", snap, stateDone, err
	}
	s.metrics.IncPages()
	if s.seen(clicked.URL) {
		s.logger.Warn("pagination loop detected after click", "url", clicked.URL)
		return "", snap, stateDone, nil
	}
	return "", clicked, stateExtract, nil
}

// disabled reports whether a pager element is marked unusable.
func disabled(n *selector.Node) bool {
	if n.HasAttr("disabled") {
		return true
	}
	if v, ok := n.Attr("aria-disabled"); ok && strings.EqualFold(v, "true") {
		return true
	}
	return n.HasClass("disabled")
}

// nextHref extracts a followable link target from the pager element.
// Fragment-only and javascript: pseudo-links are not followable.
func nextHref(n *selector.Node, attr string) string {
	if attr == "" {
		attr = "href"
	}
	href, ok := n.Attr(attr)
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	return href
}

// resolveURL resolves href against the page URL. Returns "" when the result
// is not an http(s) URL.
func resolveURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// markVisited records a page identifier in the loop-guard set.
func (s *Session) markVisited(pageURL string) {
	if id := pageID(pageURL); id != "" {
		s.visited[id] = true
	}
}

// seen reports whether a page identifier was already walked.
func (s *Session) seen(pageURL string) bool {
	id := pageID(pageURL)
	return id != "" && s.visited[id]
}

// pageID normalizes a URL into a loop-guard identity: scheme and host are
// case-insensitive, fragments are irrelevant.
func pageID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}
