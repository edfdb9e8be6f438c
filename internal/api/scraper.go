package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/reviewlens/reviewlens/internal/extractor"
	"github.com/reviewlens/reviewlens/internal/inference"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/renderer"
	"github.com/reviewlens/reviewlens/internal/types"
	"github.com/reviewlens/reviewlens/internal/walker"
)

// Scraper runs one complete scrape per call: render, infer, walk, normalize.
// It is safe for concurrent use; every call gets its own renderer and
// session state.
type Scraper struct {
	renderers renderer.Factory
	engine    *inference.Engine
	extr      *extractor.Extractor
	cfg       walker.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewScraper wires the pipeline components together.
func NewScraper(renderers renderer.Factory, engine *inference.Engine, cfg walker.Config, logger *slog.Logger, metrics *observability.Metrics) *Scraper {
	return &Scraper{
		renderers: renderers,
		engine:    engine,
		extr:      extractor.New(logger),
		cfg:       cfg,
		logger:    logger.With("component", "scraper"),
		metrics:   metrics,
	}
}

// Scrape extracts all reviews reachable from the URL. The renderer acquired
// for the session is released on every exit path. A session timeout returns
// the partial result with a nil error: partial success beats total failure.
func (s *Scraper) Scrape(ctx context.Context, url string) (*types.ScrapeResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveSession(time.Since(start))
	}()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	r, err := s.renderers.New(ctx)
	if err != nil {
		s.fail("render_error")
		return nil, err
	}
	defer r.Release()

	first, err := r.Render(ctx, url)
	if err != nil {
		s.fail("render_error")
		return nil, err
	}
	s.metrics.IncPages()

	p, err := s.engine.InferPlan(ctx, first.HTML, first.URL)
	if errors.Is(err, types.ErrNoReviews) {
		s.metrics.IncSession("no_reviews")
		return &types.ScrapeResult{
			Reviews:   []types.NormalizedReview{},
			PageCount: 1,
		}, nil
	}
	if err != nil {
		s.fail("inference_error")
		return nil, err
	}

	// The walker owns the per-page loop; the session timeout already bounds
	// this context, so the walker gets no second deadline.
	sess := walker.NewSession(r, s.extr, p, walker.Config{MaxPages: s.cfg.MaxPages}, s.logger, s.metrics)
	reviews, pages, err := sess.Run(ctx, first)

	result := &types.ScrapeResult{
		Reviews:    reviews,
		PageCount:  pages,
		PlanReused: pages > 1,
	}
	if result.Reviews == nil {
		result.Reviews = []types.NormalizedReview{}
	}

	switch {
	case errors.Is(err, types.ErrSessionTimeout):
		s.logger.Warn("session timed out, returning partial results",
			"url", url,
			"pages", pages,
			"reviews", len(reviews),
		)
		s.metrics.IncSession("timeout")
		return result, nil
	case err != nil:
		s.fail("render_error")
		return result, err
	}

	s.metrics.IncSession("ok")
	s.logger.Info("scrape complete",
		"url", url,
		"pages", pages,
		"reviews", len(reviews),
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *Scraper) fail(kind string) {
	s.metrics.IncSession(kind)
	s.metrics.IncError(kind)
}
