package renderer

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/reviewlens/reviewlens/internal/plan"
	"github.com/reviewlens/reviewlens/internal/types"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticConfig controls the plain-HTTP renderer.
type StaticConfig struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int64
}

// DefaultStaticConfig returns static renderer defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		Timeout:     30 * time.Second,
		MaxBodySize: 10 * 1024 * 1024,
	}
}

// StaticRenderer fetches pages over plain HTTP without executing JavaScript.
// It serves server-rendered review sites where a browser process is wasted
// weight, and it cannot click anything.
type StaticRenderer struct {
	client *http.Client
	cfg    StaticConfig
	logger *slog.Logger
}

// NewStaticRenderer creates a static HTTP renderer.
func NewStaticRenderer(cfg StaticConfig, logger *slog.Logger) *StaticRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultStaticConfig().MaxBodySize
	}
	return &StaticRenderer{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				// Decompression handled below so brotli is covered too.
				DisableCompression: true,
			},
		},
		cfg:    cfg,
		logger: logger.With("component", "static_renderer"),
	}
}

// Render implements Renderer.
func (sr *StaticRenderer) Render(ctx context.Context, url string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Snapshot{}, &types.RenderError{URL: url, Reason: "build request", Err: err}
	}

	ua := sr.cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := sr.client.Do(req)
	if err != nil {
		return Snapshot{}, &types.RenderError{URL: url, Reason: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Snapshot{}, &types.RenderError{
			URL:    url,
			Reason: "fetch",
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, sr.cfg.MaxBodySize))
	if err != nil {
		return Snapshot{}, &types.RenderError{URL: url, Reason: "decompress", Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return Snapshot{}, &types.RenderError{URL: url, Reason: "read body", Err: err}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	sr.logger.Debug("page fetched",
		"url", finalURL,
		"size", len(body),
		"duration", time.Since(start),
	)
	return Snapshot{HTML: string(body), URL: finalURL}, nil
}

// Click implements Renderer. Static pages cannot be interacted with; the
// walker treats this as "next page unreachable" and stops.
func (sr *StaticRenderer) Click(ctx context.Context, kind plan.SelectorKind, sel string) (Snapshot, error) {
	return Snapshot{}, types.ErrInteractionUnsupported
}

// Release implements Renderer.
func (sr *StaticRenderer) Release() {
	sr.client.CloseIdleConnections()
}

// decompressReader wraps the body reader according to Content-Encoding.
// Handles gzip, deflate, and brotli.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// StaticFactory hands out static renderers. They are cheap, so each session
// still gets its own instance for symmetry with the browser factory.
type StaticFactory struct {
	cfg    StaticConfig
	logger *slog.Logger
}

// NewStaticFactory creates a factory for static renderers.
func NewStaticFactory(cfg StaticConfig, logger *slog.Logger) *StaticFactory {
	return &StaticFactory{cfg: cfg, logger: logger}
}

// New implements Factory.
func (f *StaticFactory) New(ctx context.Context) (Renderer, error) {
	_ = ctx
	return NewStaticRenderer(f.cfg, f.logger), nil
}

var _ Renderer = (*StaticRenderer)(nil)
