package renderer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/reviewlens/reviewlens/internal/plan"
	"github.com/reviewlens/reviewlens/internal/types"
)

// BrowserConfig controls the headless browser renderer.
type BrowserConfig struct {
	Headless          bool
	Stealth           bool
	NoSandbox         bool
	Proxy             string
	UserAgent         string
	NavigationTimeout time.Duration
	StableWait        time.Duration
}

// DefaultBrowserConfig returns browser defaults suitable for containers.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		Stealth:           true,
		NoSandbox:         true,
		NavigationTimeout: 30 * time.Second,
		StableWait:        300 * time.Millisecond,
	}
}

// BrowserRenderer renders pages in a headless Chromium session via Rod.
// Each instance owns its own browser process.
type BrowserRenderer struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     BrowserConfig
	logger  *slog.Logger

	releaseOnce sync.Once
}

// NewBrowserRenderer launches a browser and opens a blank page.
func NewBrowserRenderer(cfg BrowserConfig, logger *slog.Logger) (*BrowserRenderer, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.NoSandbox {
		l = l.Set("no-sandbox").Set("disable-setuid-sandbox")
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &types.RenderError{Reason: "launch browser", Err: err}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, &types.RenderError{Reason: "connect browser", Err: err}
	}

	br := &BrowserRenderer{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser_renderer"),
	}

	if cfg.Stealth {
		br.page, err = stealth.Page(browser)
	} else {
		br.page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		return nil, &types.RenderError{Reason: "open page", Err: err}
	}

	if cfg.UserAgent != "" {
		err := br.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent})
		if err != nil {
			br.logger.Warn("failed to set user agent", "error", err)
		}
	}

	br.logger.Debug("browser ready", "stealth", cfg.Stealth, "headless", cfg.Headless)
	return br, nil
}

// Render implements Renderer.
func (br *BrowserRenderer) Render(ctx context.Context, url string) (Snapshot, error) {
	page := br.page.Context(ctx).Timeout(br.cfg.NavigationTimeout)

	if err := page.Navigate(url); err != nil {
		return Snapshot{}, &types.RenderError{URL: url, Reason: "navigate", Err: err}
	}
	br.settle(page, url)

	return br.snapshot(page, url)
}

// Click implements Renderer. It clicks the matched element and waits for the
// page to settle, covering both href navigation and JS-driven pagination.
func (br *BrowserRenderer) Click(ctx context.Context, kind plan.SelectorKind, sel string) (Snapshot, error) {
	page := br.page.Context(ctx).Timeout(br.cfg.NavigationTimeout)

	var (
		el  *rod.Element
		err error
	)
	if kind == plan.KindXPath {
		el, err = page.ElementX(sel)
	} else {
		el, err = page.Element(sel)
	}
	if err != nil {
		return Snapshot{}, &types.RenderError{Reason: "element not found: " + sel, Err: err}
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return Snapshot{}, &types.RenderError{Reason: "click " + sel, Err: err}
	}
	br.settle(page, sel)

	return br.snapshot(page, "")
}

// settle waits for the page to stop mutating. A stability timeout is logged
// and tolerated; slow widgets must not fail the render.
func (br *BrowserRenderer) settle(page *rod.Page, what string) {
	if err := page.WaitStable(br.cfg.StableWait); err != nil {
		br.logger.Warn("page stability timeout, continuing", "target", what, "error", err)
	}
}

func (br *BrowserRenderer) snapshot(page *rod.Page, fallbackURL string) (Snapshot, error) {
	html, err := page.HTML()
	if err != nil {
		return Snapshot{}, &types.RenderError{URL: fallbackURL, Reason: "serialize DOM", Err: err}
	}

	finalURL := fallbackURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	br.logger.Debug("page rendered", "url", finalURL, "size", len(html))
	return Snapshot{HTML: html, URL: finalURL}, nil
}

// Release implements Renderer. Closing the browser kills the Chromium
// process; leaking one per request would exhaust the host.
func (br *BrowserRenderer) Release() {
	br.releaseOnce.Do(func() {
		if br.page != nil {
			_ = br.page.Close()
		}
		if br.browser != nil {
			if err := br.browser.Close(); err != nil {
				br.logger.Warn("browser close failed", "error", err)
			}
		}
		br.logger.Debug("browser released")
	})
}

// BrowserFactory launches a fresh browser per session.
type BrowserFactory struct {
	cfg    BrowserConfig
	logger *slog.Logger
}

// NewBrowserFactory creates a factory with the given launch configuration.
func NewBrowserFactory(cfg BrowserConfig, logger *slog.Logger) *BrowserFactory {
	return &BrowserFactory{cfg: cfg, logger: logger}
}

// New implements Factory.
func (f *BrowserFactory) New(ctx context.Context) (Renderer, error) {
	_ = ctx
	return NewBrowserRenderer(f.cfg, f.logger)
}

var _ Renderer = (*BrowserRenderer)(nil)
