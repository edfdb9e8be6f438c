package config

import (
	"fmt"
	"net/url"

	"github.com/reviewlens/reviewlens/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	if cfg.Renderer.Type != "browser" && cfg.Renderer.Type != "http" {
		return fmt.Errorf("renderer.type must be 'browser' or 'http', got %q", cfg.Renderer.Type)
	}
	if cfg.Renderer.NavigationTimeout <= 0 {
		return fmt.Errorf("renderer.navigation_timeout must be > 0")
	}
	if cfg.Renderer.MaxBodySize <= 0 {
		return fmt.Errorf("renderer.max_body_size must be > 0")
	}
	if cfg.Renderer.Proxy != "" {
		if _, err := url.Parse(cfg.Renderer.Proxy); err != nil {
			return fmt.Errorf("invalid renderer.proxy %q: %w", cfg.Renderer.Proxy, err)
		}
	}

	validProviders := map[string]bool{
		"ollama": true, "openai": true, "custom": true,
	}
	if !validProviders[cfg.Model.Provider] {
		return fmt.Errorf("model.provider must be ollama/openai/custom, got %q", cfg.Model.Provider)
	}
	if cfg.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries must be >= 0, got %d", cfg.Model.MaxRetries)
	}
	if cfg.Model.MaxDOMBytes < 1024 {
		return fmt.Errorf("model.max_dom_bytes must be >= 1024, got %d", cfg.Model.MaxDOMBytes)
	}

	if cfg.Scrape.MaxPages < 1 {
		return fmt.Errorf("scrape.max_pages must be >= 1, got %d", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.SessionTimeout <= 0 {
		return fmt.Errorf("scrape.session_timeout must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks that a URL is scrapeable: absolute http(s) with a host.
// All failures wrap types.ErrInvalidURL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
