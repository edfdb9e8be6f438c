package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("DefaultConfig() does not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad renderer type", func(c *Config) { c.Renderer.Type = "puppeteer" }},
		{"zero navigation timeout", func(c *Config) { c.Renderer.NavigationTimeout = 0 }},
		{"bad provider", func(c *Config) { c.Model.Provider = "oracle" }},
		{"negative retries", func(c *Config) { c.Model.MaxRetries = -1 }},
		{"tiny dom cap", func(c *Config) { c.Model.MaxDOMBytes = 100 }},
		{"zero max pages", func(c *Config) { c.Scrape.MaxPages = 0 }},
		{"zero session timeout", func(c *Config) { c.Scrape.SessionTimeout = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com/reviews",
		"http://example.com:8080/p?page=2",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"ftp://example.com/reviews",
		"javascript:alert(1)",
		"/relative/path",
		"https://",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewlens.yaml")
	yaml := `
server:
  port: 9090
renderer:
  type: http
model:
  provider: openai
  model: gpt-4o-mini
scrape:
  max_pages: 5
  session_timeout: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Renderer.Type != "http" {
		t.Errorf("renderer type = %q", cfg.Renderer.Type)
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("provider = %q", cfg.Model.Provider)
	}
	if cfg.Scrape.MaxPages != 5 {
		t.Errorf("max pages = %d", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.SessionTimeout != 30*time.Second {
		t.Errorf("session timeout = %s", cfg.Scrape.SessionTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Model.MaxDOMBytes != 24*1024 {
		t.Errorf("max dom bytes = %d, want default", cfg.Model.MaxDOMBytes)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Load() with a missing explicit path succeeded, want error")
	}
}
