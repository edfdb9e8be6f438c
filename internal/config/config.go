package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ReviewLens.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Renderer RendererConfig `mapstructure:"renderer" yaml:"renderer"`
	Model    ModelConfig    `mapstructure:"model"    yaml:"model"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"   yaml:"scrape"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port         int           `mapstructure:"port"          yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// RendererConfig controls the page renderer.
type RendererConfig struct {
	Type              string        `mapstructure:"type"               yaml:"type"` // browser, http
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	Stealth           bool          `mapstructure:"stealth"            yaml:"stealth"`
	NoSandbox         bool          `mapstructure:"no_sandbox"         yaml:"no_sandbox"`
	Proxy             string        `mapstructure:"proxy"              yaml:"proxy"`
	UserAgent         string        `mapstructure:"user_agent"         yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StableWait        time.Duration `mapstructure:"stable_wait"        yaml:"stable_wait"`
	MaxBodySize       int64         `mapstructure:"max_body_size"      yaml:"max_body_size"`
}

// ModelConfig controls the LLM used for selector inference.
type ModelConfig struct {
	Provider    string        `mapstructure:"provider"      yaml:"provider"` // ollama, openai, custom
	Model       string        `mapstructure:"model"         yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint"      yaml:"endpoint"`
	MaxTokens   int           `mapstructure:"max_tokens"    yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"   yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"       yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"   yaml:"max_retries"`
	MaxDOMBytes int           `mapstructure:"max_dom_bytes" yaml:"max_dom_bytes"`
}

// ScrapeConfig bounds individual scrape sessions.
type ScrapeConfig struct {
	MaxPages       int           `mapstructure:"max_pages"       yaml:"max_pages"`
	SessionTimeout time.Duration `mapstructure:"session_timeout" yaml:"session_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute, // sessions stream out only at the end
		},
		Renderer: RendererConfig{
			Type:              "browser",
			Headless:          true,
			Stealth:           true,
			NoSandbox:         true,
			NavigationTimeout: 30 * time.Second,
			StableWait:        300 * time.Millisecond,
			MaxBodySize:       10 * 1024 * 1024, // 10MB
		},
		Model: ModelConfig{
			Provider:    "ollama",
			Model:       "llama3.2:3b",
			Endpoint:    "http://localhost:11434",
			MaxTokens:   1024,
			Temperature: 0,
			Timeout:     120 * time.Second,
			MaxRetries:  2,
			MaxDOMBytes: 24 * 1024,
		},
		Scrape: ScrapeConfig{
			MaxPages:       20,
			SessionTimeout: 2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
