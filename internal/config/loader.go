package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("REVIEWLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reviewlens")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".reviewlens"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine when none was asked for.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)

	v.SetDefault("renderer.type", cfg.Renderer.Type)
	v.SetDefault("renderer.headless", cfg.Renderer.Headless)
	v.SetDefault("renderer.stealth", cfg.Renderer.Stealth)
	v.SetDefault("renderer.no_sandbox", cfg.Renderer.NoSandbox)
	v.SetDefault("renderer.navigation_timeout", cfg.Renderer.NavigationTimeout)
	v.SetDefault("renderer.stable_wait", cfg.Renderer.StableWait)
	v.SetDefault("renderer.max_body_size", cfg.Renderer.MaxBodySize)

	v.SetDefault("model.provider", cfg.Model.Provider)
	v.SetDefault("model.model", cfg.Model.Model)
	v.SetDefault("model.endpoint", cfg.Model.Endpoint)
	v.SetDefault("model.max_tokens", cfg.Model.MaxTokens)
	v.SetDefault("model.temperature", cfg.Model.Temperature)
	v.SetDefault("model.timeout", cfg.Model.Timeout)
	v.SetDefault("model.max_retries", cfg.Model.MaxRetries)
	v.SetDefault("model.max_dom_bytes", cfg.Model.MaxDOMBytes)

	v.SetDefault("scrape.max_pages", cfg.Scrape.MaxPages)
	v.SetDefault("scrape.session_timeout", cfg.Scrape.SessionTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
