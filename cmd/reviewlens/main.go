package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/ai"
	"github.com/reviewlens/reviewlens/internal/api"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/inference"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/renderer"
	"github.com/reviewlens/reviewlens/internal/walker"
)

var (
	cfgFile      string
	verbose      bool
	rendererType string
	maxPages     int
	sessionTime  string
	llmProvider  string
	llmModel     string
	llmEndpoint  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewlens",
		Short: "ReviewLens — LLM-guided review extraction from arbitrary pages",
		Long: `ReviewLens scrapes customer reviews from pages it has never seen before.

A language model inspects the rendered page once and produces an extraction
plan (CSS or XPath selectors for the review container and its fields). The
plan is then applied mechanically to every page of the paginated sequence,
so the model is consulted once per site, not once per page.

Supports Ollama (local), OpenAI, or any compatible API.

Requires for browser rendering: a local Chromium install (auto-detected).
Requires for inference: ollama serve && ollama pull llama3.2`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

Endpoints:
  POST /reviews?url=<target>  — scrape all reviews reachable from the URL
  GET  /health                — liveness check
  GET  /metrics               — Prometheus metrics (if enabled)`,
		RunE: runServe,
	}
	addPipelineFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	scraper, err := buildScraper(cfg, logger, metrics)
	if err != nil {
		return err
	}

	srv := api.NewServer(cfg, scraper, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		"port", cfg.Server.Port,
		"renderer", cfg.Renderer.Type,
		"model", fmt.Sprintf("%s/%s", cfg.Model.Provider, cfg.Model.Model),
	)
	return srv.Start(ctx)
}

// scrapeCmd creates the "scrape" subcommand for one-shot runs.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Scrape reviews from a URL and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrape,
	}
	addPipelineFlags(cmd)
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	target := args[0]
	if err := config.ValidateURL(target); err != nil {
		return fmt.Errorf("invalid URL %q: %w", target, err)
	}

	scraper, err := buildScraper(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := scraper.Scrape(ctx, target)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n✅ Scrape complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "   Reviews: %d across %d pages\n", len(result.Reviews), result.PageCount)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ReviewLens %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Server:\n")
			fmt.Printf("  Port:               %d\n", cfg.Server.Port)
			fmt.Printf("\nRenderer:\n")
			fmt.Printf("  Type:               %s\n", cfg.Renderer.Type)
			fmt.Printf("  Headless:           %v\n", cfg.Renderer.Headless)
			fmt.Printf("  Stealth:            %v\n", cfg.Renderer.Stealth)
			fmt.Printf("  Navigation Timeout: %s\n", cfg.Renderer.NavigationTimeout)
			fmt.Printf("\nModel:\n")
			fmt.Printf("  Provider:           %s\n", cfg.Model.Provider)
			fmt.Printf("  Model:              %s\n", cfg.Model.Model)
			fmt.Printf("  Endpoint:           %s\n", cfg.Model.Endpoint)
			fmt.Printf("  Max Retries:        %d\n", cfg.Model.MaxRetries)
			fmt.Printf("  Max DOM Bytes:      %d\n", cfg.Model.MaxDOMBytes)
			fmt.Printf("\nScrape:\n")
			fmt.Printf("  Max Pages:          %d\n", cfg.Scrape.MaxPages)
			fmt.Printf("  Session Timeout:    %s\n", cfg.Scrape.SessionTimeout)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Path:               %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}

// addPipelineFlags registers the flags shared by serve and scrape.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rendererType, "renderer", "", "renderer type: browser, http")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to walk per session")
	cmd.Flags().StringVar(&sessionTime, "session-timeout", "", "total session time budget (e.g. 2m)")
	cmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider: ollama, openai, custom")
	cmd.Flags().StringVar(&llmModel, "model", "", "LLM model name")
	cmd.Flags().StringVar(&llmEndpoint, "llm-endpoint", "", "LLM endpoint URL")
}

// loadConfig loads the config file, applies CLI overrides, validates, and
// builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg), nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if rendererType != "" {
		cfg.Renderer.Type = rendererType
	}
	if maxPages > 0 {
		cfg.Scrape.MaxPages = maxPages
	}
	if sessionTime != "" {
		if d, err := time.ParseDuration(sessionTime); err == nil {
			cfg.Scrape.SessionTimeout = d
		}
	}
	if llmProvider != "" {
		cfg.Model.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.Model.Model = llmModel
	}
	if llmEndpoint != "" {
		cfg.Model.Endpoint = llmEndpoint
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// buildScraper wires the renderer factory, LLM client, and inference engine.
func buildScraper(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*api.Scraper, error) {
	var factory renderer.Factory
	switch cfg.Renderer.Type {
	case "browser":
		factory = renderer.NewBrowserFactory(renderer.BrowserConfig{
			Headless:          cfg.Renderer.Headless,
			Stealth:           cfg.Renderer.Stealth,
			NoSandbox:         cfg.Renderer.NoSandbox,
			Proxy:             cfg.Renderer.Proxy,
			UserAgent:         cfg.Renderer.UserAgent,
			NavigationTimeout: cfg.Renderer.NavigationTimeout,
			StableWait:        cfg.Renderer.StableWait,
		}, logger)
	case "http":
		factory = renderer.NewStaticFactory(renderer.StaticConfig{
			Timeout:     cfg.Renderer.NavigationTimeout,
			UserAgent:   cfg.Renderer.UserAgent,
			MaxBodySize: cfg.Renderer.MaxBodySize,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown renderer type %q", cfg.Renderer.Type)
	}

	endpoint := cfg.Model.Endpoint
	if endpoint == "" {
		switch ai.Provider(cfg.Model.Provider) {
		case ai.ProviderOllama:
			endpoint = "http://localhost:11434"
		case ai.ProviderOpenAI:
			endpoint = "https://api.openai.com"
		}
	}

	llmClient := ai.NewClient(ai.Config{
		Provider:    ai.Provider(cfg.Model.Provider),
		Endpoint:    endpoint,
		Model:       cfg.Model.Model,
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
		Timeout:     cfg.Model.Timeout,
	}, logger)

	engine := inference.New(llmClient, inference.Config{
		MaxRetries:  cfg.Model.MaxRetries,
		MaxDOMBytes: cfg.Model.MaxDOMBytes,
	}, logger)
	if metrics != nil {
		engine.SetRetryObserver(metrics)
	}

	return api.NewScraper(factory, engine, walker.Config{
		MaxPages: cfg.Scrape.MaxPages,
		Timeout:  cfg.Scrape.SessionTimeout,
	}, logger, metrics), nil
}

// setupLogger creates a structured logger per the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
