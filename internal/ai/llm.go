// Package ai implements the language-model collaborator used for selector
// inference. It speaks to Ollama, OpenAI-compatible, or custom HTTP backends.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/reviewlens/reviewlens/internal/types"
)

// Provider specifies which LLM backend to use.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderCustom Provider = "custom"
)

// Config configures the LLM client.
type Config struct {
	Provider    Provider
	Endpoint    string // e.g. "http://localhost:11434" for Ollama
	Model       string // e.g. "llama3.2:3b", "gpt-4o-mini"
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client sends prompts to an LLM backend. It satisfies the inference
// engine's ModelClient contract.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewClient creates an LLM client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "llm_client"),
	}
}

// Complete sends a prompt and returns the model's text response. Failures
// are returned as *types.ModelError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var (
		resp string
		err  error
	)
	start := time.Now()

	switch c.cfg.Provider {
	case ProviderOllama:
		resp, err = c.completeOllama(ctx, prompt)
	case ProviderOpenAI:
		resp, err = c.completeOpenAI(ctx, prompt)
	case ProviderCustom:
		resp, err = c.completeCustom(ctx, prompt)
	default:
		return "", &types.ModelError{
			Provider: string(c.cfg.Provider),
			Reason:   "unsupported provider",
			Err:      fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider),
		}
	}

	if err != nil {
		return "", err
	}
	c.logger.Debug("completion received",
		"provider", c.cfg.Provider,
		"model", c.cfg.Model,
		"duration", time.Since(start),
		"response_len", len(resp),
	)
	return resp, nil
}

func (c *Client) completeOllama(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", c.wrap("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.wrap("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.wrap("request", fmt.Errorf("ollama returned status %d", resp.StatusCode))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", c.wrap("decode response", err)
	}
	return result.Response, nil
}

func (c *Client) completeOpenAI(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}

	body, _ := json.Marshal(payload)
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", c.wrap("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.wrap("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", c.wrap("quota", fmt.Errorf("openai returned status 429"))
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.wrap("request", fmt.Errorf("openai returned status %d", resp.StatusCode))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", c.wrap("decode response", err)
	}
	if len(result.Choices) == 0 {
		return "", c.wrap("decode response", fmt.Errorf("no choices in openai response"))
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) completeCustom(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"model":  c.cfg.Model,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", c.wrap("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.wrap("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.wrap("request", fmt.Errorf("custom endpoint returned status %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.wrap("read response", err)
	}
	return string(respBody), nil
}

func (c *Client) wrap(reason string, err error) error {
	return &types.ModelError{
		Provider: string(c.cfg.Provider),
		Reason:   reason,
		Err:      err,
	}
}
