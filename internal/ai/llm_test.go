package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/reviewlens/reviewlens/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c := NewClient(cfg, testLogger)
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestCompleteOllama(t *testing.T) {
	c := newTestClient(t, Config{
		Provider:    ProviderOllama,
		Endpoint:    "http://localhost:11434",
		Model:       "llama3.2:3b",
		MaxTokens:   512,
		Temperature: 0,
	})

	httpmock.RegisterResponder("POST", "http://localhost:11434/api/generate",
		func(req *http.Request) (*http.Response, error) {
			var payload map[string]any
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				return httpmock.NewStringResponse(400, "bad payload"), nil
			}
			if payload["model"] != "llama3.2:3b" {
				t.Errorf("model = %v", payload["model"])
			}
			if payload["stream"] != false {
				t.Errorf("stream = %v, want false", payload["stream"])
			}
			if payload["format"] != "json" {
				t.Errorf("format = %v, want json", payload["format"])
			}
			return httpmock.NewJsonResponse(200, map[string]string{
				"response": `{"reviews_found": false}`,
			})
		})

	got, err := c.Complete(context.Background(), "find the reviews")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"reviews_found": false}` {
		t.Errorf("Complete() = %q", got)
	}
}

func TestCompleteOllamaServerError(t *testing.T) {
	c := newTestClient(t, Config{Provider: ProviderOllama, Endpoint: "http://localhost:11434"})

	httpmock.RegisterResponder("POST", "http://localhost:11434/api/generate",
		httpmock.NewStringResponder(500, "model crashed"))

	_, err := c.Complete(context.Background(), "prompt")
	var modelErr *types.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("Complete() error = %v, want *types.ModelError", err)
	}
	if modelErr.Provider != "ollama" {
		t.Errorf("Provider = %q", modelErr.Provider)
	}
}

func TestCompleteOpenAI(t *testing.T) {
	c := newTestClient(t, Config{
		Provider: ProviderOpenAI,
		Endpoint: "https://api.openai.com/v1",
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
	})

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
				t.Errorf("Authorization = %q", got)
			}
			return httpmock.NewJsonResponse(200, map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"content": "the plan"}},
				},
			})
		})

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "the plan" {
		t.Errorf("Complete() = %q", got)
	}
}

func TestCompleteOpenAIQuota(t *testing.T) {
	c := newTestClient(t, Config{Provider: ProviderOpenAI, Endpoint: "https://api.openai.com/v1"})

	httpmock.RegisterResponder("POST", "https://api.openai.com/v1/chat/completions",
		httpmock.NewStringResponder(429, "rate limited"))

	_, err := c.Complete(context.Background(), "prompt")
	var modelErr *types.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("Complete() error = %v, want *types.ModelError", err)
	}
	if modelErr.Reason != "quota" {
		t.Errorf("Reason = %q, want quota", modelErr.Reason)
	}
}

func TestCompleteCustom(t *testing.T) {
	c := newTestClient(t, Config{
		Provider: ProviderCustom,
		Endpoint: "http://inference.internal/v1/complete",
	})

	httpmock.RegisterResponder("POST", "http://inference.internal/v1/complete",
		httpmock.NewStringResponder(200, `{"container_selector": "div.review"}`))

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"container_selector": "div.review"}` {
		t.Errorf("Complete() = %q", got)
	}
}

func TestCompleteUnknownProvider(t *testing.T) {
	c := NewClient(Config{Provider: "oracle"}, testLogger)

	_, err := c.Complete(context.Background(), "prompt")
	var modelErr *types.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("Complete() error = %v, want *types.ModelError", err)
	}
}
