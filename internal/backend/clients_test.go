package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Stream {
			t.Error("streaming should be disabled")
		}
		if req.Model != "codellama" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "generated text", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "codellama", Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), "write a haiku")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "generated text" {
		t.Errorf("Generate = %q", out)
	}
}

func TestOllamaClient_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Error: "model not found"})
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "nope", Timeout: 5 * time.Second})
	if _, err := c.Generate(context.Background(), "hi"); err == nil {
		t.Error("API error should surface as an error")
	} else if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error should carry the API message: %v", err)
	}
}

func TestOllamaClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "codellama", Timeout: 5 * time.Second})
	h := c.HealthCheck(context.Background())
	if !h.Available {
		t.Errorf("expected available, got %+v", h)
	}
	if h.Model != "codellama" {
		t.Errorf("health model = %q", h.Model)
	}

	srv.Close()
	h = c.HealthCheck(context.Background())
	if h.Available {
		t.Error("closed server should be unavailable")
	}
	if h.Error == "" {
		t.Error("unavailable health should carry an error")
	}
}

func TestClaudeClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}`))
	}))
	defer srv.Close()

	c := NewClaudeClient(ClaudeConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-sonnet-4-20250514", Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "part one part two" {
		t.Errorf("text blocks not concatenated: %q", out)
	}
}

func TestClaudeClient_NoKey(t *testing.T) {
	c := NewClaudeClient(ClaudeConfig{Model: "claude-sonnet-4-20250514"})

	if c.IsAvailable(context.Background()) {
		t.Error("client without key should be unavailable")
	}
	if _, err := c.Generate(context.Background(), "hi"); err == nil {
		t.Error("Generate without key should fail fast")
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing key query parameter")
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gemini says hi"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-2.0-flash", Timeout: 5 * time.Second})
	out, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "gemini says hi" {
		t.Errorf("Generate = %q", out)
	}
}

func TestGeminiClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid argument"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-2.0-flash", Timeout: 5 * time.Second})
	if _, err := c.Generate(context.Background(), "hi"); err == nil {
		t.Error("API error should surface as an error")
	} else if !strings.Contains(err.Error(), "invalid argument") {
		t.Errorf("error should carry the API message: %v", err)
	}
}
