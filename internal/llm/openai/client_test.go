package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"casa-backend/internal/llm"
)

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-3.5-turbo", 0); err == nil {
		t.Fatalf("expected error without key")
	}
	if _, err := NewClient("k", " ", 0); err == nil {
		t.Fatalf("expected error without model")
	}
}

func TestChatSendsRequestAndReturnsContent(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello  "}}],"usage":{"total_tokens":9}}`))
	}))
	defer srv.Close()

	c, err := NewClient("key", "gpt-3.5-turbo", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := c.WithBaseURL(srv.URL).Chat(context.Background(), llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleSystem, Content: "sys"}, {Role: llm.RoleUser, Content: "q"}},
		MaxTokens:   800,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected content %q", out)
	}
	if got.Model != "gpt-3.5-turbo" || got.MaxTokens != 800 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 {
		t.Fatalf("unexpected temperature: %v", got.Temperature)
	}
}

func TestChatSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c, _ := NewClient("key", "gpt-3.5-turbo", 0)
	_, err := c.WithBaseURL(srv.URL).Chat(context.Background(), llm.ChatRequest{})
	var pe *llm.ProviderError
	if !errors.As(err, &pe) || pe.Status != http.StatusUnauthorized || pe.Message != "bad key" {
		t.Fatalf("expected provider error, got %v", err)
	}
	if llm.Retryable(err) {
		t.Fatalf("401 must not be retried")
	}
}

func TestChatThrottleIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c, _ := NewClient("key", "gpt-3.5-turbo", 0)
	_, err := c.WithBaseURL(srv.URL).Chat(context.Background(), llm.ChatRequest{})
	if !llm.Retryable(err) || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected retryable 429, got %v", err)
	}
}
