package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, status int, content string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestCompleteWithSystem(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"requestType":"Access Request"}`)

	c := NewClientWithConfig(ClientConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		Temperature: 0.3,
		Logger:      zerolog.Nop(),
	})

	got, err := c.CompleteWithSystem(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"requestType":"Access Request"}` {
		t.Errorf("unexpected content %q", got)
	}

	req := *captured
	if req["model"] != DefaultModel {
		t.Errorf("expected model %s, got %v", DefaultModel, req["model"])
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected system message first, got %v", first["role"])
	}
}

func TestCompleteWithSystemError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, "")

	c := NewClientWithConfig(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Logger: zerolog.Nop()})
	if _, err := c.CompleteWithSystem(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
}
