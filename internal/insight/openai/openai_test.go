package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Generate(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Durma cedo."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := New("sk-test", srv.URL+"/v1", "")
	text, err := c.Generate(context.Background(), "rotina")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Durma cedo." {
		t.Fatalf("text = %q", text)
	}
	if req.Model != DefaultModel || len(req.Messages) != 1 || req.Messages[0].Content != "rotina" || req.Messages[0].Role != "user" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestClient_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	if _, err := New("k", srv.URL+"/v1", "m").Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}
