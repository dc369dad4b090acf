package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JxyV/Museum-RAG/config"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Generate must not request streaming")
		}
		if req.Model != "qwen2.5:3b" {
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaChatMessage{Role: RoleAssistant, Content: "你好，有什么可以帮你？"},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := newOllamaClient(srv.URL, "qwen2.5:3b")
	text, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "你好"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "你好，有什么可以帮你？" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestOllamaGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("GenerateStream must request streaming")
		}
		enc := json.NewEncoder(w)
		enc.Encode(ollamaChatResponse{Message: ollamaChatMessage{Content: "黄鹤楼"}})
		enc.Encode(ollamaChatResponse{Message: ollamaChatMessage{Content: "位于武汉。"}})
		enc.Encode(ollamaChatResponse{Done: true})
	}))
	defer srv.Close()

	client := newOllamaClient(srv.URL, "qwen2.5:3b")
	var tokens []string
	err := client.GenerateStream(context.Background(), []Message{{Role: RoleUser, Content: "黄鹤楼在哪"}}, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "黄鹤楼" || tokens[1] != "位于武汉。" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestOllamaGenerateStreamCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaChatResponse{Message: ollamaChatMessage{Content: "token"}})
		enc.Encode(ollamaChatResponse{Done: true})
	}))
	defer srv.Close()

	client := newOllamaClient(srv.URL, "m")
	wantErr := fmt.Errorf("stop here")
	err := client.GenerateStream(context.Background(), nil, func(string) error { return wantErr })
	if err == nil || !strings.Contains(err.Error(), "stop here") {
		t.Fatalf("expected callback error to abort the stream, got %v", err)
	}
}

func TestOllamaGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := newOllamaClient(srv.URL, "missing")
	if _, err := client.Generate(context.Background(), nil); err == nil {
		t.Fatal("expected API error to surface")
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.Load()
	cfg.LLM.Provider = "mystery"
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewClientOpenAIRequiresKey(t *testing.T) {
	cfg := config.Load()
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = ""
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected error for missing OpenAI key")
	}
}
