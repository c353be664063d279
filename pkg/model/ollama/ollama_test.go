package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/reflector/pkg/model"
)

func TestNew_Defaults(t *testing.T) {
	llm, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	if llm.Name() != "llama3.2" {
		t.Errorf("Name() = %v, want llama3.2", llm.Name())
	}
	if llm.Provider() != model.ProviderOllama {
		t.Errorf("Provider() = %v, want ollama", llm.Provider())
	}
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected /api/chat, got %s", r.URL.Path)
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be false")
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("first message role = %q, want system", req.Messages[0].Role)
		}
		if req.Options == nil || req.Options.NumPredict != 256 {
			t.Errorf("Options = %+v, want num_predict 256", req.Options)
		}

		_ = json.NewEncoder(w).Encode(apiResponse{
			Message:         apiMessage{Role: "assistant", Content: "local draft"},
			Done:            true,
			PromptEvalCount: 8,
			EvalCount:       2,
		})
	}))
	defer server.Close()

	llm, err := New(Config{Model: "llama3.2", BaseURL: server.URL, MaxTokens: 256, Temperature: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := llm.Generate(context.Background(), &model.Request{
		SystemInstruction: "write well",
		Messages:          []model.Message{{Role: model.ChatRoleUser, Text: "topic"}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.Text != "local draft" {
		t.Errorf("Text = %q, want %q", resp.Text, "local draft")
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", resp.Usage.TotalTokens)
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{Error: "model not found"})
	}))
	defer server.Close()

	llm, _ := New(Config{BaseURL: server.URL})

	if _, err := llm.Generate(context.Background(), &model.Request{
		Messages: []model.Message{{Role: model.ChatRoleUser, Text: "hi"}},
	}); err == nil {
		t.Error("Generate() should surface Ollama errors")
	}
}
