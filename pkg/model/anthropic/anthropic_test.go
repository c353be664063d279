package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kadirpekel/reflector/pkg/model"
)

func TestNew(t *testing.T) {
	llm, err := New(Config{APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	if llm.Name() != "claude-sonnet-4-20250514" {
		t.Errorf("Name() = %v, want default claude model", llm.Name())
	}
	if llm.Provider() != model.ProviderAnthropic {
		t.Errorf("Provider() = %v, want anthropic", llm.Provider())
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without API key should fail")
	}
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected /v1/messages, got %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "sk-ant-test" {
			t.Errorf("x-api-key = %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v != "2023-06-01" {
			t.Errorf("anthropic-version = %q", v)
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.System != "grade the draft" {
			t.Errorf("System = %q, want system instruction at top level", req.System)
		}
		if req.MaxTokens == 0 {
			t.Error("max_tokens must always be set for Anthropic")
		}
		if len(req.Messages) != 2 {
			t.Errorf("len(messages) = %d, want 2 (no system entry)", len(req.Messages))
		}

		_ = json.NewEncoder(w).Encode(apiResponse{
			Content:    []apiContent{{Type: "text", Text: "solid critique"}},
			StopReason: "end_turn",
			Usage:      &apiUsage{InputTokens: 20, OutputTokens: 4},
		})
	}))
	defer server.Close()

	llm, err := New(Config{APIKey: "sk-ant-test", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := llm.Generate(context.Background(), &model.Request{
		SystemInstruction: "grade the draft",
		Messages: []model.Message{
			{Role: model.ChatRoleUser, Text: "topic"},
			{Role: model.ChatRoleAssistant, Text: "draft"},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.Text != "solid critique" {
		t.Errorf("Text = %q, want %q", resp.Text, "solid critique")
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 24 {
		t.Errorf("Usage = %+v, want total 24", resp.Usage)
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{
			Error: &apiError{Type: "authentication_error", Message: "invalid x-api-key"},
		})
	}))
	defer server.Close()

	llm, _ := New(Config{APIKey: "sk-ant-bad", BaseURL: server.URL})

	_, err := llm.Generate(context.Background(), &model.Request{
		Messages: []model.Message{{Role: model.ChatRoleUser, Text: "hi"}},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Errorf("Generate() error = %v, want API error surfaced", err)
	}
}

func TestMapStopReason(t *testing.T) {
	if mapStopReason("max_tokens") != model.FinishReasonLength {
		t.Error("max_tokens should map to length")
	}
	if mapStopReason("end_turn") != model.FinishReasonStop {
		t.Error("end_turn should map to stop")
	}
	if mapStopReason("refusal") != model.FinishReasonContent {
		t.Error("refusal should map to content")
	}
}
