// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ollama implements the model.LLM interface for local Ollama models
// via the native /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/reflector/pkg/httpclient"
	"github.com/kadirpekel/reflector/pkg/model"
)

const defaultBaseURL = "http://localhost:11434"

// Config contains configuration for the Ollama model.
type Config struct {
	// Model is the model name (e.g., "llama3.2").
	Model string

	// BaseURL is the Ollama server address.
	BaseURL string

	// MaxTokens limits the response length (num_predict).
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64

	// Timeout is the request timeout in seconds. Local models can be slow
	// to load, so the default is generous.
	Timeout int
}

type ollamaModel struct {
	config     Config
	httpClient *httpclient.Client
}

type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  *apiOptions  `json:"options,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type apiResponse struct {
	Message         apiMessage `json:"message"`
	Done            bool       `json:"done"`
	DoneReason      string     `json:"done_reason,omitempty"`
	PromptEvalCount int        `json:"prompt_eval_count"`
	EvalCount       int        `json:"eval_count"`
	Error           string     `json:"error,omitempty"`
}

// New creates a new Ollama model instance.
func New(cfg Config) (model.LLM, error) {
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 600
	}

	return &ollamaModel{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
		),
	}, nil
}

func (m *ollamaModel) Name() string {
	return m.config.Model
}

func (m *ollamaModel) Provider() model.Provider {
	return model.ProviderOllama
}

func (m *ollamaModel) Close() error {
	return nil
}

// Generate performs non-streaming generation.
func (m *ollamaModel) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(m.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	if apiResp.Error != "" {
		return nil, fmt.Errorf("Ollama API error: %s", apiResp.Error)
	}

	finish := model.FinishReasonStop
	if apiResp.DoneReason == "length" {
		finish = model.FinishReasonLength
	}

	return &model.Response{
		Text:         apiResp.Message.Content,
		FinishReason: finish,
		Usage: &model.Usage{
			PromptTokens:     apiResp.PromptEvalCount,
			CompletionTokens: apiResp.EvalCount,
			TotalTokens:      apiResp.PromptEvalCount + apiResp.EvalCount,
		},
	}, nil
}

func (m *ollamaModel) buildRequest(req *model.Request) apiRequest {
	messages := make([]apiMessage, 0, len(req.Messages)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, apiMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, msg := range req.Messages {
		messages = append(messages, apiMessage{Role: string(msg.Role), Content: msg.Text})
	}

	out := apiRequest{
		Model:    m.config.Model,
		Messages: messages,
	}

	temperature := m.config.Temperature
	maxTokens := m.config.MaxTokens
	if req.Config != nil {
		if req.Config.Temperature != nil {
			temperature = *req.Config.Temperature
		}
		if req.Config.MaxTokens != nil {
			maxTokens = *req.Config.MaxTokens
		}
	}
	if temperature > 0 || maxTokens > 0 {
		out.Options = &apiOptions{
			Temperature: temperature,
			NumPredict:  maxTokens,
		}
	}

	return out
}

// Ensure ollamaModel implements model.LLM
var _ model.LLM = (*ollamaModel)(nil)
