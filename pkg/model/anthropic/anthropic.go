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

// Package anthropic implements the model.LLM interface for the Anthropic
// messages API.
package anthropic

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

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Config contains configuration for the Anthropic model.
type Config struct {
	// APIKey is the Anthropic API key.
	APIKey string

	// Model is the model name (e.g., "claude-sonnet-4-20250514").
	Model string

	// BaseURL overrides the default API endpoint.
	BaseURL string

	// MaxTokens limits the response length. Required by the API; a default
	// is applied when zero.
	MaxTokens int

	// Temperature controls randomness (0-1).
	Temperature float64

	// Timeout is the request timeout in seconds.
	Timeout int

	// MaxRetries bounds retry attempts on retryable failures.
	MaxRetries int

	// RetryDelay is the base retry delay in seconds.
	RetryDelay int
}

type anthropicModel struct {
	config     Config
	httpClient *httpclient.Client
}

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature,omitempty"`
	System      string       `json:"system,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	TopK        *int         `json:"top_k,omitempty"`
	Stream      bool         `json:"stream"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content    []apiContent `json:"content"`
	StopReason string       `json:"stop_reason"`
	Usage      *apiUsage    `json:"usage,omitempty"`
	Error      *apiError    `json:"error,omitempty"`
}

type apiContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// New creates a new Anthropic model instance.
func New(cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120
	}

	return &anthropicModel{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
		),
	}, nil
}

func (m *anthropicModel) Name() string {
	return m.config.Model
}

func (m *anthropicModel) Provider() model.Provider {
	return model.ProviderAnthropic
}

func (m *anthropicModel) Close() error {
	return nil
}

// Generate performs non-streaming generation.
func (m *anthropicModel) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(m.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", m.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse Anthropic response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("Anthropic API error: %s", apiResp.Error.Message)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text content in Anthropic response")
	}

	result := &model.Response{
		Text:         text.String(),
		FinishReason: mapStopReason(apiResp.StopReason),
	}
	if apiResp.Usage != nil {
		result.Usage = &model.Usage{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
			TotalTokens:      apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		}
	}

	return result, nil
}

func (m *anthropicModel) buildRequest(req *model.Request) apiRequest {
	messages := make([]apiMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, apiMessage{Role: string(msg.Role), Content: msg.Text})
	}

	out := apiRequest{
		Model:       m.config.Model,
		Messages:    messages,
		MaxTokens:   m.config.MaxTokens,
		Temperature: m.config.Temperature,
		System:      req.SystemInstruction,
	}

	if req.Config != nil {
		if req.Config.Temperature != nil {
			out.Temperature = *req.Config.Temperature
		}
		if req.Config.MaxTokens != nil {
			out.MaxTokens = *req.Config.MaxTokens
		}
		if req.Config.TopP != nil {
			out.TopP = req.Config.TopP
		}
		if req.Config.TopK != nil {
			out.TopK = req.Config.TopK
		}
	}

	return out
}

func mapStopReason(reason string) model.FinishReason {
	switch reason {
	case "max_tokens":
		return model.FinishReasonLength
	case "refusal":
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}

// Ensure anthropicModel implements model.LLM
var _ model.LLM = (*anthropicModel)(nil)
