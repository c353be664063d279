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

// Package openai implements the model.LLM interface for the OpenAI
// chat completions API.
package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

// Config contains configuration for the OpenAI model.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the model name (e.g., "gpt-4o").
	Model string

	// BaseURL overrides the default API endpoint (proxies, local servers).
	BaseURL string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0-2).
	Temperature float64

	// Timeout is the request timeout in seconds.
	Timeout int

	// MaxRetries bounds retry attempts on retryable failures.
	MaxRetries int

	// RetryDelay is the base retry delay in seconds.
	RetryDelay int
}

type openaiModel struct {
	config     Config
	httpClient *httpclient.Client
}

type apiRequest struct {
	Model               string       `json:"model"`
	Messages            []apiMessage `json:"messages"`
	MaxTokens           *int         `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int         `json:"max_completion_tokens,omitempty"`
	Temperature         *float64     `json:"temperature,omitempty"`
	TopP                *float64     `json:"top_p,omitempty"`
	Stop                []string     `json:"stop,omitempty"`
	Stream              bool         `json:"stream"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiChoice struct {
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// New creates a new OpenAI model instance.
func New(cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}

	return &openaiModel{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
	}, nil
}

func (m *openaiModel) Name() string {
	return m.config.Model
}

func (m *openaiModel) Provider() model.Provider {
	return model.ProviderOpenAI
}

func (m *openaiModel) Close() error {
	return nil
}

// Generate performs non-streaming generation.
func (m *openaiModel) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(m.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenAI response")
	}

	choice := apiResp.Choices[0]
	result := &model.Response{
		Text:         choice.Message.Content,
		FinishReason: mapFinishReason(choice.FinishReason),
	}
	if apiResp.Usage != nil {
		result.Usage = &model.Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		}
	}

	return result, nil
}

func (m *openaiModel) buildRequest(req *model.Request) apiRequest {
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
		if req.Config.TopP != nil {
			out.TopP = req.Config.TopP
		}
		out.Stop = req.Config.StopSequences
	}

	// o-series reasoning models require max_completion_tokens and fixed temperature
	if isReasoningModel(m.config.Model) {
		if maxTokens > 0 {
			out.MaxCompletionTokens = &maxTokens
		}
	} else {
		if maxTokens > 0 {
			out.MaxTokens = &maxTokens
		}
		out.Temperature = &temperature
	}

	return out
}

// isReasoningModel checks if a model requires max_completion_tokens
func isReasoningModel(name string) bool {
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func mapFinishReason(reason string) model.FinishReason {
	switch reason {
	case "length":
		return model.FinishReasonLength
	case "content_filter":
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}

// Ensure openaiModel implements model.LLM
var _ model.LLM = (*openaiModel)(nil)
