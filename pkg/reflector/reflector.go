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

// Package reflector assembles the refinement loop from configuration:
// it instantiates the configured LLM providers, binds them to the
// generator and reflector roles, and exposes a single Run entry point.
package reflector

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/reflector/pkg/config"
	"github.com/kadirpekel/reflector/pkg/model"
	"github.com/kadirpekel/reflector/pkg/model/anthropic"
	"github.com/kadirpekel/reflector/pkg/model/gemini"
	"github.com/kadirpekel/reflector/pkg/model/ollama"
	"github.com/kadirpekel/reflector/pkg/model/openai"
	"github.com/kadirpekel/reflector/pkg/reflection"
	"github.com/kadirpekel/reflector/pkg/registry"
)

// Runner owns the wired loop and the provider clients behind it. Create one
// with New and release it with Close.
type Runner struct {
	config     *config.Config
	models     *registry.BaseRegistry[model.LLM]
	controller *reflection.Controller
}

// New builds a Runner from a validated configuration. Every entry in the
// llms map becomes a live client; both roles are then bound to the clients
// they reference.
func New(cfg *config.Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	r := &Runner{
		config: cfg,
		models: registry.NewBaseRegistry[model.LLM](),
	}

	for name, llmCfg := range cfg.LLMs {
		llm, err := newLLM(llmCfg)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create llm '%s': %w", name, err)
		}
		if err := r.models.Register(name, llm); err != nil {
			llm.Close()
			r.Close()
			return nil, err
		}
	}

	generator, err := r.newInvoker(reflection.RoleGenerator, cfg.Roles.Generator)
	if err != nil {
		r.Close()
		return nil, err
	}
	reflector, err := r.newInvoker(reflection.RoleReflector, cfg.Roles.Reflector)
	if err != nil {
		r.Close()
		return nil, err
	}

	controller, err := reflection.NewController(generator, reflector, cfg.Loop.TurnLimit)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.controller = controller

	return r, nil
}

// Run executes one refinement loop for the topic.
func (r *Runner) Run(ctx context.Context, topic string) (*reflection.Result, error) {
	return r.controller.Run(ctx, topic)
}

// Models returns the names of the registered LLM providers.
func (r *Runner) Models() []string {
	return r.models.Names()
}

// Close releases all provider clients.
func (r *Runner) Close() error {
	var errs []error
	for _, name := range r.models.Names() {
		if llm, ok := r.models.Get(name); ok {
			if err := llm.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close llm '%s': %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) newInvoker(role reflection.Role, roleCfg config.RoleConfig) (*reflection.Invoker, error) {
	ref := roleCfg.LLM
	if ref == "" {
		ref = config.DefaultLLMName
	}
	llm, ok := r.models.Get(ref)
	if !ok {
		return nil, fmt.Errorf("role '%s' references unknown llm '%s'", role, ref)
	}

	var opts []reflection.InvokerOption
	if roleCfg.Temperature != nil || roleCfg.MaxTokens > 0 {
		genCfg := &model.GenerateConfig{Temperature: roleCfg.Temperature}
		if roleCfg.MaxTokens > 0 {
			genCfg.MaxTokens = &roleCfg.MaxTokens
		}
		opts = append(opts, reflection.WithGenerateConfig(genCfg))
	}

	return reflection.NewInvoker(role, roleCfg.Instruction, llm, opts...)
}

// newLLM instantiates a provider client from its configuration.
func newLLM(cfg *config.LLMConfig) (model.LLM, error) {
	temperature := 0.0
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	switch cfg.Provider {
	case config.LLMProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
		})
	case config.LLMProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
		})
	case config.LLMProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
		})
	case config.LLMProviderOllama:
		return ollama.New(ollama.Config{
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
