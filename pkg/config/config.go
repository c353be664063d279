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

// Package config defines the YAML configuration for the refinement loop:
// LLM providers, role instructions, and loop bounds. String values support
// ${VAR}, ${VAR:-default}, and $VAR environment expansion.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultTurnLimit is the maximum transcript length (seed included) before
// the loop stops: 6 entries, i.e. three generate/reflect cycles.
const DefaultTurnLimit = 6

// Default role instructions. Overridable per role in config.
const (
	DefaultGeneratorInstruction = "You are a twitter techie influencer assistant tasked with writing excellent twitter posts. " +
		"Generate the best twitter post possible for the user's request. " +
		"If the user provides critique, respond with a revised version of your previous attempts."

	DefaultReflectorInstruction = "You are a viral twitter influencer grading a tweet. " +
		"Generate critique and recommendations for the user's tweet. " +
		"Always provide detailed recommendations, including requests for length, virality, style, etc."
)

// DefaultLLMName is the registry name used when a role does not reference a
// specific provider.
const DefaultLLMName = "default"

// Config is the top-level configuration.
type Config struct {
	// LLMs maps provider names to their configuration. When empty, a single
	// "default" provider is built from the environment.
	LLMs map[string]*LLMConfig `yaml:"llms,omitempty" mapstructure:"llms"`

	// Roles configures the generator and reflector personas.
	Roles RolesConfig `yaml:"roles,omitempty" mapstructure:"roles"`

	// Loop configures termination.
	Loop LoopConfig `yaml:"loop,omitempty" mapstructure:"loop"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty" mapstructure:"logger"`
}

// RolesConfig holds both role configurations.
type RolesConfig struct {
	Generator RoleConfig `yaml:"generator,omitempty" mapstructure:"generator"`
	Reflector RoleConfig `yaml:"reflector,omitempty" mapstructure:"reflector"`
}

// RoleConfig configures one role of the loop.
type RoleConfig struct {
	// Instruction is the role's fixed system preamble. Immutable for a run;
	// the loop never inspects its content.
	Instruction string `yaml:"instruction,omitempty" mapstructure:"instruction"`

	// LLM references an entry in the top-level llms map. Empty means
	// "default". Roles may reference different providers (e.g. a cheaper
	// critic model).
	LLM string `yaml:"llm,omitempty" mapstructure:"llm"`

	// Temperature overrides the provider default for this role.
	Temperature *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`

	// MaxTokens overrides the provider default for this role.
	MaxTokens int `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// LoopConfig configures loop termination.
type LoopConfig struct {
	// TurnLimit is the transcript length (count of entries, seed included)
	// past which the loop stops: the run ends after the first generator turn
	// that pushes the transcript length strictly above this limit.
	TurnLimit int `yaml:"turn_limit,omitempty" mapstructure:"turn_limit"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty" mapstructure:"level"`

	// Format is "simple" or "verbose".
	Format string `yaml:"format,omitempty" mapstructure:"format"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.LLMs == nil {
		c.LLMs = map[string]*LLMConfig{}
	}
	if len(c.LLMs) == 0 {
		c.LLMs[DefaultLLMName] = &LLMConfig{}
	}
	for _, llm := range c.LLMs {
		llm.SetDefaults()
	}

	if c.Roles.Generator.Instruction == "" {
		c.Roles.Generator.Instruction = DefaultGeneratorInstruction
	}
	if c.Roles.Reflector.Instruction == "" {
		c.Roles.Reflector.Instruction = DefaultReflectorInstruction
	}

	if c.Loop.TurnLimit == 0 {
		c.Loop.TurnLimit = DefaultTurnLimit
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "simple"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm '%s': %w", name, err)
		}
	}

	for _, role := range []struct {
		name string
		cfg  RoleConfig
	}{
		{"generator", c.Roles.Generator},
		{"reflector", c.Roles.Reflector},
	} {
		ref := role.cfg.LLM
		if ref == "" {
			ref = DefaultLLMName
		}
		if _, ok := c.LLMs[ref]; !ok {
			return fmt.Errorf("role '%s' references unknown llm '%s'", role.name, ref)
		}
		if role.cfg.Temperature != nil && (*role.cfg.Temperature < 0 || *role.cfg.Temperature > 2) {
			return fmt.Errorf("role '%s': temperature must be between 0 and 2", role.name)
		}
		if role.cfg.MaxTokens < 0 {
			return fmt.Errorf("role '%s': max_tokens must be non-negative", role.name)
		}
	}

	if c.Loop.TurnLimit < 1 {
		return fmt.Errorf("loop: turn_limit must be a positive integer, got %d", c.Loop.TurnLimit)
	}

	return nil
}

// LoadFile reads, expands, and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses raw YAML into a validated Config. Environment variables in
// string values are expanded before decoding.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ZeroConfig carries the CLI flags used to build a config without a file.
type ZeroConfig struct {
	Provider             string
	Model                string
	APIKey               string
	BaseURL              string
	Temperature          float64
	MaxTokens            int
	GeneratorInstruction string
	ReflectorInstruction string
	TurnLimit            int
}

// CreateZeroConfig builds a Config from CLI flags alone.
func CreateZeroConfig(z ZeroConfig) *Config {
	temp := z.Temperature
	cfg := &Config{
		LLMs: map[string]*LLMConfig{
			DefaultLLMName: {
				Provider:    LLMProvider(z.Provider),
				Model:       z.Model,
				APIKey:      z.APIKey,
				BaseURL:     z.BaseURL,
				Temperature: &temp,
				MaxTokens:   z.MaxTokens,
			},
		},
		Roles: RolesConfig{
			Generator: RoleConfig{Instruction: z.GeneratorInstruction},
			Reflector: RoleConfig{Instruction: z.ReflectorInstruction},
		},
		Loop: LoopConfig{TurnLimit: z.TurnLimit},
	}

	cfg.SetDefaults()
	return cfg
}
