package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Full(t *testing.T) {
	yaml := `
llms:
  main:
    provider: openai
    model: gpt-4o
    api_key: sk-test
    temperature: 0.3
  critic:
    provider: anthropic
    api_key: sk-ant-test
roles:
  generator:
    llm: main
    instruction: "Write the best post you can."
  reflector:
    llm: critic
    temperature: 0.1
loop:
  turn_limit: 8
logger:
  level: debug
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	require.Contains(t, cfg.LLMs, "main")
	require.Contains(t, cfg.LLMs, "critic")
	assert.Equal(t, LLMProviderOpenAI, cfg.LLMs["main"].Provider)
	assert.Equal(t, 0.3, *cfg.LLMs["main"].Temperature)
	assert.Equal(t, DefaultAnthropicModel, cfg.LLMs["critic"].Model)

	assert.Equal(t, "main", cfg.Roles.Generator.LLM)
	assert.Equal(t, "Write the best post you can.", cfg.Roles.Generator.Instruction)
	assert.Equal(t, DefaultReflectorInstruction, cfg.Roles.Reflector.Instruction)
	assert.Equal(t, 0.1, *cfg.Roles.Reflector.Temperature)

	assert.Equal(t, 8, cfg.Loop.TurnLimit)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_REFLECTOR_KEY", "sk-from-env")
	t.Setenv("TEST_REFLECTOR_LIMIT", "4")

	yaml := `
llms:
  default:
    provider: openai
    api_key: ${TEST_REFLECTOR_KEY}
loop:
  turn_limit: ${TEST_REFLECTOR_LIMIT}
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLMs["default"].APIKey)
	assert.Equal(t, 4, cfg.Loop.TurnLimit)
}

func TestParse_EnvExpansionDefault(t *testing.T) {
	yaml := `
llms:
  default:
    provider: openai
    api_key: ${TEST_REFLECTOR_UNSET_KEY:-sk-fallback}
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "sk-fallback", cfg.LLMs["default"].APIKey)
}

func TestParse_UnknownRoleLLM(t *testing.T) {
	yaml := `
llms:
  default:
    provider: openai
    api_key: sk-test
roles:
  reflector:
    llm: nonexistent
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm")
}

func TestParse_InvalidTurnLimit(t *testing.T) {
	yaml := `
llms:
  default:
    provider: openai
    api_key: sk-test
loop:
  turn_limit: -2
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turn_limit")
}

func TestLLMConfig_Validate(t *testing.T) {
	cfg := &LLMConfig{Provider: "mystery"}
	assert.Error(t, cfg.Validate())

	cfg = &LLMConfig{Provider: LLMProviderOpenAI}
	assert.Error(t, cfg.Validate(), "missing api key should fail")

	cfg = &LLMConfig{Provider: LLMProviderOllama, Model: "llama3.2"}
	assert.NoError(t, cfg.Validate(), "ollama needs no api key")

	temp := 3.5
	cfg = &LLMConfig{Provider: LLMProviderOpenAI, APIKey: "sk", Temperature: &temp}
	assert.Error(t, cfg.Validate(), "out-of-range temperature should fail")
}

func TestLLMConfig_SetDefaults_Gemini(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg := &LLMConfig{}
	cfg.SetDefaults()

	assert.Equal(t, LLMProviderGemini, cfg.Provider)
	assert.Equal(t, DefaultGeminiModel, cfg.Model)
	assert.Equal(t, "g-key", cfg.APIKey)
	assert.Equal(t, 0.7, *cfg.Temperature)
	assert.Equal(t, 4096, cfg.MaxTokens)
}

func TestCreateZeroConfig(t *testing.T) {
	cfg := CreateZeroConfig(ZeroConfig{
		Provider:    "openai",
		Model:       "gpt-4o",
		APIKey:      "sk-test",
		Temperature: 0.5,
		MaxTokens:   2048,
		TurnLimit:   2,
	})

	require.Contains(t, cfg.LLMs, DefaultLLMName)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLMs[DefaultLLMName].Provider)
	assert.Equal(t, 2, cfg.Loop.TurnLimit)
	assert.Equal(t, DefaultGeneratorInstruction, cfg.Roles.Generator.Instruction)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SetDefaults_TurnLimit(t *testing.T) {
	cfg := &Config{LLMs: map[string]*LLMConfig{
		DefaultLLMName: {Provider: LLMProviderOllama},
	}}
	cfg.SetDefaults()

	assert.Equal(t, DefaultTurnLimit, cfg.Loop.TurnLimit)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reflector.yaml")
	content := `
llms:
  default:
    provider: ollama
    model: llama3.2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, LLMProviderOllama, cfg.LLMs["default"].Provider)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
