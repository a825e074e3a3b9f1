package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noDotEnv(t *testing.T) string {
	t.Helper()
	return writeFile(t, t.TempDir(), ".env", "")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{
		DotEnvFile: noDotEnv(t),
		Environ:    []string{"GROQ_API_KEY=gsk-test"},
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Zero(t, cfg.LLM.Temperature)
	assert.Equal(t, 50, cfg.Chat.MaxRound)
	assert.Equal(t, 5*time.Second, cfg.Chat.TurnWait)
	assert.Equal(t, "TERMINATE", cfg.Chat.TerminationToken)
	assert.Equal(t, MatchSuffix, cfg.Chat.TerminationMatch)
	assert.True(t, cfg.Chat.SendIntroductions)
	assert.Equal(t, HumanInputNever, cfg.Chat.HumanInputMode)
	assert.Equal(t, "__workspace__", cfg.Executor.WorkDir)
	assert.Equal(t, 10*time.Second, cfg.Executor.Timeout)
	assert.True(t, cfg.Chat.WaitsEnabled())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "config.yaml", `
llm:
  provider: openai
  model: gpt-4o
chat:
  max_round: 30
  turn_wait: 2s
executor:
  timeout: 30s
`)
	dotEnv := writeFile(t, dir, ".env", "OPENAI_API_KEY=from-dotenv\nTROUBLESHOOTER_CHAT__MAX_ROUND=25\n")

	cfg, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		DotEnvFile: dotEnv,
		Environ:    []string{"TROUBLESHOOTER_CHAT__MAX_ROUND=20", "TROUBLESHOOTER_LLM__MODEL=gpt-4o-mini"},
		Overrides:  map[string]interface{}{"llm.model": "gpt-4.1"},
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model, "flags win over env")
	assert.Equal(t, 20, cfg.Chat.MaxRound, "env wins over .env")
	assert.Equal(t, 2*time.Second, cfg.Chat.TurnWait)
	assert.Equal(t, 30*time.Second, cfg.Executor.Timeout)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
}

func TestLoadEnvironmentKeyWinsOverDotEnv(t *testing.T) {
	dotEnv := writeFile(t, t.TempDir(), ".env", "GROQ_API_KEY=dotenv\n")
	cfg, err := Load(LoadOptions{DotEnvFile: dotEnv, Environ: []string{"GROQ_API_KEY=process"}})
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.LLM.APIKey)
}

func TestLoadMissingAPIKey(t *testing.T) {
	_, err := Load(LoadOptions{DotEnvFile: noDotEnv(t), Environ: []string{}})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
}

func TestLoadMockNeedsScenario(t *testing.T) {
	_, err := Load(LoadOptions{
		DotEnvFile: noDotEnv(t),
		Environ:    []string{},
		Overrides:  map[string]interface{}{"llm.provider": ProviderMock},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.mock_scenario is required")

	cfg, err := Load(LoadOptions{
		DotEnvFile: noDotEnv(t),
		Environ:    []string{},
		Overrides: map[string]interface{}{
			"llm.provider":      ProviderMock,
			"llm.mock_scenario": "scenario.yaml",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadDefaultModelPerProvider(t *testing.T) {
	tests := []struct {
		provider string
		environ  []string
		want     string
	}{
		{provider: ProviderGroq, environ: []string{"GROQ_API_KEY=k"}, want: "llama-3.1-70b-versatile"},
		{provider: ProviderOpenAI, environ: []string{"OPENAI_API_KEY=k"}, want: "gpt-4o"},
		{provider: ProviderOllama, want: "llama3.1"},
		{provider: ProviderAnthropic, environ: []string{"ANTHROPIC_API_KEY=k"}, want: "claude-sonnet-4-5-20250929"},
		{provider: ProviderAzureFoundry, environ: []string{"ANTHROPIC_FOUNDRY_API_KEY=k", "ANTHROPIC_FOUNDRY_RESOURCE=r"}, want: "claude-sonnet-4-5-20250929"},
		{provider: ProviderGemini, environ: []string{"GEMINI_API_KEY=k"}, want: "gemini-2.5-flash"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			environ := append([]string{}, tt.environ...)
			cfg, err := Load(LoadOptions{
				DotEnvFile: noDotEnv(t),
				Environ:    environ,
				Overrides:  map[string]interface{}{"llm.provider": tt.provider},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.LLM.Model)
		})
	}

	cfg, err := Load(LoadOptions{
		DotEnvFile: noDotEnv(t),
		Environ:    []string{"ANTHROPIC_API_KEY=k"},
		Overrides:  map[string]interface{}{"llm.provider": ProviderAnthropic, "llm.model": "claude-3-5-haiku-20241022"},
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.LLM.Model, "explicit model wins")
}

func TestLoadAzureFoundryResource(t *testing.T) {
	cfg, err := Load(LoadOptions{
		DotEnvFile: noDotEnv(t),
		Environ: []string{
			"ANTHROPIC_FOUNDRY_API_KEY=key",
			"ANTHROPIC_FOUNDRY_RESOURCE=myres",
		},
		Overrides: map[string]interface{}{
			"llm.provider": ProviderAzureFoundry,
			"llm.model":    "claude-sonnet-4-5",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://myres.services.ai.azure.com", cfg.LLM.BaseURL)
	assert.Equal(t, "key", cfg.LLM.APIKey)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		want      string
	}{
		{
			name:      "unknown provider",
			overrides: map[string]interface{}{"llm.provider": "bard"},
			want:      "llm.provider must be one of",
		},
		{
			name:      "max round too small",
			overrides: map[string]interface{}{"chat.max_round": 1},
			want:      "chat.max_round",
		},
		{
			name:      "bad human input mode",
			overrides: map[string]interface{}{"chat.human_input_mode": "TERMINATE"},
			want:      "chat.human_input_mode must be one of",
		},
		{
			name:      "bad termination match",
			overrides: map[string]interface{}{"chat.termination_match": "prefix"},
			want:      "chat.termination_match",
		},
		{
			name:      "zero executor timeout",
			overrides: map[string]interface{}{"executor.timeout": "0s"},
			want:      "executor.timeout",
		},
		{
			name:      "tracing without endpoint",
			overrides: map[string]interface{}{"tracing.enabled": true},
			want:      "tracing.endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(LoadOptions{
				DotEnvFile: noDotEnv(t),
				Environ:    []string{"GROQ_API_KEY=k"},
				Overrides:  tt.overrides,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingExplicitFiles(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), Environ: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")

	_, err = Load(LoadOptions{DotEnvFile: filepath.Join(t.TempDir(), "nope.env"), Environ: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read env file")
}

func TestWaitsEnabled(t *testing.T) {
	assert.True(t, ChatConfig{HumanInputMode: HumanInputNever, TurnWait: time.Second}.WaitsEnabled())
	assert.False(t, ChatConfig{HumanInputMode: HumanInputAlways, TurnWait: time.Second}.WaitsEnabled())
	assert.False(t, ChatConfig{HumanInputMode: HumanInputNever}.WaitsEnabled())
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "chat.max_round", fieldKey("Config.Chat.MaxRound"))
	assert.Equal(t, "llm.api_key", fieldKey("Config.LLM.APIKey"))
	assert.Equal(t, "tracing.tls_ca_path", fieldKey("Config.Tracing.TLSCAPath"))
}

func TestEnvKeyToPath(t *testing.T) {
	assert.Equal(t, "llm.api_key", envKeyToPath("TROUBLESHOOTER_LLM__API_KEY"))
	assert.Equal(t, "chat.turn_wait", envKeyToPath("TROUBLESHOOTER_CHAT__TURN_WAIT"))
}
