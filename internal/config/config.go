// Package config loads troubleshooter settings from defaults, a YAML file, a
// .env file, the environment and command-line overrides, in that order.
package config

import (
	"fmt"
	"time"
)

// Human input modes.
const (
	HumanInputNever  = "NEVER"
	HumanInputAlways = "ALWAYS"
)

// Termination match modes.
const (
	MatchSuffix   = "suffix"
	MatchContains = "contains"
)

// Provider names.
const (
	ProviderGroq         = "groq"
	ProviderOpenAI       = "openai"
	ProviderOllama       = "ollama"
	ProviderAnthropic    = "anthropic"
	ProviderAzureFoundry = "azure-foundry"
	ProviderGemini       = "gemini"
	ProviderMock         = "mock"
)

// Config is the root configuration.
type Config struct {
	LLM      LLMConfig      `koanf:"llm"`
	Chat     ChatConfig     `koanf:"chat"`
	Executor ExecutorConfig `koanf:"executor"`
	Prompts  PromptsConfig  `koanf:"prompts"`
	Audit    AuditConfig    `koanf:"audit"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// LLMConfig selects and tunes the model backend shared by Planner and Analyst.
type LLMConfig struct {
	Provider          string        `koanf:"provider" validate:"required,oneof=groq openai ollama anthropic azure-foundry gemini mock"`
	Model             string        `koanf:"model" validate:"required"`
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url" validate:"omitempty,url"`
	Temperature       float64       `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens         int           `koanf:"max_tokens" validate:"gte=0"`
	RequestsPerMinute float64       `koanf:"requests_per_minute" validate:"gte=0"`
	Timeout           time.Duration `koanf:"timeout" validate:"gte=0"`
	MockScenario      string        `koanf:"mock_scenario" validate:"required_if=Provider mock"`
}

// ChatConfig controls the group chat loop.
type ChatConfig struct {
	MaxRound          int           `koanf:"max_round" validate:"gte=2"`
	TurnWait          time.Duration `koanf:"turn_wait" validate:"gte=0"`
	TerminationToken  string        `koanf:"termination_token" validate:"required"`
	TerminationMatch  string        `koanf:"termination_match" validate:"oneof=suffix contains"`
	SendIntroductions bool          `koanf:"send_introductions"`
	HumanInputMode    string        `koanf:"human_input_mode" validate:"oneof=NEVER ALWAYS"`
	Silent            bool          `koanf:"silent"`
}

// ExecutorConfig controls local execution of code blocks.
type ExecutorConfig struct {
	WorkDir string        `koanf:"work_dir" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	Shell   string        `koanf:"shell" validate:"required"`
	Python  string        `koanf:"python" validate:"required"`
}

// PromptsConfig optionally replaces the built-in prompt templates.
type PromptsConfig struct {
	PlannerFile string `koanf:"planner_file"`
	AnalystFile string `koanf:"analyst_file"`
}

// AuditConfig controls the JSONL session audit log.
type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// MetricsConfig controls the Prometheus textfile written on exit.
type MetricsConfig struct {
	File string `koanf:"file"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint" validate:"required_if=Enabled true"`
	TLSCAPath   string `koanf:"tls_ca_path"`
	TLSInsecure bool   `koanf:"tls_insecure"`
}

// defaultModels is the model used when llm.model is unset. Groq hosted
// llama-3.1-70b is what the tool was built around.
var defaultModels = map[string]string{
	ProviderGroq:         "llama-3.1-70b-versatile",
	ProviderOpenAI:       "gpt-4o",
	ProviderOllama:       "llama3.1",
	ProviderAnthropic:    "claude-sonnet-4-5-20250929",
	ProviderAzureFoundry: "claude-sonnet-4-5-20250929",
	ProviderGemini:       "gemini-2.5-flash",
	ProviderMock:         "mock",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Defaults mirror the behaviour the tool was built around: Groq hosted
// llama-3.1-70b at temperature 0, 50 rounds, 5s between rate-limited turns and
// a 10s execution timeout.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"llm.provider":             ProviderGroq,
		"llm.temperature":          0.0,
		"llm.max_tokens":           4096,
		"llm.requests_per_minute":  0.0,
		"llm.timeout":              2 * time.Minute,
		"chat.max_round":           50,
		"chat.turn_wait":           5 * time.Second,
		"chat.termination_token":   "TERMINATE",
		"chat.termination_match":   MatchSuffix,
		"chat.send_introductions":  true,
		"chat.human_input_mode":    HumanInputNever,
		"chat.silent":              false,
		"executor.work_dir":        "__workspace__",
		"executor.timeout":         10 * time.Second,
		"executor.shell":           "bash",
		"executor.python":          "python3",
		"audit.enabled":            true,
		"tracing.enabled":          false,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}

// Validate runs struct validation and cross-field checks.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}

	if requiresAPIKey(c.LLM.Provider) && c.LLM.APIKey == "" {
		return NewConfigError(fmt.Sprintf(
			"llm.api_key is required for provider %q (set %s or TROUBLESHOOTER_LLM__API_KEY)",
			c.LLM.Provider, apiKeyEnvVars[c.LLM.Provider][0],
		))
	}

	if c.LLM.Provider == ProviderAzureFoundry && c.LLM.BaseURL == "" {
		return NewConfigError("llm.base_url is required for provider \"azure-foundry\" (set ANTHROPIC_FOUNDRY_RESOURCE or llm.base_url)")
	}

	return nil
}

// WaitsEnabled reports whether rate-limit pauses apply. A human in the loop
// already paces the conversation.
func (c ChatConfig) WaitsEnabled() bool {
	return c.HumanInputMode == HumanInputNever && c.TurnWait > 0
}

func requiresAPIKey(provider string) bool {
	switch provider {
	case ProviderMock, ProviderOllama:
		return false
	default:
		return true
	}
}
