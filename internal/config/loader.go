package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, e.g. TROUBLESHOOTER_CHAT__MAX_ROUND=20.
const EnvPrefix = "TROUBLESHOOTER_"

// DefaultDotEnvFile is read from the working directory when present.
const DefaultDotEnvFile = ".env"

// apiKeyEnvVars lists the well-known variables consulted per provider when
// llm.api_key is not set explicitly. The first entry is the preferred one.
var apiKeyEnvVars = map[string][]string{
	ProviderGroq:         {"GROQ_API_KEY"},
	ProviderOpenAI:       {"OPENAI_API_KEY"},
	ProviderOllama:       {"OLLAMA_API_KEY"},
	ProviderAnthropic:    {"ANTHROPIC_API_KEY"},
	ProviderAzureFoundry: {"ANTHROPIC_FOUNDRY_API_KEY", "AZURE_FOUNDRY_API_KEY"},
	ProviderGemini:       {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. A missing explicit file is an error.
	ConfigFile string
	// DotEnvFile defaults to DefaultDotEnvFile; a missing default file is ignored.
	DotEnvFile string
	// Environ defaults to os.Environ().
	Environ []string
	// Overrides are koanf paths set from command-line flags.
	Overrides map[string]interface{}
}

// Load builds the configuration, resolves the API key and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.ConfigFile != "" {
		if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil {
			return nil, NewConfigError(fmt.Sprintf("failed to load config file %s: %v", opts.ConfigFile, err))
		}
	}

	dotEnv, err := loadDotEnv(opts.DotEnvFile)
	if err != nil {
		return nil, err
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	lookup := newLookup(environ, dotEnv)

	// Prefixed keys from .env lose to the real environment.
	if err := k.Load(confmap.Provider(prefixedKeys(dotEnv), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load %s overrides: %w", DefaultDotEnvFile, err)
	}

	if err := loadEnvironment(k, opts.Environ); err != nil {
		return nil, err
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, NewConfigError(fmt.Sprintf("failed to decode configuration: %v", err))
	}

	resolveProviderEnv(&cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveProviderEnv fills the provider's default model, the API key and
// provider specific endpoints from well-known variables.
func resolveProviderEnv(cfg *Config, lookup func(string) string) {
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}

	if cfg.LLM.APIKey == "" {
		for _, name := range apiKeyEnvVars[cfg.LLM.Provider] {
			if v := lookup(name); v != "" {
				cfg.LLM.APIKey = v
				break
			}
		}
	}

	if cfg.LLM.Provider == ProviderAzureFoundry && cfg.LLM.BaseURL == "" {
		if resource := lookup("ANTHROPIC_FOUNDRY_RESOURCE"); resource != "" {
			cfg.LLM.BaseURL = fmt.Sprintf("https://%s.services.ai.azure.com", resource)
		}
	}
}

// loadDotEnv reads KEY=value pairs. The default file is optional.
func loadDotEnv(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultDotEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return map[string]string{}, nil
		}
		return nil, NewConfigError(fmt.Sprintf("failed to read env file %s: %v", path, err))
	}

	k := koanf.New("\x00")
	if err := k.Load(file.Provider(path), dotenv.Parser()); err != nil {
		return nil, NewConfigError(fmt.Sprintf("failed to parse env file %s: %v", path, err))
	}

	out := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		out[key] = k.String(key)
	}
	return out, nil
}

func newLookup(environ []string, dotEnv map[string]string) func(string) string {
	vars := make(map[string]string, len(environ)+len(dotEnv))
	for key, value := range dotEnv {
		vars[key] = value
	}
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}
	return func(name string) string { return vars[name] }
}

func prefixedKeys(vars map[string]string) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range vars {
		if strings.HasPrefix(key, EnvPrefix) {
			out[envKeyToPath(key)] = value
		}
	}
	return out
}

// loadEnvironment merges TROUBLESHOOTER_ variables. A nil environ reads the
// process environment through the koanf env provider.
func loadEnvironment(k *koanf.Koanf, environ []string) error {
	if environ == nil {
		provider := env.Provider(EnvPrefix, ".", envKeyToPath)
		if err := k.Load(provider, nil); err != nil {
			return fmt.Errorf("failed to load environment: %w", err)
		}
		return nil
	}

	vars := make(map[string]string)
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}
	if err := k.Load(confmap.Provider(prefixedKeys(vars), "."), nil); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	return nil
}

// envKeyToPath maps TROUBLESHOOTER_LLM__API_KEY to llm.api_key.
func envKeyToPath(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}
