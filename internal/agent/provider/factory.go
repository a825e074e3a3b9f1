package provider

import (
	"context"
	"fmt"
)

// Options selects and configures a backend by name.
type Options struct {
	Name              string
	Config            Config
	MockScenario      string
	RequestsPerMinute float64
}

// New builds the provider named in opts, wrapped with the optional rate
// limit.
func New(ctx context.Context, opts Options) (Provider, error) {
	p, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}
	return WithRateLimit(p, opts.RequestsPerMinute), nil
}

func build(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Name {
	case "groq", "openai", "ollama":
		return NewOpenAIProvider(opts.Name, opts.Config)
	case "anthropic":
		return NewAnthropicProvider(opts.Config)
	case "azure-foundry":
		return NewAzureFoundryProvider(opts.Config)
	case "gemini":
		return NewGeminiProvider(ctx, opts.Config)
	case "mock":
		if opts.MockScenario == "" {
			return nil, fmt.Errorf("mock provider requires a scenario file")
		}
		return NewMockProviderFromFile(opts.MockScenario)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Name)
	}
}
