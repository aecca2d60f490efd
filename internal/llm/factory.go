package llm

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// FactoryConfig holds the parameters needed to create a text generation
// gateway. This is defined in the llm package to avoid importing the config
// package, keeping the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// PrimaryProvider is the primary provider name ("anthropic" or "openai").
	PrimaryProvider string
	// SecondaryProvider is the failover provider name. Empty disables failover.
	SecondaryProvider string
	// Timeout is the timeout for a single provider call.
	Timeout time.Duration
	// Retry is the retry policy applied to the primary provider.
	Retry RetryPolicy
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig
}

// NewProvider creates a single provider by name. Supports "anthropic" and
// "openai"; returns an error for unsupported or empty provider values.
func NewProvider(name string, cfg FactoryConfig) (TextGenerator, error) {
	switch name {
	case "anthropic":
		ac := cfg.Anthropic
		ac.Timeout = cfg.Timeout
		return NewAnthropicProvider(ac), nil
	case "openai":
		oc := cfg.OpenAI
		oc.Timeout = cfg.Timeout
		return NewOpenAIProvider(oc), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", name)
	}
}

// NewGateway creates a FallbackGateway from the configuration. The secondary
// provider is optional.
func NewGateway(cfg FactoryConfig, logger zerolog.Logger, metrics MetricsRecorder) (*FallbackGateway, error) {
	primary, err := NewProvider(cfg.PrimaryProvider, cfg)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}

	var secondary TextGenerator
	if cfg.SecondaryProvider != "" {
		secondary, err = NewProvider(cfg.SecondaryProvider, cfg)
		if err != nil {
			return nil, fmt.Errorf("secondary provider: %w", err)
		}
	}

	return NewFallbackGateway(primary, secondary, cfg.Retry, logger, metrics), nil
}
