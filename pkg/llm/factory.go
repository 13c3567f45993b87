package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider selects which AI service backs the client.
type Provider string

const (
	ProviderBedrock   Provider = "bedrock"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config holds everything needed to construct a client for any provider.
type Config struct {
	Provider Provider
	Model    string

	// Region and the credential pair apply to the Bedrock provider.
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// APIKey applies to the Anthropic and OpenAI providers.
	APIKey string

	// Endpoint applies to the OpenAI provider (self-hosted endpoints).
	Endpoint string

	MaxTokens   int
	Temperature float64
}

func (c *Config) maxTokensOrDefault() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1024
}

// NewClient creates the client for the configured provider.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case ProviderBedrock, "":
		return NewBedrockClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
