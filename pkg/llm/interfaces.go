// Package llm provides clients for the generative AI services that produce
// column metadata.
package llm

import "context"

// Client is the interface for a single text-completion operation against a
// generative model. Use it for dependency injection to enable mocking in
// tests.
type Client interface {
	// GenerateMetadata sends one prompt and returns the raw completion text.
	GenerateMetadata(ctx context.Context, prompt string, systemMessage string) (string, error)

	// Model returns the configured model identifier.
	Model() string
}

// Compile-time conformance checks.
var (
	_ Client = (*BedrockClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*MockClient)(nil)
)
