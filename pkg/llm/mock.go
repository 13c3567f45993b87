package llm

import (
	"context"
	"sync"
)

// MockClient is a configurable mock for testing. Set the function field to
// control behavior; calls are counted for verification. Safe for use from
// concurrent worker-pool jobs.
type MockClient struct {
	mu sync.Mutex

	// GenerateMetadataFunc is called when GenerateMetadata is invoked.
	// If nil, returns an empty string and nil error.
	GenerateMetadataFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	generateMetadataCalls int
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// GenerateMetadata implements Client.
func (m *MockClient) GenerateMetadata(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.mu.Lock()
	m.generateMetadataCalls++
	m.mu.Unlock()

	if m.GenerateMetadataFunc != nil {
		return m.GenerateMetadataFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// GenerateMetadataCalls returns how many times GenerateMetadata was called.
func (m *MockClient) GenerateMetadataCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateMetadataCalls
}

// Model implements Client.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
