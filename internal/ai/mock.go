package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers.
type MockProvider struct {
	Response    string
	Err         error
	LastRequest *CompletionRequest // captures the last request for inspection

	mu    sync.Mutex
	calls int
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.LastRequest = &req
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	return CompletionResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

// Calls reports how many times Complete has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}
