package review

import (
	"context"
	"sync/atomic"

	"github.com/jonathan/cover-letter-agent/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	calls            atomic.Int32
}

func (m *MockLLMClient) GenerateContent(_ context.Context, _ string, _ llm.ModelTier, _ ...llm.CallOption) (string, error) {
	m.calls.Add(1)
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, _ ...llm.CallOption) (string, error) {
	m.calls.Add(1)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string {
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	return nil
}

func ptr(s string) *string {
	return &s
}
