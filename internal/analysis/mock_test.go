package analysis

import (
	"context"

	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(_ context.Context, _ string, _ llm.ModelTier, _ ...llm.CallOption) (string, error) {
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, _ ...llm.CallOption) (string, error) {
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

// mockSearcher implements retrieval.Searcher for testing
type mockSearcher struct {
	query   string
	limit   int
	filter  map[string]string
	results []retrieval.SearchResult
	err     error
}

func (m *mockSearcher) Search(_ context.Context, query string, limit int, filter map[string]string) ([]retrieval.SearchResult, error) {
	m.query = query
	m.limit = limit
	m.filter = filter
	return m.results, m.err
}
