package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	googleoption "google.golang.org/api/option"
)

// Embedder turns text into a dense vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model returns the embedding model name
	Model() string
}

// Default embedding models per provider
const (
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// NewEmbedder creates an embedder for the given provider.
// Anthropic has no embedding endpoint, so it is rejected.
func NewEmbedder(ctx context.Context, provider Provider, model, apiKey string) (Embedder, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiEmbedder(ctx, model, apiKey)
	case ProviderOpenAI:
		return NewOpenAIEmbedder(model, apiKey)
	default:
		return nil, fmt.Errorf("provider %q does not support embeddings", provider)
	}
}

// GeminiEmbedder implements Embedder with the Gemini embedding API
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a Gemini embedder
func NewGeminiEmbedder(ctx context.Context, model, apiKey string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}

	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

// Embed returns the embedding vector for text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, wrapProviderError(ProviderGemini, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return res.Embedding.Values, nil
}

// Model returns the embedding model name
func (e *GeminiEmbedder) Model() string {
	return e.model
}

// Close releases the underlying client
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an OpenAI embedder
func NewOpenAIEmbedder(model, apiKey string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmbedder{client: &client, model: model}, nil
}

// Embed returns the embedding vector for text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, wrapProviderError(ProviderOpenAI, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	values := resp.Data[0].Embedding
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

// Model returns the embedding model name
func (e *OpenAIEmbedder) Model() string {
	return e.model
}
