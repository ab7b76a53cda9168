package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestMemoryStore_FilterMatchesStringForm(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Add(context.Background(), []Chunk{
		{Content: "first", Embedding: []float32{1, 0}, Metadata: map[string]any{ChunkIndexKey: 0}},
		{Content: "second", Embedding: []float32{1, 0}, Metadata: map[string]any{ChunkIndexKey: 1}},
	}))

	results, err := m.Query(context.Background(), []float32{1, 0}, 5, map[string]string{ChunkIndexKey: "1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].Content)
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Add(context.Background(), []Chunk{{Content: "x", Embedding: []float32{1, 0, 0}}}))

	_, err := m.Query(context.Background(), []float32{1, 0}, 1, nil)
	assert.Error(t, err)
}

func TestMemoryStore_EmptyResultIsNotNil(t *testing.T) {
	results, err := NewMemoryStore().Query(context.Background(), []float32{1}, 3, nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
