package ingestion

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitter_ShortTextIsOneChunk(t *testing.T) {
	chunks := DefaultSplitter().Split("  Dear team,\n\nI build things.  ")
	assert.Equal(t, []string{"Dear team,\n\nI build things."}, chunks)
}

func TestSplitter_BlankText(t *testing.T) {
	assert.Nil(t, DefaultSplitter().Split(" \n\n "))
}

func TestSplitter_WordBoundariesWithOverlap(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}
	s := NewSplitter(100, 20)

	chunks := s.Split(strings.Join(words, " "))
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100, "chunk %d too long", i)
		if i > 0 {
			prev := strings.Fields(chunks[i-1])
			assert.True(t, strings.HasPrefix(c, prev[len(prev)-2]), "chunk %d should overlap the previous one", i)
		}
	}
	assert.True(t, strings.HasPrefix(chunks[0], "word000"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "word199"))
}

func TestSplitter_PrefersParagraphs(t *testing.T) {
	p1 := strings.Repeat("a", 60)
	p2 := strings.Repeat("b", 60)
	chunks := NewSplitter(100, 10).Split(p1 + "\n\n" + p2)

	assert.Equal(t, []string{p1, p2}, chunks)
}

func TestSplitter_NoSeparatorFallsBackToCharacters(t *testing.T) {
	chunks := DefaultSplitter().Split(strings.Repeat("x", 2500))

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 900)
}

func TestSplitter_CountsCharactersNotBytes(t *testing.T) {
	chunks := NewSplitter(10, 0).Split(strings.Repeat("é", 25))

	require.Len(t, chunks, 3)
	assert.Equal(t, 10, utf8.RuneCountInString(chunks[0]))
}

func TestNewSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, DefaultChunkSize/5, s.ChunkOverlap)

	s = NewSplitter(100, 100)
	assert.Equal(t, 20, s.ChunkOverlap)
}
