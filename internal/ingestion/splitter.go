package ingestion

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters for stored documents
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter breaks text into overlapping chunks, preferring paragraph, then line, then
// word boundaries. Sizes are measured in characters.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter returns a splitter with the given size and overlap. An overlap not smaller
// than size is reduced to size/5.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{ChunkSize: size, ChunkOverlap: overlap, Separators: defaultSeparators}
}

// DefaultSplitter splits into 1000 character chunks with 200 characters of overlap
func DefaultSplitter() *Splitter {
	return NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
}

// Split returns the chunks of text. Blank input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var chunks, small []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if charLen(p) < s.ChunkSize {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, s.merge(small, sep)...)
			small = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, p)
		} else {
			chunks = append(chunks, s.split(p, rest)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, s.merge(small, sep)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most ChunkSize, carrying up to ChunkOverlap
// characters of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	sepLen := charLen(sep)
	var chunks, window []string
	total := 0

	joinedLen := func(n int) int {
		if len(window) > 0 {
			return n + sepLen
		}
		return n
	}

	for _, p := range pieces {
		n := charLen(p)
		if total+joinedLen(n) > s.ChunkSize && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.ChunkOverlap || (total+joinedLen(n) > s.ChunkSize && total > 0) {
				total -= charLen(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		total += joinedLen(n)
		window = append(window, p)
	}
	if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
