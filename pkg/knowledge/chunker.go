package knowledge

import (
	"fmt"

	"github.com/barekit/docqa/pkg/domain"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Chunker splits text into overlapping fixed-size windows. Sizes are counted
// in runes so a window never cuts a UTF-8 sequence in half.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a Chunker, or domain.ErrInvalidConfiguration when the
// window would not advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidConfiguration, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk emits text[start:start+size] for start = 0, size-overlap, ... while
// start is inside the text. Empty text yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
