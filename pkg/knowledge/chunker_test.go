package knowledge

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
)

func TestNewChunker_InvalidConfiguration(t *testing.T) {
	for _, tc := range []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.size, tc.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestChunker_Empty(t *testing.T) {
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)
	assert.Empty(t, c.Chunk(""))
}

func TestChunker_Windows(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"abcd", "defg", "ghij", "j"}, c.Chunk("abcdefghij"))
	assert.Equal(t, []string{"ab"}, c.Chunk("ab"))
}

func TestChunker_Properties(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 97) + "Ünïcödé ✓ tail"
	length := utf8.RuneCountInString(text)

	for _, tc := range []struct{ size, overlap int }{
		{800, 100}, {50, 0}, {50, 49}, {7, 3}, {length, 10}, {length + 5, 1},
	} {
		c, err := NewChunker(tc.size, tc.overlap)
		require.NoError(t, err)
		chunks := c.Chunk(text)

		step := tc.size - tc.overlap
		assert.Len(t, chunks, (length+step-1)/step, "size=%d overlap=%d", tc.size, tc.overlap)

		var rebuilt strings.Builder
		end := 0
		for i, ch := range chunks {
			runes := []rune(ch)
			assert.LessOrEqual(t, len(runes), tc.size)
			start := i * step
			end = start + len(runes)
			if i == 0 {
				rebuilt.WriteString(ch)
				continue
			}
			rebuilt.WriteString(string(runes[min(tc.overlap, len(runes)):]))
		}
		assert.Equal(t, text, rebuilt.String(), "size=%d overlap=%d", tc.size, tc.overlap)
		assert.Equal(t, length, end)
	}
}

func TestChunker_DoesNotSplitRunes(t *testing.T) {
	c, err := NewChunker(3, 1)
	require.NoError(t, err)
	for _, ch := range c.Chunk("日本語のテキストです") {
		assert.True(t, utf8.ValidString(ch))
	}
}
