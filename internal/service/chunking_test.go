package service

import (
	"strings"
	"testing"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkConfig
		wantErr bool
	}{
		{"defaults", DefaultChunkConfig(), false},
		{"minimal", ChunkConfig{Size: 1, Overlap: 0}, false},
		{"zero size", ChunkConfig{Size: 0, Overlap: 0}, true},
		{"negative size", ChunkConfig{Size: -10, Overlap: 0}, true},
		{"negative overlap", ChunkConfig{Size: 100, Overlap: -1}, true},
		{"overlap equals size", ChunkConfig{Size: 100, Overlap: 100}, true},
		{"overlap exceeds size", ChunkConfig{Size: 100, Overlap: 150}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkText_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		chunks, err := ChunkText(text, DefaultChunkConfig())
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunkText_InvalidConfig(t *testing.T) {
	chunks, err := ChunkText("some text", ChunkConfig{Size: 100, Overlap: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
	assert.Nil(t, chunks)
}

func TestChunkText_ShorterThanWindow(t *testing.T) {
	chunks, err := ChunkText("a short document", DefaultChunkConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "a short document", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 16, chunks[0].EndChar)
	assert.Equal(t, 1, chunks[0].PageNumber)
}

func TestChunkText_OverlappingWindows(t *testing.T) {
	// 2500 uniform runes leave no boundaries to snap to, so windows advance
	// by exactly size-overlap until the final partial window.
	text := strings.Repeat("a", 2500)
	chunks, err := ChunkText(text, ChunkConfig{Size: 1000, Overlap: 200})
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 1000, chunks[0].EndChar)
	assert.Equal(t, 800, chunks[1].StartChar)
	assert.Equal(t, 1800, chunks[1].EndChar)
	assert.Equal(t, 1600, chunks[2].StartChar)
	assert.Equal(t, 2600-200, chunks[3].StartChar)
	assert.Equal(t, 2500, chunks[3].EndChar)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
	}
}

func TestChunkText_SentenceBoundarySnap(t *testing.T) {
	// A period inside the trailing window pulls the cut back to just after it.
	text := strings.Repeat("x", 450) + ". " + strings.Repeat("y", 600)
	chunks, err := ChunkText(text, ChunkConfig{Size: 500, Overlap: 100})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 451, chunks[0].EndChar)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "."))
	assert.Equal(t, 451-100, chunks[1].StartChar)
}

func TestChunkText_WordBoundarySnap(t *testing.T) {
	// No periods anywhere, so the cut falls back to the last whitespace.
	text := strings.Repeat("word ", 300)
	chunks, err := ChunkText(text, ChunkConfig{Size: 1000, Overlap: 200})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 999, chunks[0].EndChar)
	assert.False(t, strings.HasSuffix(chunks[0].Text, " "))
	assert.True(t, strings.HasSuffix(chunks[0].Text, "word"))
}

func TestChunkText_NoBoundaryInWindow(t *testing.T) {
	// Nothing to snap to forces a mid-word cut at exactly the window size.
	text := strings.Repeat("z", 1500)
	chunks, err := ChunkText(text, ChunkConfig{Size: 1000, Overlap: 200})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1000, chunks[0].EndChar)
}

func TestChunkText_RuneOffsets(t *testing.T) {
	// Offsets count runes, not bytes.
	text := strings.Repeat("é", 1200)
	chunks, err := ChunkText(text, ChunkConfig{Size: 1000, Overlap: 200})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1000, chunks[0].EndChar)
	assert.Equal(t, 800, chunks[1].StartChar)
	assert.Equal(t, 1200, chunks[1].EndChar)
	assert.Equal(t, 400, len([]rune(chunks[1].Text)))
}

func TestChunkText_SkipsWhitespaceOnlyWindows(t *testing.T) {
	text := "abc" + strings.Repeat(" ", 50)
	chunks, err := ChunkText(text, ChunkConfig{Size: 10, Overlap: 2})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "abc", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunkText_Deterministic(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := b.String()

	first, err := ChunkText(text, DefaultChunkConfig())
	require.NoError(t, err)
	second, err := ChunkText(text, DefaultChunkConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkText_Invariants(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("Water boils at one hundred degrees under standard pressure. ")
	}
	text := b.String()
	total := len([]rune(text))
	cfg := ChunkConfig{Size: 800, Overlap: 150}

	chunks, err := ChunkText(text, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	estimatedPages := total / 2000
	if estimatedPages < 1 {
		estimatedPages = 1
	}

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.GreaterOrEqual(t, chunk.StartChar, 0)
		assert.Greater(t, chunk.EndChar, chunk.StartChar)
		assert.LessOrEqual(t, chunk.EndChar, total)
		assert.LessOrEqual(t, chunk.EndChar-chunk.StartChar, cfg.Size)
		assert.NotEmpty(t, chunk.Text)
		assert.GreaterOrEqual(t, chunk.PageNumber, 1)
		assert.LessOrEqual(t, chunk.PageNumber, estimatedPages)

		if i > 0 {
			assert.Greater(t, chunk.StartChar, chunks[i-1].StartChar)
		}
	}

	// Windows cover the document end to end.
	assert.Equal(t, 0, chunks[0].StartChar)
	last := chunks[len(chunks)-1]
	assert.GreaterOrEqual(t, last.EndChar, total-cfg.Size)
}

func TestChunkText_PageEstimation(t *testing.T) {
	// 6000 runes estimate to 3 pages; chunk pages grow with the offset and
	// never pass the estimate.
	text := strings.Repeat("p", 6000)
	chunks, err := ChunkText(text, ChunkConfig{Size: 1000, Overlap: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 6)

	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 3, chunks[5].PageNumber)
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i].PageNumber, chunks[i-1].PageNumber)
		assert.LessOrEqual(t, chunks[i].PageNumber, 3)
	}
}
