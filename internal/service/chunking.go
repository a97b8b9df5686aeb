package service

import (
	"strings"
	"unicode"

	"github.com/corpusworks/corpusd/internal/domain"
)

// charsPerPage is the heuristic used to estimate page numbers from character
// offsets. The estimate is approximate and callers must not treat it as an
// exact page boundary.
const charsPerPage = 2000

// boundaryWindow is how far back from a proposed cut the chunker searches for
// a sentence or word boundary.
const boundaryWindow = 100

// ChunkConfig controls text chunking at ingest time.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Validate rejects configurations that would make chunking loop without
// progress.
func (cfg ChunkConfig) Validate() error {
	if cfg.Size <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// ChunkText splits text into overlapping chunks with recorded rune offsets
// and an estimated page number per chunk.
//
// Windows are proposed greedily at cfg.Size runes. A window that does not
// reach the end of the text is cut back to the last sentence terminal ('.')
// within the final boundaryWindow runes, or failing that the last whitespace,
// or failing both exactly at the proposed end. The next window starts
// cfg.Overlap runes before the previous cut. Slices that trim to empty are
// skipped and do not consume a chunk index.
//
// Empty or whitespace-only text yields an empty sequence. Chunking the same
// text with the same config always yields the same sequence.
func ChunkText(text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	total := len(runes)

	estimatedPages := total / charsPerPage
	if estimatedPages < 1 {
		estimatedPages = 1
	}

	chunks := make([]domain.Chunk, 0, total/cfg.Size+1)
	start := 0
	index := 0

	for start < total {
		end := start + cfg.Size

		if end < total {
			end = snapToBoundary(runes, start, end)
		}

		sliceEnd := end
		if sliceEnd > total {
			sliceEnd = total
		}

		if chunk := strings.TrimSpace(string(runes[start:sliceEnd])); chunk != "" {
			chunks = append(chunks, domain.Chunk{
				Text:       chunk,
				ChunkIndex: index,
				StartChar:  start,
				EndChar:    sliceEnd,
				PageNumber: estimatePage(start, total, estimatedPages),
			})
			index++
		}

		next := end - cfg.Overlap
		if next <= start {
			// A boundary snap close to the window start can erase the
			// overlap's progress; skip the overlap rather than loop.
			next = end
		}
		start = next
	}

	return chunks, nil
}

// snapToBoundary moves a proposed cut back to the nearest sentence terminal,
// or whitespace, within the trailing boundaryWindow. Returns the proposed end
// unchanged when no boundary lies beyond start (mid-word cut as last resort).
func snapToBoundary(runes []rune, start, end int) int {
	searchStart := end - boundaryWindow
	if searchStart < start {
		searchStart = start
	}

	for i := end; i > searchStart; i-- {
		if runes[i-1] == '.' {
			if i-1 > start {
				return i
			}
			break
		}
	}

	for i := end; i > searchStart; i-- {
		if unicode.IsSpace(runes[i-1]) {
			if i-1 > start {
				return i - 1
			}
			break
		}
	}

	return end
}

// estimatePage linearly interpolates a chunk's start offset against the
// assumed chars-per-page density.
func estimatePage(start, total, estimatedPages int) int {
	page := int(float64(start)/float64(total)*float64(estimatedPages)) + 1
	if page < 1 {
		page = 1
	}
	if page > estimatedPages {
		page = estimatedPages
	}
	return page
}
