package domain

import "time"

// SearchType tags which retrieval mode produced a result.
type SearchType string

const (
	SearchTypeVector  SearchType = "vector"
	SearchTypeKeyword SearchType = "keyword"
	SearchTypeHybrid  SearchType = "hybrid"
)

// Citation ties a search result back to its source document. It is derived
// from the stored chunk's metadata at merge time and never re-fetched.
type Citation struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	PageNumber int       `json:"page_number"`
	ChunkIndex int       `json:"chunk_index"`
	StartChar  int       `json:"start_char"`
	EndChar    int       `json:"end_char"`
	FileType   string    `json:"file_type"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SearchResult is one ranked chunk returned to callers. Ephemeral: built per
// query, not persisted. For hybrid results VectorScore and KeywordScore carry
// the raw per-branch scores and Score is their weighted combination; for
// single-branch results Score is the branch's raw score.
type SearchResult struct {
	DocumentID   string     `json:"document_id"`
	ChunkIndex   int        `json:"chunk_index"`
	Text         string     `json:"text"`
	Score        float64    `json:"score"`
	SearchType   SearchType `json:"search_type"`
	VectorScore  float64    `json:"vector_score"`
	KeywordScore float64    `json:"keyword_score"`
	Citation     Citation   `json:"citation"`
}

// SearchFilters narrows a search to a subset of stored chunks.
type SearchFilters struct {
	CollectionID string
	DocumentID   string
	FileType     string
}
