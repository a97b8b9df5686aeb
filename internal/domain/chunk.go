package domain

import "time"

// Chunk is a bounded slice of a document's text, the unit of embedding and
// retrieval. Offsets are rune positions into the source text; overlap between
// consecutive chunks is permitted, but StartChar is strictly increasing.
type Chunk struct {
	Text       string
	ChunkIndex int
	StartChar  int
	EndChar    int
	PageNumber int
}

// StoredChunk is a chunk as persisted by the store: the chunk plus its owning
// document's identity and ingest metadata. Immutable after ingest; rows
// sharing a DocumentID form the document's persisted representation.
type StoredChunk struct {
	ID           string
	DocumentID   string
	CollectionID string
	ChunkIndex   int
	Text         string
	StartChar    int
	EndChar      int
	PageNumber   int
	Filename     string
	FileType     string
	Embedding    []float32
	CreatedAt    time.Time
}
