package domain

import "time"

// Document represents an ingested source document. The text itself lives in
// the chunk rows; this record carries document-level metadata.
type Document struct {
	ID           string
	CollectionID string
	Filename     string
	FileType     string
	ContentChars int
	ChunkCount   int
	ArchiveKey   string
	CreatedAt    time.Time
}

// Validate checks required document fields.
func (d *Document) Validate() error {
	if d.ID == "" || d.CollectionID == "" || d.Filename == "" {
		return ErrMissingRequiredField
	}
	return nil
}
