package domain

import (
	"strings"
	"time"
)

// DefaultCollectionName is used when a caller does not name a collection.
const DefaultCollectionName = "documents"

// Collection is a named partition of the document store. Documents belong to
// exactly one collection; search is scoped to a single collection.
type Collection struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// CollectionStats summarizes a collection's contents.
type CollectionStats struct {
	CollectionID  string
	Name          string
	DocumentCount int
	ChunkCount    int
	EmbeddedCount int
}

// ValidateCollectionName rejects empty names and names that would be awkward
// as URL path segments.
func ValidateCollectionName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCollectionName
	}
	if strings.ContainsAny(name, " /\\$") {
		return ErrInvalidCollectionName
	}
	return nil
}
