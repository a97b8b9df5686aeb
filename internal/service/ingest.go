package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/telemetry"
)

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(filename string, data []byte) (text string, fileType string, err error)
}

// DocumentStore persists document records.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
}

// ChunkWriter persists chunk rows.
type ChunkWriter interface {
	InsertChunks(ctx context.Context, chunks []*domain.StoredChunk) error
}

// CollectionStore resolves collection names to records.
type CollectionStore interface {
	GetOrCreate(ctx context.Context, name string) (*domain.Collection, error)
}

// Archiver stores the raw uploaded bytes for later retrieval.
type Archiver interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// IngestInput represents input for ingesting a document.
type IngestInput struct {
	CollectionName string
	Filename       string
	Data           []byte
}

// IngestResult summarizes what an ingest produced.
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	CollectionID  string `json:"collection_id"`
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	ChunkCount    int    `json:"chunk_count"`
	EmbeddedCount int    `json:"embedded_count"`
	Degraded      bool   `json:"degraded"`
}

// IngestService runs the ingest pipeline: extract, chunk, embed, persist.
// The embedder and archiver are optional; without an embedder chunks are
// stored with nil embeddings and picked up later by the backfill worker.
type IngestService struct {
	extractor   TextExtractor
	documents   DocumentStore
	chunks      ChunkWriter
	collections CollectionStore
	embedder    EmbeddingClient
	archive     Archiver
	chunkCfg    ChunkConfig
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	extractor TextExtractor,
	documents DocumentStore,
	chunks ChunkWriter,
	collections CollectionStore,
	embedder EmbeddingClient,
	archive Archiver,
	chunkCfg ChunkConfig,
) *IngestService {
	return &IngestService{
		extractor:   extractor,
		documents:   documents,
		chunks:      chunks,
		collections: collections,
		embedder:    embedder,
		archive:     archive,
		chunkCfg:    chunkCfg,
	}
}

// IngestDocument extracts text from the upload, chunks it, embeds each chunk
// and persists everything under a fresh document ID.
//
// Embedding failures do not fail the ingest: the affected chunks are stored
// without embeddings, the result is marked degraded, and the backfill worker
// completes them once the embedder recovers. Archive failures are logged and
// skipped the same way. Only extraction, chunking and persistence errors fail
// the call.
func (s *IngestService) IngestDocument(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestDocument", telemetry.SpanAttributes{
		Operation: "ingest_document",
	})
	defer span.End()

	if input.Filename == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if len(input.Data) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "file content is empty")
	}

	name := input.CollectionName
	if name == "" {
		name = domain.DefaultCollectionName
	}
	if err := domain.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	collection, err := s.collections.GetOrCreate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %q: %w", name, err)
	}

	text, fileType, err := s.extractor.Extract(input.Filename, input.Data)
	if err != nil {
		return nil, err
	}

	chunks, err := ChunkText(text, s.chunkCfg)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:           uuid.New().String(),
		CollectionID: collection.ID,
		Filename:     input.Filename,
		FileType:     fileType,
		ContentChars: len([]rune(text)),
		ChunkCount:   len(chunks),
	}

	embeddings, embedded, degraded := s.embedChunks(ctx, chunks)

	if s.archive != nil {
		key := fmt.Sprintf("%s/%s/%s", collection.ID, doc.ID, doc.Filename)
		if err := s.archive.Upload(ctx, key, input.Data, contentTypeFor(fileType)); err != nil {
			log.Printf("archive upload failed for document %s: %v", doc.ID, err)
			telemetry.CaptureError(ctx, err)
		} else {
			doc.ArchiveKey = key
		}
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if len(chunks) > 0 {
		stored := make([]*domain.StoredChunk, len(chunks))
		for i, chunk := range chunks {
			stored[i] = &domain.StoredChunk{
				ID:           uuid.New().String(),
				DocumentID:   doc.ID,
				CollectionID: collection.ID,
				ChunkIndex:   chunk.ChunkIndex,
				Text:         chunk.Text,
				StartChar:    chunk.StartChar,
				EndChar:      chunk.EndChar,
				PageNumber:   chunk.PageNumber,
				Filename:     doc.Filename,
				FileType:     doc.FileType,
				Embedding:    embeddings[i],
			}
		}
		if err := s.chunks.InsertChunks(ctx, stored); err != nil {
			return nil, fmt.Errorf("failed to insert chunks: %w", err)
		}
	}

	return &IngestResult{
		DocumentID:    doc.ID,
		CollectionID:  collection.ID,
		Filename:      doc.Filename,
		FileType:      doc.FileType,
		ChunkCount:    len(chunks),
		EmbeddedCount: embedded,
		Degraded:      degraded,
	}, nil
}

// embedChunks generates embeddings chunk by chunk. The first failure stops
// further attempts (an unreachable embedder would fail them all) and leaves
// the remaining entries nil for the backfill worker.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, int, bool) {
	embeddings := make([][]float32, len(chunks))
	if s.embedder == nil {
		return embeddings, 0, len(chunks) > 0
	}

	embedded := 0
	for i, chunk := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			log.Printf("embedding failed at chunk %d, deferring remaining chunks to backfill: %v", chunk.ChunkIndex, err)
			telemetry.CaptureError(ctx, err)
			return embeddings, embedded, true
		}
		embeddings[i] = embedding
		embedded++
	}
	return embeddings, embedded, false
}

// contentTypeFor maps a normalized file type to the MIME type used when
// archiving the original upload.
func contentTypeFor(fileType string) string {
	switch fileType {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		return "text/csv"
	case "md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
