package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/corpusworks/corpusd/internal/domain"
)

// backfillBatchSize is how many pending chunks one poll picks up.
const backfillBatchSize = 50

// BackfillChunkRepository defines the chunk persistence the backfill needs.
type BackfillChunkRepository interface {
	// ListMissingEmbeddings returns chunks stored without an embedding,
	// oldest first.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.StoredChunk, error)

	// UpdateEmbedding sets the embedding on a single chunk.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Embedder defines the interface for generating embeddings
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BackfillWorker completes chunks that were ingested while the embedding
// provider was unavailable. A chunk stays pending (embedding NULL) until an
// embed succeeds, so every poll retries whatever is still missing.
type BackfillWorker struct {
	chunks   BackfillChunkRepository
	embedder Embedder
}

// NewBackfillWorker creates a new BackfillWorker instance
func NewBackfillWorker(chunks BackfillChunkRepository, embedder Embedder) *BackfillWorker {
	return &BackfillWorker{
		chunks:   chunks,
		embedder: embedder,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *BackfillWorker) ProcessJobs(ctx context.Context) error {
	pending, err := w.chunks.ListMissingEmbeddings(ctx, backfillBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending chunks: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("Backfilling embeddings for %d pending chunks", len(pending))

	for _, chunk := range pending {
		embedding, err := w.embedder.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			// The provider is most likely down for the whole batch;
			// stop and let the next poll pick these up again.
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		if err := w.chunks.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
			return fmt.Errorf("failed to store embedding for chunk %s: %w", chunk.ID, err)
		}
	}

	log.Printf("Backfilled %d chunk embeddings", len(pending))
	return nil
}
