package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/telemetry"
)

const (
	defaultSearchLimit = 10
	// Each branch over-fetches to improve coverage after the merge.
	candidateMultiplier = 2
)

// ChunkHit is a raw store hit from either search branch. Scores from the two
// branches are not on the same scale (cosine-derived similarity vs text
// ranking); the weighted merge combines them anyway, which is a known
// limitation of the blend rather than something to normalize away here.
type ChunkHit struct {
	DocumentID string
	ChunkIndex int
	Text       string
	Score      float64
	Filename   string
	FileType   string
	PageNumber int
	StartChar  int
	EndChar    int
	CreatedAt  time.Time
}

// SearchStore answers the two retrieval query types.
type SearchStore interface {
	SearchVector(ctx context.Context, embedding []float32, filters domain.SearchFilters, limit int) ([]*ChunkHit, error)
	SearchKeyword(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]*ChunkHit, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchInput represents input for a search operation.
type SearchInput struct {
	Query         string
	Filters       domain.SearchFilters
	Limit         int
	VectorWeight  float64
	KeywordWeight float64
}

// SearchService ranks stored chunks against a query by blending vector
// similarity and keyword relevance.
type SearchService struct {
	store    SearchStore
	embedder EmbeddingClient
}

// NewSearchService creates a new SearchService instance
func NewSearchService(store SearchStore, embedder EmbeddingClient) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
	}
}

// branchOutcome carries one branch's hits or its failure; degradation is
// decided from these explicitly rather than by intercepting panics or
// swallowing errors inline.
type branchOutcome struct {
	hits []*ChunkHit
	err  error
}

// Search runs both retrieval branches concurrently and merges them into one
// ranked list of at most input.Limit results.
//
// Weights are normalized to sum to 1; if both are zero every combined score
// collapses to 0 and results keep retrieval order. A single failed branch
// degrades to single-mode ranking; only both branches failing is an error.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]*domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		CollectionID: input.Filters.CollectionID,
		Operation:    "search_hybrid",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	vectorWeight, keywordWeight, err := normalizeWeights(input.VectorWeight, input.KeywordWeight)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	candidateLimit := limit * candidateMultiplier

	var wg sync.WaitGroup
	var vector, keyword branchOutcome

	wg.Add(2)
	go func() {
		defer wg.Done()
		if s.embedder == nil {
			vector.err = domain.ErrEmbedderUnavailable
			return
		}
		embedding, err := s.embedder.GenerateEmbedding(ctx, query)
		if err != nil {
			vector.err = err
			return
		}
		vector.hits, vector.err = s.store.SearchVector(ctx, embedding, input.Filters, candidateLimit)
	}()
	go func() {
		defer wg.Done()
		keyword.hits, keyword.err = s.store.SearchKeyword(ctx, query, input.Filters, candidateLimit)
	}()
	wg.Wait()

	if vector.err != nil && keyword.err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable,
			errors.Join(vector.err, keyword.err))
	}
	if vector.err != nil {
		log.Printf("vector search branch failed, degrading to keyword ranking: %v", vector.err)
	}
	if keyword.err != nil {
		log.Printf("keyword search branch failed, degrading to vector ranking: %v", keyword.err)
	}

	merged := mergeBranches(vector.hits, keyword.hits, vectorWeight, keywordWeight)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// SearchVectorOnly ranks purely by embedding similarity.
func (s *SearchService) SearchVectorOnly(ctx context.Context, input SearchInput) ([]*domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.SearchVectorOnly", telemetry.SpanAttributes{
		CollectionID: input.Filters.CollectionID,
		Operation:    "search_vector",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.embedder == nil {
		return nil, domain.ErrEmbedderUnavailable
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.SearchVector(ctx, embedding, input.Filters, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		r := resultFromHit(hit, domain.SearchTypeVector)
		r.VectorScore = hit.Score
		results = append(results, r)
	}
	return results, nil
}

// SearchKeywordOnly ranks purely by full-text relevance.
func (s *SearchService) SearchKeywordOnly(ctx context.Context, input SearchInput) ([]*domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.SearchKeywordOnly", telemetry.SpanAttributes{
		CollectionID: input.Filters.CollectionID,
		Operation:    "search_keyword",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.store.SearchKeyword(ctx, query, input.Filters, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		r := resultFromHit(hit, domain.SearchTypeKeyword)
		r.KeywordScore = hit.Score
		results = append(results, r)
	}
	return results, nil
}

// normalizeWeights scales the pair to sum to 1.0. A zero sum is preserved as
// (0, 0): every combined score is then 0 and ordering falls back to
// retrieval order.
func normalizeWeights(vector, keyword float64) (float64, float64, error) {
	if vector < 0 || keyword < 0 {
		return 0, 0, domain.ErrInvalidSearchWeights
	}
	total := vector + keyword
	if total == 0 {
		return 0, 0, nil
	}
	return vector / total, keyword / total, nil
}

type mergeKey struct {
	documentID string
	chunkIndex int
}

// mergeBranches combines the two candidate lists keyed by (document, chunk).
// A key missing from one branch contributes 0 for that branch. The sort is
// stable: ties keep retrieval order, vector candidates first.
func mergeBranches(vectorHits, keywordHits []*ChunkHit, vectorWeight, keywordWeight float64) []*domain.SearchResult {
	combined := make(map[mergeKey]*domain.SearchResult, len(vectorHits)+len(keywordHits))
	order := make([]mergeKey, 0, len(vectorHits)+len(keywordHits))

	for _, hit := range vectorHits {
		key := mergeKey{hit.DocumentID, hit.ChunkIndex}
		r := resultFromHit(hit, domain.SearchTypeHybrid)
		r.VectorScore = hit.Score
		r.Score = hit.Score * vectorWeight
		combined[key] = r
		order = append(order, key)
	}

	for _, hit := range keywordHits {
		key := mergeKey{hit.DocumentID, hit.ChunkIndex}
		if existing, ok := combined[key]; ok {
			existing.KeywordScore = hit.Score
			existing.Score += hit.Score * keywordWeight
			continue
		}
		r := resultFromHit(hit, domain.SearchTypeHybrid)
		r.KeywordScore = hit.Score
		r.Score = hit.Score * keywordWeight
		combined[key] = r
		order = append(order, key)
	}

	results := make([]*domain.SearchResult, 0, len(order))
	for _, key := range order {
		results = append(results, combined[key])
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// resultFromHit builds a result with its citation synthesized from the hit's
// metadata; citations are never re-fetched from the store.
func resultFromHit(hit *ChunkHit, searchType domain.SearchType) *domain.SearchResult {
	return &domain.SearchResult{
		DocumentID: hit.DocumentID,
		ChunkIndex: hit.ChunkIndex,
		Text:       hit.Text,
		Score:      hit.Score,
		SearchType: searchType,
		Citation: domain.Citation{
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			PageNumber: hit.PageNumber,
			ChunkIndex: hit.ChunkIndex,
			StartChar:  hit.StartChar,
			EndChar:    hit.EndChar,
			FileType:   hit.FileType,
			IngestedAt: hit.CreatedAt,
		},
	}
}
