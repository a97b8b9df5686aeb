package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockSearchStore mocks the chunk store's retrieval queries
type MockSearchStore struct {
	mock.Mock
}

func (m *MockSearchStore) SearchVector(ctx context.Context, embedding []float32, filters domain.SearchFilters, limit int) ([]*ChunkHit, error) {
	args := m.Called(ctx, embedding, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ChunkHit), args.Error(1)
}

func (m *MockSearchStore) SearchKeyword(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]*ChunkHit, error) {
	args := m.Called(ctx, query, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ChunkHit), args.Error(1)
}

func testEmbedding() []float32 {
	embedding := make([]float32, 1536)
	for i := range embedding {
		embedding[i] = float32(i) * 0.001
	}
	return embedding
}

func hit(docID string, chunkIndex int, score float64) *ChunkHit {
	return &ChunkHit{
		DocumentID: docID,
		ChunkIndex: chunkIndex,
		Text:       "chunk text",
		Score:      score,
		Filename:   "report.pdf",
		FileType:   "pdf",
		PageNumber: 1,
	}
}

func TestSearchService_Search_WeightedMerge(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	ctx := context.Background()
	embedding := testEmbedding()

	vectorHits := []*ChunkHit{hit("doc-1", 0, 0.9), hit("doc-2", 1, 0.3)}
	keywordHits := []*ChunkHit{hit("doc-1", 0, 0.4), hit("doc-2", 1, 0.1)}

	mockClient.On("GenerateEmbedding", mock.Anything, "pressure valve").Return(embedding, nil)
	mockStore.On("SearchVector", mock.Anything, embedding, mock.Anything, 20).Return(vectorHits, nil)
	mockStore.On("SearchKeyword", mock.Anything, "pressure valve", mock.Anything, 20).Return(keywordHits, nil)

	results, err := svc.Search(ctx, SearchInput{
		Query:         "pressure valve",
		Limit:         10,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)

	// 0.9*0.7 + 0.4*0.3 then 0.3*0.7 + 0.1*0.3
	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.InDelta(t, 0.75, results[0].Score, 1e-9)
	assert.InDelta(t, 0.9, results[0].VectorScore, 1e-9)
	assert.InDelta(t, 0.4, results[0].KeywordScore, 1e-9)
	assert.Equal(t, domain.SearchTypeHybrid, results[0].SearchType)

	assert.Equal(t, "doc-2", results[1].DocumentID)
	assert.InDelta(t, 0.24, results[1].Score, 1e-9)

	mockStore.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestSearchService_Search_WeightNormalization(t *testing.T) {
	run := func(vectorWeight, keywordWeight float64) []*domain.SearchResult {
		mockStore := new(MockSearchStore)
		mockClient := new(MockEmbeddingClient)
		svc := NewSearchService(mockStore, mockClient)

		mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(testEmbedding(), nil)
		mockStore.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]*ChunkHit{hit("doc-1", 0, 0.8)}, nil)
		mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
			Return([]*ChunkHit{hit("doc-1", 0, 0.2)}, nil)

		results, err := svc.Search(context.Background(), SearchInput{
			Query:         "query",
			VectorWeight:  vectorWeight,
			KeywordWeight: keywordWeight,
		})
		require.NoError(t, err)
		return results
	}

	scaled := run(2, 2)
	unit := run(1, 1)

	require.Len(t, scaled, 1)
	require.Len(t, unit, 1)
	assert.Equal(t, unit[0].Score, scaled[0].Score)
	assert.InDelta(t, 0.5, scaled[0].Score, 1e-9)
}

func TestSearchService_Search_ZeroWeights(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(testEmbedding(), nil)
	mockStore.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkHit{hit("doc-1", 0, 0.9)}, nil)
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
		Return([]*ChunkHit{hit("doc-2", 0, 0.5)}, nil)

	results, err := svc.Search(context.Background(), SearchInput{Query: "query"})

	require.NoError(t, err)
	require.Len(t, results, 2)
	// All combined scores collapse to zero and retrieval order is kept,
	// vector candidates first.
	assert.Equal(t, 0.0, results[0].Score)
	assert.Equal(t, 0.0, results[1].Score)
	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.Equal(t, "doc-2", results[1].DocumentID)
}

func TestSearchService_Search_NegativeWeight(t *testing.T) {
	svc := NewSearchService(new(MockSearchStore), new(MockEmbeddingClient))

	results, err := svc.Search(context.Background(), SearchInput{
		Query:        "query",
		VectorWeight: -0.5,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidSearchWeights)
	assert.Nil(t, results)
}

func TestSearchService_Search_EmptyQuery(t *testing.T) {
	svc := NewSearchService(new(MockSearchStore), new(MockEmbeddingClient))

	results, err := svc.Search(context.Background(), SearchInput{Query: "   "})

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Nil(t, results)
}

func TestSearchService_Search_VectorBranchFails(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockClient.On("GenerateEmbedding", mock.Anything, "query").
		Return(nil, errors.New("OpenAI API rate limit exceeded"))
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
		Return([]*ChunkHit{hit("doc-1", 0, 0.6)}, nil)

	results, err := svc.Search(context.Background(), SearchInput{
		Query:         "query",
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.6*0.3, results[0].Score, 1e-9)
	assert.Equal(t, 0.0, results[0].VectorScore)
	mockStore.AssertNotCalled(t, "SearchVector")
}

func TestSearchService_Search_KeywordBranchFails(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(testEmbedding(), nil)
	mockStore.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkHit{hit("doc-1", 0, 0.8)}, nil)
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
		Return(nil, errors.New("tsquery syntax error"))

	results, err := svc.Search(context.Background(), SearchInput{
		Query:         "query",
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.8*0.7, results[0].Score, 1e-9)
	assert.Equal(t, 0.0, results[0].KeywordScore)
}

func TestSearchService_Search_BothBranchesFail(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockClient.On("GenerateEmbedding", mock.Anything, "query").
		Return(nil, errors.New("embedding unavailable"))
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	results, err := svc.Search(context.Background(), SearchInput{Query: "query"})

	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	// Branch causes stay visible through the sentinel.
	assert.ErrorContains(t, err, "connection refused")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}

func TestSearchService_Search_LimitAndOverFetch(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	vectorHits := make([]*ChunkHit, 6)
	for i := range vectorHits {
		vectorHits[i] = hit("doc-1", i, 1.0-float64(i)*0.1)
	}

	mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(testEmbedding(), nil)
	// Each branch is asked for twice the requested limit.
	mockStore.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, 6).Return(vectorHits, nil)
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, 6).Return([]*ChunkHit{}, nil)

	results, err := svc.Search(context.Background(), SearchInput{
		Query:         "query",
		Limit:         3,
		VectorWeight:  1,
		KeywordWeight: 0,
	})

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 0, results[0].ChunkIndex)
	mockStore.AssertExpectations(t)
}

func TestSearchService_Search_KeywordOnlyCandidate(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(testEmbedding(), nil)
	mockStore.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkHit{hit("doc-1", 0, 0.2)}, nil)
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
		Return([]*ChunkHit{hit("doc-9", 4, 0.9)}, nil)

	results, err := svc.Search(context.Background(), SearchInput{
		Query:         "query",
		VectorWeight:  0.5,
		KeywordWeight: 0.5,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)

	// The keyword-only candidate wins: 0.9*0.5 beats 0.2*0.5.
	assert.Equal(t, "doc-9", results[0].DocumentID)
	assert.Equal(t, 4, results[0].ChunkIndex)
	assert.Equal(t, 0.0, results[0].VectorScore)
	assert.InDelta(t, 0.45, results[0].Score, 1e-9)
}

func TestSearchService_Search_CitationMetadata(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	ingestedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	chunkHit := &ChunkHit{
		DocumentID: "doc-1",
		ChunkIndex: 2,
		Text:       "relevant passage",
		Score:      0.8,
		Filename:   "manual.pdf",
		FileType:   "pdf",
		PageNumber: 7,
		StartChar:  1600,
		EndChar:    2400,
		CreatedAt:  ingestedAt,
	}

	mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(testEmbedding(), nil)
	mockStore.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkHit{chunkHit}, nil)
	mockStore.On("SearchKeyword", mock.Anything, "query", mock.Anything, mock.Anything).
		Return([]*ChunkHit{}, nil)

	results, err := svc.Search(context.Background(), SearchInput{
		Query:         "query",
		VectorWeight:  1,
		KeywordWeight: 0,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)

	citation := results[0].Citation
	assert.Equal(t, "doc-1", citation.DocumentID)
	assert.Equal(t, "manual.pdf", citation.Filename)
	assert.Equal(t, 7, citation.PageNumber)
	assert.Equal(t, 2, citation.ChunkIndex)
	assert.Equal(t, 1600, citation.StartChar)
	assert.Equal(t, 2400, citation.EndChar)
	assert.Equal(t, "pdf", citation.FileType)
	assert.Equal(t, ingestedAt, citation.IngestedAt)
}

func TestSearchService_SearchVectorOnly(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	embedding := testEmbedding()
	mockClient.On("GenerateEmbedding", mock.Anything, "query").Return(embedding, nil)
	mockStore.On("SearchVector", mock.Anything, embedding, mock.Anything, 10).
		Return([]*ChunkHit{hit("doc-1", 0, 0.85)}, nil)

	results, err := svc.SearchVectorOnly(context.Background(), SearchInput{Query: "query"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SearchTypeVector, results[0].SearchType)
	assert.InDelta(t, 0.85, results[0].Score, 1e-9)
	assert.InDelta(t, 0.85, results[0].VectorScore, 1e-9)
	mockStore.AssertNotCalled(t, "SearchKeyword")
}

func TestSearchService_SearchVectorOnly_EmbeddingError(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockClient.On("GenerateEmbedding", mock.Anything, "query").
		Return(nil, errors.New("OpenAI API unavailable"))

	results, err := svc.SearchVectorOnly(context.Background(), SearchInput{Query: "query"})

	assert.Error(t, err)
	assert.Nil(t, results)
	mockStore.AssertNotCalled(t, "SearchVector")
}

func TestSearchService_SearchKeywordOnly(t *testing.T) {
	mockStore := new(MockSearchStore)
	mockClient := new(MockEmbeddingClient)
	svc := NewSearchService(mockStore, mockClient)

	mockStore.On("SearchKeyword", mock.Anything, "turbine maintenance", mock.Anything, 10).
		Return([]*ChunkHit{hit("doc-3", 1, 0.42)}, nil)

	results, err := svc.SearchKeywordOnly(context.Background(), SearchInput{Query: "turbine maintenance"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SearchTypeKeyword, results[0].SearchType)
	assert.InDelta(t, 0.42, results[0].KeywordScore, 1e-9)
	mockClient.AssertNotCalled(t, "GenerateEmbedding")
}
