package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corpusworks/corpusd/internal/api/handlers"
	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCollectionStore struct {
	mock.Mock
}

func (m *MockCollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCollectionStore) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Collection), args.Error(1)
}

func (m *MockCollectionStore) Stats(ctx context.Context, name string) (*domain.CollectionStats, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionStats), args.Error(1)
}

func (m *MockCollectionStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockSearchService) SearchVectorOnly(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockSearchService) SearchKeywordOnly(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func newTestRouter(collections handlers.CollectionStore, search handlers.SearchService) http.Handler {
	format := service.NewFormatService(nil)
	return NewRouter(RouterConfig{
		SearchHandler:     handlers.NewSearchHandler(search, format, 0.7, 0.3),
		DocumentHandler:   handlers.NewDocumentHandler(nil, nil, nil, nil),
		CollectionHandler: handlers.NewCollectionHandler(collections),
	})
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(new(MockCollectionStore), new(MockSearchService))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := newTestRouter(new(MockCollectionStore), new(MockSearchService))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_SearchRoute(t *testing.T) {
	mockSearch := new(MockSearchService)
	mockSearch.On("Search", mock.Anything, mock.Anything).Return([]*domain.SearchResult{}, nil)
	router := newTestRouter(new(MockCollectionStore), mockSearch)

	req := httptest.NewRequest(http.MethodPost, "/search", jsonBody(`{"query":"grain"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSearch.AssertExpectations(t)
}

func TestRouter_DocumentScopedSearchRoute(t *testing.T) {
	mockSearch := new(MockSearchService)
	mockSearch.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.Filters.DocumentID == "doc-123"
	})).Return([]*domain.SearchResult{}, nil)
	router := newTestRouter(new(MockCollectionStore), mockSearch)

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-123/search", jsonBody(`{"query":"grain"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSearch.AssertExpectations(t)
}

func TestRouter_CollectionRoutes(t *testing.T) {
	mockStore := new(MockCollectionStore)
	mockStore.On("List", mock.Anything).Return([]*domain.Collection{}, nil)
	mockStore.On("Stats", mock.Anything, "research").Return(&domain.CollectionStats{Name: "research"}, nil)
	router := newTestRouter(mockStore, new(MockSearchService))

	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/collections/research/stats", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	mockStore.AssertExpectations(t)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(new(MockCollectionStore), new(MockSearchService))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
