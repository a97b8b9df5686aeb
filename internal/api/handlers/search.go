package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corpusworks/corpusd/internal/api"
	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/service"
	"github.com/go-chi/chi/v5"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error)
	SearchVectorOnly(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error)
	SearchKeywordOnly(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error)
}

type FormatService interface {
	FormatResults(ctx context.Context, query string, results []*domain.SearchResult, opts service.FormatOptions) *service.FormatOutput
}

type SearchHandler struct {
	svc    SearchService
	format FormatService

	// defaults applied when the request omits weights
	vectorWeight  float64
	keywordWeight float64
}

func NewSearchHandler(svc SearchService, format FormatService, vectorWeight, keywordWeight float64) *SearchHandler {
	return &SearchHandler{
		svc:           svc,
		format:        format,
		vectorWeight:  vectorWeight,
		keywordWeight: keywordWeight,
	}
}

type SearchRequest struct {
	Query         string   `json:"query"`
	CollectionID  string   `json:"collection_id,omitempty"`
	DocumentID    string   `json:"document_id,omitempty"`
	FileType      string   `json:"file_type,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	VectorWeight  *float64 `json:"vector_weight,omitempty"`
	KeywordWeight *float64 `json:"keyword_weight,omitempty"`
	TextOnly      bool     `json:"text_only,omitempty"`
	LLMFormat     bool     `json:"llm_format,omitempty"`
}

type SearchResponse struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
	*service.FormatOutput
}

func (h *SearchHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*SearchRequest, bool) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return nil, false
	}
	return &req, true
}

func (h *SearchHandler) searchInput(req *SearchRequest) service.SearchInput {
	vectorWeight := h.vectorWeight
	keywordWeight := h.keywordWeight
	if req.VectorWeight != nil {
		vectorWeight = *req.VectorWeight
	}
	if req.KeywordWeight != nil {
		keywordWeight = *req.KeywordWeight
	}
	return service.SearchInput{
		Query: req.Query,
		Filters: domain.SearchFilters{
			CollectionID: req.CollectionID,
			DocumentID:   req.DocumentID,
			FileType:     req.FileType,
		},
		Limit:         req.Limit,
		VectorWeight:  vectorWeight,
		KeywordWeight: keywordWeight,
	}
}

func (h *SearchHandler) respond(w http.ResponseWriter, r *http.Request, req *SearchRequest, searchType domain.SearchType, results []*domain.SearchResult) {
	output := h.format.FormatResults(r.Context(), req.Query, results, service.FormatOptions{
		TextOnly:  req.TextOnly,
		LLMFormat: req.LLMFormat,
	})

	api.Success(w, http.StatusOK, SearchResponse{
		Query:        req.Query,
		SearchType:   string(searchType),
		FormatOutput: output,
	})
}

// Search runs the hybrid vector+keyword search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	results, err := h.svc.Search(r.Context(), h.searchInput(req))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.respond(w, r, req, domain.SearchTypeHybrid, results)
}

// SearchVector runs the vector branch alone.
func (h *SearchHandler) SearchVector(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	results, err := h.svc.SearchVectorOnly(r.Context(), h.searchInput(req))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.respond(w, r, req, domain.SearchTypeVector, results)
}

// SearchKeyword runs the keyword branch alone.
func (h *SearchHandler) SearchKeyword(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	results, err := h.svc.SearchKeywordOnly(r.Context(), h.searchInput(req))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.respond(w, r, req, domain.SearchTypeKeyword, results)
}

// SearchDocument runs the hybrid search scoped to one document.
func (h *SearchHandler) SearchDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	req.DocumentID = id

	results, err := h.svc.Search(r.Context(), h.searchInput(req))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.respond(w, r, req, domain.SearchTypeHybrid, results)
}
