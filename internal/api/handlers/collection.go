package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corpusworks/corpusd/internal/api"
	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CollectionStore interface {
	Create(ctx context.Context, c *domain.Collection) error
	GetByName(ctx context.Context, name string) (*domain.Collection, error)
	List(ctx context.Context) ([]*domain.Collection, error)
	Stats(ctx context.Context, name string) (*domain.CollectionStats, error)
	Delete(ctx context.Context, name string) error
}

type CollectionHandler struct {
	store CollectionStore
}

func NewCollectionHandler(store CollectionStore) *CollectionHandler {
	return &CollectionHandler{store: store}
}

type CreateCollectionRequest struct {
	Name string `json:"name"`
}

type CollectionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CollectionListResponse struct {
	Items []*CollectionResponse `json:"items"`
}

type CollectionStatsResponse struct {
	CollectionID  string `json:"collection_id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
	EmbeddedCount int    `json:"embedded_count"`
}

type DeleteCollectionResponse struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

func collectionToResponse(c *domain.Collection) *CollectionResponse {
	return &CollectionResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := domain.ValidateCollectionName(req.Name); err != nil {
		api.HandleError(w, err)
		return
	}

	collection := &domain.Collection{
		ID:   uuid.New().String(),
		Name: req.Name,
	}
	if err := h.store.Create(r.Context(), collection); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, collectionToResponse(collection))
}

func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	collection, err := h.store.GetByName(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, collectionToResponse(collection))
}

func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	collections, err := h.store.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*CollectionResponse, len(collections))
	for i, c := range collections {
		items[i] = collectionToResponse(c)
	}

	api.Success(w, http.StatusOK, CollectionListResponse{Items: items})
}

func (h *CollectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	stats, err := h.store.Stats(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, CollectionStatsResponse{
		CollectionID:  stats.CollectionID,
		Name:          stats.Name,
		DocumentCount: stats.DocumentCount,
		ChunkCount:    stats.ChunkCount,
		EmbeddedCount: stats.EmbeddedCount,
	})
}

// Delete removes a collection and everything in it.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.store.Delete(r.Context(), name); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteCollectionResponse{Name: name, Deleted: true})
}
