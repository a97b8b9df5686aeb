package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/corpusworks/corpusd/internal/api"
	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/pagination"
	"github.com/corpusworks/corpusd/internal/service"
	"github.com/go-chi/chi/v5"
)

type IngestService interface {
	IngestDocument(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCollection(ctx context.Context, collectionID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error)
	Delete(ctx context.Context, id string) error
}

type CollectionResolver interface {
	GetByName(ctx context.Context, name string) (*domain.Collection, error)
}

// DownloadSigner mints download URLs for archived source files.
type DownloadSigner interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

type DocumentHandler struct {
	ingest      IngestService
	documents   DocumentStore
	collections CollectionResolver
	signer      DownloadSigner // nil when no archive is configured
}

func NewDocumentHandler(ingest IngestService, documents DocumentStore, collections CollectionResolver, signer DownloadSigner) *DocumentHandler {
	return &DocumentHandler{
		ingest:      ingest,
		documents:   documents,
		collections: collections,
		signer:      signer,
	}
}

type DocumentResponse struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	Filename     string `json:"filename"`
	FileType     string `json:"file_type"`
	ContentChars int    `json:"content_chars"`
	ChunkCount   int    `json:"chunk_count"`
	CreatedAt    string `json:"created_at"`
	DownloadURL  string `json:"download_url,omitempty"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type DeleteDocumentResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           d.ID,
		CollectionID: d.CollectionID,
		Filename:     d.Filename,
		FileType:     d.FileType,
		ContentChars: d.ContentChars,
		ChunkCount:   d.ChunkCount,
		CreatedAt:    d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Ingest accepts a multipart upload and runs it through the ingest pipeline.
// The file goes in the "file" part; an optional "collection" value names the
// target collection.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.ingest.IngestDocument(r.Context(), service.IngestInput{
		CollectionName: r.FormValue("collection"),
		Filename:       header.Filename,
		Data:           data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := documentToResponse(doc)
	if doc.ArchiveKey != "" && h.signer != nil {
		url, err := h.signer.PresignDownload(r.Context(), doc.ArchiveKey)
		if err == nil {
			resp.DownloadURL = url
		}
	}

	api.Success(w, http.StatusOK, resp)
}

// List returns documents in a collection, newest first, cursor-paginated.
// The collection is named by the "collection" query parameter and defaults
// to the default collection.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("collection")
	if name == "" {
		name = domain.DefaultCollectionName
	}
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	collection, err := h.collections.GetByName(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	page, err := h.documents.ListByCollection(r.Context(), collection.ID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

// Delete removes a document; its chunks cascade in the store.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteDocumentResponse{ID: id, Deleted: true})
}
