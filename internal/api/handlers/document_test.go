package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/pagination"
	"github.com/corpusworks/corpusd/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) IngestDocument(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) ListByCollection(ctx context.Context, collectionID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, collectionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCollectionResolver struct {
	mock.Mock
}

func (m *MockCollectionResolver) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

type MockDownloadSigner struct {
	mock.Mock
}

func (m *MockDownloadSigner) PresignDownload(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func newTestDocument() *domain.Document {
	return &domain.Document{
		ID:           "doc-123",
		CollectionID: "col-456",
		Filename:     "report.pdf",
		FileType:     "pdf",
		ContentChars: 2500,
		ChunkCount:   4,
		CreatedAt:    time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
}

func multipartUpload(t *testing.T, filename, collection string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	if collection != "" {
		require.NoError(t, mw.WriteField("collection", collection))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func requestWithID(method, url, id string) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestDocumentHandler_Ingest_Success(t *testing.T) {
	mockIngest := new(MockIngestService)
	handler := NewDocumentHandler(mockIngest, nil, nil, nil)

	mockIngest.On("IngestDocument", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.Filename == "report.txt" &&
			input.CollectionName == "research" &&
			string(input.Data) == "grain exports rose sharply"
	})).Return(&service.IngestResult{
		DocumentID:    "doc-123",
		CollectionID:  "col-456",
		Filename:      "report.txt",
		FileType:      "txt",
		ChunkCount:    1,
		EmbeddedCount: 1,
	}, nil)

	req := multipartUpload(t, "report.txt", "research", []byte("grain exports rose sharply"))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "doc-123", data["document_id"])
	assert.Equal(t, float64(1), data["chunk_count"])
	mockIngest.AssertExpectations(t)
}

func TestDocumentHandler_Ingest_MissingFile(t *testing.T) {
	mockIngest := new(MockIngestService)
	handler := NewDocumentHandler(mockIngest, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte("not multipart")))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestDocumentHandler_Ingest_UnsupportedType(t *testing.T) {
	mockIngest := new(MockIngestService)
	handler := NewDocumentHandler(mockIngest, nil, nil, nil)

	mockIngest.On("IngestDocument", mock.Anything, mock.Anything).Return(nil, domain.ErrUnsupportedFileType)

	req := multipartUpload(t, "binary.exe", "", []byte{0x4d, 0x5a})
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported file type")
}

func TestDocumentHandler_Get_Success(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	handler := NewDocumentHandler(nil, mockDocs, nil, nil)

	mockDocs.On("GetByID", mock.Anything, "doc-123").Return(newTestDocument(), nil)

	req := requestWithID(http.MethodGet, "/documents/doc-123", "doc-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "doc-123", data["id"])
	assert.Equal(t, "report.pdf", data["filename"])
	assert.Nil(t, data["download_url"])
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_Get_ArchivedDocumentHasDownloadURL(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	mockSigner := new(MockDownloadSigner)
	handler := NewDocumentHandler(nil, mockDocs, nil, mockSigner)

	doc := newTestDocument()
	doc.ArchiveKey = "col-456/doc-123/report.pdf"
	mockDocs.On("GetByID", mock.Anything, "doc-123").Return(doc, nil)
	mockSigner.On("PresignDownload", mock.Anything, "col-456/doc-123/report.pdf").
		Return("https://archive.example/report.pdf?sig=abc", nil)

	req := requestWithID(http.MethodGet, "/documents/doc-123", "doc-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "https://archive.example/report.pdf?sig=abc", data["download_url"])
	mockDocs.AssertExpectations(t)
	mockSigner.AssertExpectations(t)
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	handler := NewDocumentHandler(nil, mockDocs, nil, nil)

	mockDocs.On("GetByID", mock.Anything, "doc-999").Return(nil, domain.ErrDocumentNotFound)

	req := requestWithID(http.MethodGet, "/documents/doc-999", "doc-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_List_Success(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	mockCols := new(MockCollectionResolver)
	handler := NewDocumentHandler(nil, mockDocs, mockCols, nil)

	mockCols.On("GetByName", mock.Anything, "research").Return(&domain.Collection{ID: "col-456", Name: "research"}, nil)
	mockDocs.On("ListByCollection", mock.Anything, "col-456", "", 5).Return(&pagination.PageResult[*domain.Document]{
		Items:   []*domain.Document{newTestDocument()},
		Cursor:  "next-cursor",
		HasMore: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents?collection=research&limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "next-cursor", data["cursor"])
	assert.Equal(t, true, data["has_more"])
	assert.Len(t, data["items"], 1)
	mockDocs.AssertExpectations(t)
	mockCols.AssertExpectations(t)
}

func TestDocumentHandler_List_DefaultsCollection(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	mockCols := new(MockCollectionResolver)
	handler := NewDocumentHandler(nil, mockDocs, mockCols, nil)

	mockCols.On("GetByName", mock.Anything, domain.DefaultCollectionName).
		Return(&domain.Collection{ID: "col-default", Name: domain.DefaultCollectionName}, nil)
	mockDocs.On("ListByCollection", mock.Anything, "col-default", "", 0).
		Return(&pagination.PageResult[*domain.Document]{Items: []*domain.Document{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockCols.AssertExpectations(t)
}

func TestDocumentHandler_List_UnknownCollection(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	mockCols := new(MockCollectionResolver)
	handler := NewDocumentHandler(nil, mockDocs, mockCols, nil)

	mockCols.On("GetByName", mock.Anything, "missing").Return(nil, domain.ErrCollectionNotFound)

	req := httptest.NewRequest(http.MethodGet, "/documents?collection=missing", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockDocs.AssertNotCalled(t, "ListByCollection", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	handler := NewDocumentHandler(nil, mockDocs, nil, nil)

	mockDocs.On("Delete", mock.Anything, "doc-123").Return(nil)

	req := requestWithID(http.MethodDelete, "/documents/doc-123", "doc-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["deleted"])
	mockDocs.AssertExpectations(t)
}

func TestDocumentHandler_Delete_NotFound(t *testing.T) {
	mockDocs := new(MockDocumentStore)
	handler := NewDocumentHandler(nil, mockDocs, nil, nil)

	mockDocs.On("Delete", mock.Anything, "doc-999").Return(domain.ErrDocumentNotFound)

	req := requestWithID(http.MethodDelete, "/documents/doc-999", "doc-999")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockDocs.AssertExpectations(t)
}
