//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corpusworks/corpusd/internal/api/handlers"
	"github.com/corpusworks/corpusd/internal/extract"
	"github.com/corpusworks/corpusd/internal/repository"
	"github.com/corpusworks/corpusd/internal/server"
	"github.com/corpusworks/corpusd/internal/service"
	"github.com/corpusworks/corpusd/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// stubEmbedder produces deterministic embeddings so vector search works
// without a real provider. All vectors point the same way; ranking in these
// tests comes from the keyword branch.
type stubEmbedder struct{}

func (stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 1536)
	v[0] = 1
	return v, nil
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	HTTPClient *http.Client
}

// SetupE2EEnv starts a database container and an in-process API server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	collectionRepo := repository.NewCollectionRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	embedder := stubEmbedder{}
	ingestSvc := service.NewIngestService(
		extract.NewExtractor(),
		documentRepo,
		chunkRepo,
		collectionRepo,
		embedder,
		nil,
		service.ChunkConfig{Size: 200, Overlap: 40},
	)
	searchSvc := service.NewSearchService(chunkRepo, embedder)
	formatSvc := service.NewFormatService(nil)

	router := server.NewRouter(server.RouterConfig{
		SearchHandler:     handlers.NewSearchHandler(searchSvc, formatSvc, 0.7, 0.3),
		DocumentHandler:   handlers.NewDocumentHandler(ingestSvc, documentRepo, collectionRepo, nil),
		CollectionHandler: handlers.NewCollectionHandler(collectionRepo),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     srv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse mirrors the server's JSON envelope
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request against the test server
func (e *E2ETestEnv) Get(path string) (*APIResponse, int) {
	resp, err := e.HTTPClient.Get(e.Server.URL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	return e.parse(resp)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, int) {
	data, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := e.HTTPClient.Post(e.Server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	return e.parse(resp)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, int) {
	req, err := http.NewRequest(http.MethodDelete, e.Server.URL+path, nil)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("DELETE %s failed: %v", path, err)
	}
	return e.parse(resp)
}

// Upload posts a file to /ingest as multipart form data
func (e *E2ETestEnv) Upload(filename, collection string, content []byte) (*APIResponse, int) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		e.T.Fatalf("failed to write form file: %v", err)
	}
	if collection != "" {
		if err := mw.WriteField("collection", collection); err != nil {
			e.T.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		e.T.Fatalf("failed to finalize form: %v", err)
	}

	resp, err := e.HTTPClient.Post(e.Server.URL+"/ingest", mw.FormDataContentType(), &buf)
	if err != nil {
		e.T.Fatalf("POST /ingest failed: %v", err)
	}
	return e.parse(resp)
}

func (e *E2ETestEnv) parse(resp *http.Response) (*APIResponse, int) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response body: %v", err)
	}
	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		e.T.Fatalf("failed to parse response %q: %v", string(body), err)
	}
	return &apiResp, resp.StatusCode
}

// MustUnmarshal decodes data into out or fails the test
func (e *E2ETestEnv) MustUnmarshal(data json.RawMessage, out interface{}) {
	if err := json.Unmarshal(data, out); err != nil {
		e.T.Fatalf("failed to unmarshal %q: %v", string(data), err)
	}
}

// ChunkRows returns how many chunk rows exist for a document
func (e *E2ETestEnv) ChunkRows(documentID string) int {
	var count int
	err := e.Pool.QueryRow(e.Ctx,
		"SELECT COUNT(*) FROM document_chunks WHERE document_id = $1", documentID).Scan(&count)
	if err != nil {
		e.T.Fatalf("failed to count chunks: %v", err)
	}
	return count
}
