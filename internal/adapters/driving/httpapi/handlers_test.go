package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// stubIngestion scripts the ingestion service.
type stubIngestion struct {
	submitDoc  *domain.Document
	submitErr  error
	statusDoc  *domain.Document
	statusErr  error
	listDocs   []domain.Document
	deleteErr  error
	lastSubmit struct {
		content  []byte
		filename string
	}
}

func (s *stubIngestion) Submit(_ context.Context, content []byte, filename string) (*domain.Document, error) {
	s.lastSubmit.content = content
	s.lastSubmit.filename = filename
	return s.submitDoc, s.submitErr
}

func (s *stubIngestion) Status(_ context.Context, _ string) (*domain.Document, error) {
	return s.statusDoc, s.statusErr
}

func (s *stubIngestion) List(_ context.Context) ([]domain.Document, error) {
	return s.listDocs, nil
}

func (s *stubIngestion) Delete(_ context.Context, _ string) error {
	return s.deleteErr
}

// stubChat scripts the chat service.
type stubChat struct {
	answer        *domain.Answer
	err           error
	searchResults []domain.ScoredEntry
	searchErr     error
	lastQuery     string
	lastDocID     string
	lastHistory   []domain.Turn
	lastLimit     int
	hadDeadline   bool
}

func (s *stubChat) Answer(ctx context.Context, query, documentID string, history []domain.Turn) (*domain.Answer, error) {
	s.lastQuery = query
	s.lastDocID = documentID
	s.lastHistory = history
	_, s.hadDeadline = ctx.Deadline()
	return s.answer, s.err
}

func (s *stubChat) Search(_ context.Context, query, documentID string, limit int) ([]domain.ScoredEntry, error) {
	s.lastQuery = query
	s.lastDocID = documentID
	s.lastLimit = limit
	return s.searchResults, s.searchErr
}

// stubBlobs serves a fixed blob.
type stubBlobs struct {
	content []byte
	openErr error
}

func (s *stubBlobs) Save(_ context.Context, _ string, _ io.Reader) error { return nil }

func (s *stubBlobs) Open(_ context.Context, _ string) (io.ReadSeekCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return blobReader{bytes.NewReader(s.content)}, nil
}

func (s *stubBlobs) Delete(_ context.Context, _ string) error { return nil }

type blobReader struct{ *bytes.Reader }

func (blobReader) Close() error { return nil }

func testDoc() *domain.Document {
	return &domain.Document{
		ID:         "doc-1",
		Filename:   "report.pdf",
		Size:       1024,
		Pages:      3,
		Status:     domain.StatusCompleted,
		UploadedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestServer(ingestion *stubIngestion, chat *stubChat, blobs *stubBlobs) *Server {
	if ingestion == nil {
		ingestion = &stubIngestion{}
	}
	if chat == nil {
		chat = &stubChat{}
	}
	if blobs == nil {
		blobs = &stubBlobs{}
	}
	return New(ingestion, chat, blobs)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadAccepted(t *testing.T) {
	doc := testDoc()
	doc.Status = domain.StatusProcessing
	ingestion := &stubIngestion{submitDoc: doc}
	server := newTestServer(ingestion, nil, nil)

	body, contentType := multipartUpload(t, "file", "report.pdf", []byte("%PDF-1.4 data"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "report.pdf", ingestion.lastSubmit.filename)
	assert.Equal(t, []byte("%PDF-1.4 data"), ingestion.lastSubmit.content)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp["id"])
	assert.Equal(t, "processing", resp["status"])
}

func TestUploadMissingFile(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectedByService(t *testing.T) {
	ingestion := &stubIngestion{submitErr: fmt.Errorf("%w: not a pdf", domain.ErrInvalidInput)}
	server := newTestServer(ingestion, nil, nil)

	body, contentType := multipartUpload(t, "file", "a.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a pdf")
}

func TestStatusEndpoint(t *testing.T) {
	ingestion := &stubIngestion{statusDoc: testDoc()}
	server := newTestServer(ingestion, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/status", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 3, resp.Pages)
	assert.Equal(t, "2025-06-01T12:00:00Z", resp.UploadedAt)
}

func TestStatusNotFound(t *testing.T) {
	ingestion := &stubIngestion{statusErr: domain.ErrNotFound}
	server := newTestServer(ingestion, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/missing/status", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocuments(t *testing.T) {
	ingestion := &stubIngestion{listDocs: []domain.Document{*testDoc()}}
	server := newTestServer(ingestion, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Documents []documentResponse `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "doc-1", resp.Documents[0].ID)
}

func TestDeleteDocument(t *testing.T) {
	server := newTestServer(&stubIngestion{}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/doc-1", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "doc-1")
}

func TestDeleteMissingDocument(t *testing.T) {
	server := newTestServer(&stubIngestion{deleteErr: domain.ErrNotFound}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/missing", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileEndpoint(t *testing.T) {
	blobs := &stubBlobs{content: []byte("%PDF-1.4 body")}
	server := newTestServer(nil, nil, blobs)

	req := httptest.NewRequest(http.MethodGet, "/api/files/doc-1", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 body", rec.Body.String())
}

func TestFileNotFound(t *testing.T) {
	blobs := &stubBlobs{openErr: domain.ErrNotFound}
	server := newTestServer(nil, nil, blobs)

	req := httptest.NewRequest(http.MethodGet, "/api/files/missing", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatEndpoint(t *testing.T) {
	chat := &stubChat{answer: &domain.Answer{Text: "Revenue grew 20%.", Sources: []int{1, 3}}}
	server := newTestServer(nil, chat, nil)

	payload := `{
		"message": "How did revenue do?",
		"document_id": "doc-1",
		"conversation_history": [
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Revenue grew 20%.", resp["response"])
	assert.Equal(t, []any{float64(1), float64(3)}, resp["sources"])

	assert.Equal(t, "How did revenue do?", chat.lastQuery)
	assert.Equal(t, "doc-1", chat.lastDocID)
	require.Len(t, chat.lastHistory, 2, "conversation_history reaches the engine")
	assert.Equal(t, domain.RoleAssistant, chat.lastHistory[1].Role)
	assert.True(t, chat.hadDeadline, "chat requests carry a deadline")
}

func TestChatValidation(t *testing.T) {
	server := newTestServer(nil, &stubChat{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{broken"},
		{"missing message", `{"document_id":"doc-1"}`},
		{"missing document id", `{"message":"hi"}`},
		{"bad history role", `{"message":"hi","document_id":"d","conversation_history":[{"role":"system","content":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChatNotReady(t *testing.T) {
	chat := &stubChat{err: fmt.Errorf("%w: document is processing", domain.ErrNotReady)}
	server := newTestServer(nil, chat, nil)

	payload := `{"message":"hi","document_id":"doc-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	chat := &stubChat{searchResults: []domain.ScoredEntry{
		{Entry: domain.IndexEntry{DocumentID: "doc-1", Page: 2, Content: "Revenue grew."}, Score: 0.91},
		{Entry: domain.IndexEntry{DocumentID: "doc-1", Page: 5, Content: "Costs stayed flat."}, Score: 0.74},
	}}
	server := newTestServer(nil, chat, nil)

	payload := `{"query":"revenue","document_id":"doc-1","limit":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "revenue", resp.Query)
	assert.Equal(t, 2, resp.TotalResults)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Revenue grew.", resp.Results[0].Content)
	assert.Equal(t, 2, resp.Results[0].PageNumber)
	assert.Equal(t, 0.91, resp.Results[0].ConfidenceScore)

	assert.Equal(t, "doc-1", chat.lastDocID)
	assert.Equal(t, 5, chat.lastLimit)
}

func TestSearchRequiresQuery(t *testing.T) {
	server := newTestServer(nil, &stubChat{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"document_id":"doc-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// stubPinger scripts a health check target.
type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHealthReportsServices(t *testing.T) {
	server := New(&stubIngestion{}, &stubChat{}, &stubBlobs{},
		WithHealthCheck("embeddings", stubPinger{}),
		WithHealthCheck("llm", stubPinger{err: fmt.Errorf("provider down")}),
		WithHealthCheck("vector_store", stubPinger{}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Services["embeddings"])
	assert.Equal(t, "unhealthy", resp.Services["llm"])
	assert.Equal(t, "healthy", resp.Services["vector_store"])
}
