package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// documentResponse is the wire form of a document.
type documentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Pages      int    `json:"pages"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		Size:       doc.Size,
		Pages:      doc.Pages,
		Status:     string(doc.Status),
		Error:      doc.Error,
		UploadedAt: doc.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// chatRequest is the chat endpoint payload.
type chatRequest struct {
	Message    string     `json:"message"`
	DocumentID string     `json:"document_id"`
	History    []turnJSON `json:"conversation_history"`
}

// turnJSON is one prior conversation turn.
type turnJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat endpoint reply.
type chatResponse struct {
	Response string `json:"response"`
	Sources  []int  `json:"sources"`
}

// searchRequest is the search endpoint payload.
type searchRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id"`
	Limit      int    `json:"limit"`
}

// searchResult is one ranked chunk in the search reply.
type searchResult struct {
	Content         string  `json:"content"`
	DocumentID      string  `json:"document_id"`
	PageNumber      int     `json:"page_number"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// searchResponse is the search endpoint reply.
type searchResponse struct {
	Results      []searchResult `json:"results"`
	Query        string         `json:"query"`
	TotalResults int            `json:"total_results"`
}

// handleHealth pings every registered collaborator and reports their
// individual status. Any failing check degrades the overall status.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultHealthTimeout)
	defer cancel()

	status := "healthy"
	services := gin.H{}
	for _, target := range s.health {
		if err := target.pinger.Ping(ctx); err != nil {
			services[target.name] = "unhealthy"
			status = "degraded"
			continue
		}
		services[target.name] = "healthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"services":  services,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleUpload accepts a multipart PDF upload and queues it for
// processing. The response returns before processing starts.
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	doc, err := s.ingestion.Submit(c.Request.Context(), content, fileHeader.Filename)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toDocumentResponse(doc))
}

// handleStatus returns the document's lifecycle state.
func (s *Server) handleStatus(c *gin.Context) {
	doc, err := s.ingestion.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

// handleListDocuments returns all documents, newest first.
func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.ingestion.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

// handleDelete removes a document and everything derived from it.
func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := s.ingestion.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("document %s deleted", id)})
}

// handleFile streams the original uploaded PDF.
func (s *Server) handleFile(c *gin.Context) {
	r, err := s.blobs.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer r.Close()

	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, r) //nolint:errcheck // client disconnects surface here
}

// handleChat answers a query against a completed document.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Message == "" || req.DocumentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and document_id are required"})
		return
	}

	history := make([]domain.Turn, 0, len(req.History))
	for _, turn := range req.History {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			c.JSON(http.StatusBadRequest, gin.H{"error": "history roles must be user or assistant"})
			return
		}
		history = append(history, domain.Turn{Role: turn.Role, Content: turn.Content})
	}

	// Bound end to end so a slow provider cannot outlive the connection.
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultChatTimeout)
	defer cancel()

	answer, err := s.chat.Answer(ctx, req.Message, req.DocumentID, history)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response: answer.Text,
		Sources:  answer.Sources,
	})
}

// handleSearch returns the raw ranked chunks for a query without answer
// generation. document_id is optional; empty searches every document.
func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	results, err := s.chat.Search(c.Request.Context(), req.Query, req.DocumentID, req.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]searchResult, len(results))
	for i, r := range results {
		out[i] = searchResult{
			Content:         r.Entry.Content,
			DocumentID:      r.Entry.DocumentID,
			PageNumber:      r.Entry.Page,
			ConfidenceScore: r.Score,
		}
	}
	c.JSON(http.StatusOK, searchResponse{
		Results:      out,
		Query:        req.Query,
		TotalResults: len(out),
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyQueued):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTransientProvider):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
