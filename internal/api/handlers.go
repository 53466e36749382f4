package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/extract"
	"github.com/lab-report-normalizer/internal/history"
	"github.com/lab-report-normalizer/internal/middleware"
	"github.com/lab-report-normalizer/internal/service"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// TextReportRequest submits a plain text report. Empty text is accepted and yields a
// no_tests_found run.
type TextReportRequest struct {
	Text                 *string  `json:"text" binding:"required"`
	ExtractionConfidence *float64 `json:"extraction_confidence" binding:"omitempty,gte=0,lte=1"`
}

// LinesReportRequest submits already extracted lines.
type LinesReportRequest struct {
	Lines                []string `json:"lines" binding:"required"`
	ExtractionConfidence *float64 `json:"extraction_confidence" binding:"required,gte=0,lte=1"`
}

// BatchRequest submits several text reports.
type BatchRequest struct {
	Reports []service.BatchReport `json:"reports" binding:"required,min=1"`
}

// BatchResponse reports per-item outcomes of a batch.
type BatchResponse struct {
	Items     interface{} `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// RunsResponse is one page of run history.
type RunsResponse struct {
	Runs   []*history.Record `json:"runs"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
		"tests":     s.service.Catalog().Len(),
		"history":   s.service.HistoryEnabled(),
		"extractor": s.service.ExtractorState(),
	})
}

func (s *Server) handleListTests(c *gin.Context) {
	entries := s.service.Catalog().Entries()
	c.JSON(http.StatusOK, gin.H{
		"count": len(entries),
		"tests": entries,
	})
}

func (s *Server) handleTextReport(c *gin.Context) {
	var req TextReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid text report request", err)
		return
	}

	out, err := s.service.ProcessText(c.Request.Context(), *req.Text, req.ExtractionConfidence)
	if err != nil {
		s.respondProcessingError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleLinesReport(c *gin.Context) {
	var req LinesReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid lines report request", err)
		return
	}

	out, err := s.service.ProcessLines(c.Request.Context(), req.Lines, *req.ExtractionConfidence)
	if err != nil {
		s.respondProcessingError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "A report file is required", err)
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Unreadable report file", err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Unreadable report file", err)
		return
	}

	out, err := s.service.ProcessDocument(c.Request.Context(), extract.Document{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.respondProcessingError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid batch request", err)
		return
	}

	items, err := s.service.ProcessBatch(c.Request.Context(), req.Reports)
	if err != nil {
		s.respondProcessingError(c, err)
		return
	}

	resp := BatchResponse{Items: items}
	for _, item := range items {
		if item.Succeeded() {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultRunsLimit)
	if err != nil || limit < 1 || limit > maxRunsLimit {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "limit must be between 1 and 100", err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "offset must not be negative", err)
		return
	}

	runs, total, err := s.service.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondProcessingError(c, err)
		return
	}
	if runs == nil {
		runs = []*history.Record{}
	}
	c.JSON(http.StatusOK, RunsResponse{Runs: runs, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleGetRun(c *gin.Context) {
	rec, err := s.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondProcessingError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// respondProcessingError maps service errors onto HTTP statuses.
func (s *Server) respondProcessingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedContent):
		respondError(c, http.StatusUnsupportedMediaType, domain.ErrInvalidInput, "Unsupported report format", err)
	case errors.Is(err, extract.ErrUnavailable):
		respondError(c, http.StatusServiceUnavailable, domain.ErrExtraction, "Text extraction is temporarily unavailable", err)
	case errors.Is(err, service.ErrBatchTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, domain.ErrBatchTooLarge, "Too many reports in batch", err)
	case errors.Is(err, service.ErrEmptyBatch):
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Batch contains no reports", err)
	case errors.Is(err, service.ErrHistoryDisabled):
		respondError(c, http.StatusNotImplemented, domain.ErrHistoryDisabled, "Run history is disabled", nil)
	case errors.Is(err, service.ErrHistoryUnavailable):
		s.logger.WithError(err).Error("Run history lookup failed")
		respondError(c, http.StatusServiceUnavailable, domain.ErrStorage, "Run history is unavailable", nil)
	case errors.Is(err, history.ErrNotFound):
		respondError(c, http.StatusNotFound, domain.ErrNotFound, "Run not found", nil)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, domain.ErrExtraction, "Request timed out", err)
	default:
		s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).
			Error("Report processing failed")
		respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Report processing failed", nil)
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
