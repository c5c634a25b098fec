package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/productlens/ingest/internal/domain"
	"github.com/productlens/ingest/internal/usecase"
)

// RunStatus exposes the state of the ingestion run
type RunStatus interface {
	Snapshot() usecase.ProgressSnapshot
	Summary() *domain.ErrorSummary
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	status RunStatus
}

// NewHandler creates a new HTTP handler
func NewHandler(status RunStatus) *Handler {
	return &Handler{status: status}
}

// HealthCheck returns the health status of the process
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "productlens-ingest",
		"version": "1.0.0",
	})
}

// RunProgress returns live counters of the current run
func (h *Handler) RunProgress(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no run attached"})
		return
	}
	c.JSON(http.StatusOK, h.status.Snapshot())
}

// RunSummary returns the error summary once the run has finished
func (h *Handler) RunSummary(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no run attached"})
		return
	}

	summary := h.status.Summary()
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has not finished yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
