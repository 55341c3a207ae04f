// Package handlers contains the HTTP handlers for the API.
//
// Handlers are grouped on a Handler struct that holds the shared
// dependencies, so tests can build one with fakes.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/middleware"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/session"
)

// Queue accepts conversion jobs. *worker.Pool implements it.
type Queue interface {
	Submit(job worker.Job) error
	WorkerCount() int
}

// HistoryStore reads conversion history. *database.DB implements it.
type HistoryStore interface {
	HealthCheck(ctx context.Context) error
	ListConversions(ctx context.Context, params models.ConversionListParams) ([]models.Conversion, int, error)
}

// Handler holds shared dependencies for all HTTP handlers.
//
// Go Pattern: Dependency injection via struct fields. Queue and HistoryStore
// are small interfaces, so tests swap in fakes without touching a database
// or starting workers.
type Handler struct {
	Sessions *session.Registry
	Worker   Queue
	History  HistoryStore // nil when history is disabled
	Logger   *zap.Logger

	Version        string
	Provider       string
	Model          string
	MaxUploadBytes int64
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	if h.History != nil {
		dbStatus = "healthy"
		if err := h.History.HealthCheck(c.Request.Context()); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  h.Version,
		Database: dbStatus,
		Provider: h.Provider,
		Model:    h.Model,
		Workers:  h.Worker.WorkerCount(),
		Sessions: h.Sessions.Len(),
	})
}

// respondError writes the standard error body with a localized message.
func respondError(c *gin.Context, status int, code string, key i18n.Key) {
	c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: middleware.Messages(c).Text(key),
		Code:    status,
	})
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
