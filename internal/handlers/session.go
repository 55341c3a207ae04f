// session.go handles the conversion session endpoints.
//
// POST /api/v1/sessions          create a session, returns its token
// GET  /api/v1/session           poll status and results
// POST /api/v1/session/upload    upload the PDF (multipart field "file")
// POST /api/v1/session/convert   start extraction + reformatting (async)
// POST /api/v1/session/retry     error back to idle, file kept
// POST /api/v1/session/reset     back to idle
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/middleware"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/worker"
)

// DefaultMaxUploadBytes is used when the handler has no explicit limit.
const DefaultMaxUploadBytes = 50 << 20 // 50MB

// CreateSession starts a new conversion session.
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	s, token, expiresAt, err := h.Sessions.Create(c.GetHeader("Accept-Language"))
	if err != nil {
		h.logger().Error("❌ Failed to create session", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", i18n.MsgUnexpected)
		return
	}

	c.JSON(http.StatusCreated, models.SessionCreatedResponse{
		SessionID: s.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		Status:    s.Pipeline.Status(),
		Locale:    s.Messages.Lang(),
	})
}

// GetSession returns the session's current state.
// GET /api/v1/session
func (h *Handler) GetSession(c *gin.Context) {
	s := middleware.GetSession(c)
	c.JSON(http.StatusOK, models.SessionResponse{SessionID: s.ID, Snapshot: s.Pipeline.Snapshot()})
}

// UploadPDF records the uploaded PDF on the session.
// POST /api/v1/session/upload
//
// The content type comes from the multipart part header; when the client
// sent none, it is sniffed from the first bytes.
func (h *Handler) UploadPDF(c *gin.Context) {
	s := middleware.GetSession(c)

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "file_too_large", i18n.MsgFileTooLarge)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid_request", i18n.MsgNoFile)
		return
	}
	defer file.Close()

	// The pdf library needs random access, so the whole file is buffered.
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "read_error", i18n.MsgExtractionFailed)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	err = s.Pipeline.Upload(pipeline.SourceDocument{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	switch {
	case errors.Is(err, pipeline.ErrNotPDF):
		respondError(c, http.StatusBadRequest, "invalid_file_type", i18n.MsgNotPDF)
		return
	case errors.Is(err, pipeline.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "invalid_state", i18n.MsgInvalidState)
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, "internal_error", i18n.MsgUnexpected)
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{SessionID: s.ID, Snapshot: s.Pipeline.Snapshot()})
}

// StartConversion moves the session into reading_pdf and queues the work.
// POST /api/v1/session/convert
//
// Returns 202 immediately; clients poll GET /session until the status is
// completed or error.
func (h *Handler) StartConversion(c *gin.Context) {
	s := middleware.GetSession(c)

	if err := s.Pipeline.Begin(); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoFile):
			respondError(c, http.StatusBadRequest, "no_file", i18n.MsgNoFile)
		default:
			respondError(c, http.StatusConflict, "invalid_state", i18n.MsgInvalidState)
		}
		return
	}

	if err := h.Worker.Submit(worker.Job{ID: s.ID, Runner: s.Pipeline}); err != nil {
		if cancelErr := s.Pipeline.Cancel(); cancelErr != nil {
			h.logger().Warn("⚠️  Could not roll back unscheduled conversion", zap.String("session_id", s.ID), zap.Error(cancelErr))
		}
		h.logger().Warn("⚠️  Conversion not queued", zap.String("session_id", s.ID), zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "queue_full", i18n.MsgQueueFull)
		return
	}

	c.JSON(http.StatusAccepted, models.ConvertResponse{
		SessionID: s.ID,
		Status:    s.Pipeline.Status(),
		Message:   "Conversion started. Poll GET /api/v1/session for progress.",
	})
}

// ResetSession clears the file and results.
// POST /api/v1/session/reset
func (h *Handler) ResetSession(c *gin.Context) {
	s := middleware.GetSession(c)

	if err := s.Pipeline.Reset(); err != nil {
		respondError(c, http.StatusConflict, "invalid_state", i18n.MsgInvalidState)
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{SessionID: s.ID, Snapshot: s.Pipeline.Snapshot()})
}

// RetrySession clears a failed conversion but keeps the uploaded file, so
// the client can convert it again without re-uploading.
// POST /api/v1/session/retry
func (h *Handler) RetrySession(c *gin.Context) {
	s := middleware.GetSession(c)

	if err := s.Pipeline.Retry(); err != nil {
		respondError(c, http.StatusConflict, "invalid_state", i18n.MsgInvalidState)
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{SessionID: s.ID, Snapshot: s.Pipeline.Snapshot()})
}
