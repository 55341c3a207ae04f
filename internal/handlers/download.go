// download.go serves the converted document and its HTML preview.
//
// GET /api/v1/session/download?format=docx|pdf|md|txt
// GET /api/v1/session/preview
package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/middleware"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/services/render"
)

// Download renders the formatted text and returns it as an attachment.
// GET /api/v1/session/download
func (h *Handler) Download(c *gin.Context) {
	s := middleware.GetSession(c)

	format, err := render.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_format", i18n.MsgInvalidFormat)
		return
	}

	doc, err := s.Pipeline.Download(c.Request.Context(), format)
	switch {
	case errors.Is(err, pipeline.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "invalid_state", i18n.MsgInvalidState)
		return
	case errors.Is(err, pipeline.ErrUnsupportedContent):
		// The conversion stays completed; another format still works.
		respondError(c, http.StatusUnprocessableEntity, "unsupported_content", i18n.MsgUnsupportedText)
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, "render_failed", i18n.MsgRenderFailed)
		return
	}

	c.Header("Content-Disposition", contentDisposition(doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// Preview returns the formatted text rendered as HTML.
// GET /api/v1/session/preview
func (h *Handler) Preview(c *gin.Context) {
	s := middleware.GetSession(c)

	if s.Pipeline.Status() != pipeline.StatusCompleted {
		respondError(c, http.StatusConflict, "invalid_state", i18n.MsgInvalidState)
		return
	}

	html, err := render.Preview(s.Pipeline.FormattedText())
	if err != nil {
		h.logger().Error("❌ Preview failed", zap.String("session_id", s.ID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "render_failed", i18n.MsgRenderFailed)
		return
	}

	c.JSON(http.StatusOK, models.PreviewResponse{SessionID: s.ID, HTML: html})
}

// contentDisposition builds an attachment header. Non-ASCII names are
// encoded as RFC 2231 filename* parameters.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
