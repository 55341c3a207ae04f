// conversions.go exposes the conversion history to administrators.
//
// GET /api/v1/conversions?page=&per_page=&status=&search=
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
)

// ListConversions returns a page of history, newest first.
// GET /api/v1/conversions
func (h *Handler) ListConversions(c *gin.Context) {
	if h.History == nil {
		respondError(c, http.StatusServiceUnavailable, "history_disabled", i18n.MsgHistoryDisabled)
		return
	}

	var params models.ConversionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidQuery)
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	conversions, total, err := h.History.ListConversions(c.Request.Context(), params)
	if err != nil {
		h.logger().Error("❌ Failed to list conversions", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", i18n.MsgHistoryFailed)
		return
	}

	totalPages := (total + params.PerPage - 1) / params.PerPage

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       conversions,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}
