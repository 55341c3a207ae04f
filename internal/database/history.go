package database

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

// recordTimeout bounds a single history insert.
const recordTimeout = 5 * time.Second

// ConversionStore persists history rows. *DB implements it.
type ConversionStore interface {
	CreateConversion(ctx context.Context, c *models.Conversion) error
}

// History records pipeline outcomes as conversion rows. It implements
// pipeline.Recorder. A History with a nil store records nothing.
type History struct {
	store    ConversionStore
	provider string
	model    string
	logger   *zap.Logger
}

// NewHistory creates a recorder tagging each row with the AI provider and
// model in use.
func NewHistory(store ConversionStore, provider, model string, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{store: store, provider: provider, model: model, logger: logger}
}

// Record inserts one row. Failures are logged, never returned: history must
// not turn a successful conversion into a failed one.
func (h *History) Record(ctx context.Context, o pipeline.Outcome) {
	if h == nil || h.store == nil {
		return
	}

	// The conversion's own context may already have hit its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	status := models.ConversionCompleted
	if o.Status == pipeline.StatusError {
		status = models.ConversionFailed
	}

	c := &models.Conversion{
		SessionID:      o.SessionID,
		Filename:       o.Filename,
		SizeBytes:      o.SizeBytes,
		PageCount:      o.PageCount,
		RawChars:       o.RawChars,
		FormattedChars: o.FormattedChars,
		Provider:       h.provider,
		Model:          h.model,
		Status:         status,
		ErrorMessage:   o.Error,
	}
	if err := h.store.CreateConversion(ctx, c); err != nil {
		h.logger.Error("❌ Failed to record conversion", zap.String("session_id", o.SessionID), zap.Error(err))
		return
	}
	h.logger.Debug("Conversion recorded", zap.String("id", c.ID), zap.String("status", string(status)))
}
