package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

func TestNormalizeListParams(t *testing.T) {
	tests := []struct {
		name        string
		in          models.ConversionListParams
		wantPage    int
		wantPerPage int
	}{
		{"zero values get defaults", models.ConversionListParams{}, 1, 20},
		{"valid values kept", models.ConversionListParams{Page: 3, PerPage: 50}, 3, 50},
		{"per page over cap", models.ConversionListParams{Page: 1, PerPage: 500}, 1, 20},
		{"negative page", models.ConversionListParams{Page: -2, PerPage: 10}, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeListParams(tt.in)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantPerPage, got.PerPage)
		})
	}
}

func TestConversionFilters(t *testing.T) {
	tests := []struct {
		name      string
		params    models.ConversionListParams
		wantWhere string
		wantArgs  []any
	}{
		{"no filters", models.ConversionListParams{}, "", nil},
		{"status only", models.ConversionListParams{Status: "error"}, "WHERE status = $1", []any{"error"}},
		{
			"status and search",
			models.ConversionListParams{Status: "completed", Search: "report"},
			"WHERE status = $1 AND filename ILIKE $2",
			[]any{"completed", "%report%"},
		},
		{"search only", models.ConversionListParams{Search: "x"}, "WHERE filename ILIKE $1", []any{"%x%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := conversionFilters(tt.params)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

type fakeStore struct {
	rows        []models.Conversion
	err         error
	hadDeadline bool
}

func (f *fakeStore) CreateConversion(ctx context.Context, c *models.Conversion) error {
	_, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	c.ID = "row-1"
	f.rows = append(f.rows, *c)
	return nil
}

func TestHistoryRecord(t *testing.T) {
	store := &fakeStore{}
	h := NewHistory(store, "gemini", "gemini-2.5-flash", nil)

	// An already-cancelled conversion context must not prevent recording.
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	h.Record(ctx, pipeline.Outcome{
		SessionID: "s1", Filename: "a.pdf", SizeBytes: 10, PageCount: 2,
		RawChars: 100, Status: pipeline.StatusError, Error: "boom",
	})

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, models.ConversionFailed, row.Status)
	assert.Equal(t, "gemini", row.Provider)
	assert.Equal(t, "gemini-2.5-flash", row.Model)
	assert.Equal(t, "boom", row.ErrorMessage)
	assert.Equal(t, 2, row.PageCount)
	assert.True(t, store.hadDeadline)

	h.Record(context.Background(), pipeline.Outcome{SessionID: "s1", Status: pipeline.StatusCompleted})
	require.Len(t, store.rows, 2)
	assert.Equal(t, models.ConversionCompleted, store.rows[1].Status)
}

func TestHistoryWithoutStore(t *testing.T) {
	var nilHistory *History
	assert.NotPanics(t, func() {
		nilHistory.Record(context.Background(), pipeline.Outcome{})
		NewHistory(nil, "", "", nil).Record(context.Background(), pipeline.Outcome{})
	})
}

func TestHistoryStoreErrorIsSwallowed(t *testing.T) {
	h := NewHistory(&fakeStore{err: errors.New("db down")}, "p", "m", nil)
	assert.NotPanics(t, func() {
		h.Record(context.Background(), pipeline.Outcome{Status: pipeline.StatusCompleted})
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_conversions.up.sql")
	assert.Contains(t, names, "000001_create_conversions.down.sql")
}
