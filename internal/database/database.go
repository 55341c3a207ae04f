// Package database handles the PostgreSQL conversion history.
//
// Go Pattern: We use sqlx, which extends database/sql with struct scanning,
// and write raw SQL instead of going through an ORM. History is optional: when DATABASE_URL is empty the server runs
// without a *DB and records nothing.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver, registered by init()

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
)

// DB wraps the sqlx connection with the history queries.
//
// Go Pattern: Embedding *sqlx.DB promotes all of its methods onto DB, so
// db.GetContext and friends work directly.
type DB struct {
	*sqlx.DB
}

// New creates a new database connection with connection pooling configured.
func New(databaseURL string) (*DB, error) {
	// sqlx.Connect both opens the connection and pings the database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Go Pattern: database/sql keeps its own connection pool. These limits
	// suit serverless PostgreSQL, which closes idle connections aggressively.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &DB{db}, nil
}

// HealthCheck verifies the database connection is alive.
//
// Go Pattern: Anything that may block takes a context.Context first, so the
// caller decides the deadline.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// CreateConversion inserts a history row, filling in its ID and timestamp.
func (db *DB) CreateConversion(ctx context.Context, c *models.Conversion) error {
	query := `
		INSERT INTO conversions (session_id, filename, size_bytes, page_count, raw_chars, formatted_chars, provider, model, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		c.SessionID, c.Filename, c.SizeBytes, c.PageCount, c.RawChars,
		c.FormattedChars, c.Provider, c.Model, c.Status, c.ErrorMessage,
	).Scan(&c.ID, &c.CreatedAt)
}

// ListConversions returns a page of history, newest first, and the total
// number of matching rows.
func (db *DB) ListConversions(ctx context.Context, params models.ConversionListParams) ([]models.Conversion, int, error) {
	params = normalizeListParams(params)
	where, args := conversionFilters(params)

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM conversions "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM conversions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)
	args = append(args, params.PerPage, offset)

	conversions := []models.Conversion{}
	if err := db.SelectContext(ctx, &conversions, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}

	return conversions, total, nil
}

func normalizeListParams(p models.ConversionListParams) models.ConversionListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 20
	}
	return p
}

// conversionFilters builds the WHERE clause and its positional arguments.
func conversionFilters(p models.ConversionListParams) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	// Go Pattern: Placeholders are numbered from len(args), so every filter
	// stays a bound parameter and user input never reaches the SQL text.
	if p.Status != "" {
		args = append(args, p.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		conditions = append(conditions, fmt.Sprintf("filename ILIKE $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
