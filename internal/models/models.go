// Package models defines the data structures shared by the database and HTTP
// layers.
//
// Models are plain structs with JSON tags for serialization and `db` tags for
// sqlx column mapping. The pipeline's own state lives in package pipeline;
// these are the shapes that cross the API and the history table.
package models

import (
	"time"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

// ConversionStatus is the terminal outcome recorded in history.
type ConversionStatus string

const (
	ConversionCompleted ConversionStatus = "completed"
	ConversionFailed    ConversionStatus = "error"
)

// Conversion is one row of the conversions history table. Only metadata is
// stored; document contents never leave the session.
type Conversion struct {
	ID             string           `json:"id" db:"id"`
	SessionID      string           `json:"session_id" db:"session_id"`
	Filename       string           `json:"filename" db:"filename"`
	SizeBytes      int              `json:"size_bytes" db:"size_bytes"`
	PageCount      int              `json:"page_count" db:"page_count"`
	RawChars       int              `json:"raw_chars" db:"raw_chars"`
	FormattedChars int              `json:"formatted_chars" db:"formatted_chars"`
	Provider       string           `json:"provider" db:"provider"`
	Model          string           `json:"model" db:"model"`
	Status         ConversionStatus `json:"status" db:"status"`
	ErrorMessage   string           `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// ConversionListParams holds query parameters for listing history.
type ConversionListParams struct {
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Status  string `form:"status"`
	Search  string `form:"search"` // filename substring
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       any `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// --- API Request/Response types ---

// SessionCreatedResponse is returned by POST /sessions.
type SessionCreatedResponse struct {
	SessionID string          `json:"session_id"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Status    pipeline.Status `json:"status"`
	Locale    string          `json:"locale"`
}

// SessionResponse is the polling view of a session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	pipeline.Snapshot
}

// ConvertResponse is returned when a conversion has been queued.
type ConvertResponse struct {
	SessionID string          `json:"session_id"`
	Status    pipeline.Status `json:"status"`
	Message   string          `json:"message"`
}

// PreviewResponse carries the HTML rendering of the formatted text.
type PreviewResponse struct {
	SessionID string `json:"session_id"`
	HTML      string `json:"html"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Workers  int    `json:"workers"`
	Sessions int    `json:"sessions"`
}
