// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware wraps a handler. In Gin, middleware is a
// gin.HandlerFunc that calls c.Next() to continue the chain, or c.Abort()
// to stop processing.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/models"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
//
// Go Pattern: An unexported key type means no other package can read or
// overwrite these values by guessing the string.
type contextKey string

const (
	sessionContextKey  contextKey = "session"
	messagesContextKey contextKey = "messages"
)

// AdminKeyHeader carries the admin key for history endpoints.
const AdminKeyHeader = "X-Admin-Key"

// Locale picks the message catalog for the request from Accept-Language,
// falling back to defaultLocale.
func Locale(defaultLocale string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(messagesContextKey), i18n.MatchOr(c.GetHeader("Accept-Language"), defaultLocale))
		c.Next()
	}
}

// Messages returns the request's catalog: the session's locale once a
// session is resolved, otherwise the negotiated one.
func Messages(c *gin.Context) i18n.Catalog {
	if s := GetSession(c); s != nil {
		return s.Messages
	}
	if val, ok := c.Get(string(messagesContextKey)); ok {
		if m, ok := val.(i18n.Catalog); ok {
			return m
		}
	}
	return i18n.Default()
}

// SessionAuth resolves the Bearer session token to its live session.
func SessionAuth(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "unauthorized", i18n.MsgSessionNotFound)
			return
		}

		s, err := registry.Authenticate(strings.TrimPrefix(authHeader, "Bearer "))
		switch {
		case errors.Is(err, session.ErrNotFound):
			abort(c, http.StatusNotFound, "session_not_found", i18n.MsgSessionNotFound)
			return
		case err != nil:
			abort(c, http.StatusUnauthorized, "unauthorized", i18n.MsgSessionNotFound)
			return
		}

		c.Set(string(sessionContextKey), s)
		c.Next()
	}
}

// GetSession retrieves the authenticated session from the request context.
func GetSession(c *gin.Context) *session.Session {
	val, exists := c.Get(string(sessionContextKey))
	if !exists {
		return nil
	}
	// Go Pattern: The comma-ok type assertion returns false instead of
	// panicking when the value has another type.
	s, ok := val.(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// AdminAuth checks the X-Admin-Key header against a bcrypt hash. With no
// hash configured the guarded routes are closed.
func AdminAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			abort(c, http.StatusForbidden, "forbidden", i18n.MsgAdminDisabled)
			return
		}

		rawKey := c.GetHeader(AdminKeyHeader)
		if rawKey == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(rawKey)) != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", i18n.MsgAdminDenied)
			return
		}

		c.Next()
	}
}

// HashAdminKey produces the bcrypt hash to put in ADMIN_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func abort(c *gin.Context, status int, code string, key i18n.Key) {
	c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: Messages(c).Text(key),
		Code:    status,
	})
	c.Abort()
}
