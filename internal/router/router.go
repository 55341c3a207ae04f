// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/handlers"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/logger"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/middleware"
)

// Options carries the cross-cutting settings the routes need.
type Options struct {
	AllowedOrigins []string
	DefaultLocale  string
	AdminKeyHash   string
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Logger         *zap.Logger
}

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.Locale(opts.DefaultLocale))

	// --- API Documentation ---
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	api := r.Group("/api/v1")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.RateLimit())
	}

	// --- Public Routes ---
	api.GET("/health", h.HealthCheck)
	api.POST("/sessions", h.CreateSession)

	// --- Session Routes (Bearer session token) ---
	sess := api.Group("/session")
	sess.Use(middleware.SessionAuth(h.Sessions))
	{
		sess.GET("", h.GetSession)
		sess.POST("/upload", h.UploadPDF)
		sess.POST("/convert", h.StartConversion)
		sess.GET("/download", h.Download)
		sess.GET("/preview", h.Preview)
		sess.POST("/retry", h.RetrySession)
		sess.POST("/reset", h.ResetSession)
	}

	// --- Admin Routes (X-Admin-Key) ---
	admin := api.Group("")
	admin.Use(middleware.AdminAuth(opts.AdminKeyHash))
	{
		admin.GET("/conversions", h.ListConversions)
	}

	return r
}
