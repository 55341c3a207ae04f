// cors.go configures Cross-Origin Resource Sharing (CORS).
//
// The frontend dev server and the API run on different ports; without these
// headers browsers block the frontend's requests.
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultOrigin is the Vite dev server, used when no origins are configured.
const DefaultOrigin = "http://localhost:5173"

// CORS returns configured CORS middleware.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	// cors.New panics on an empty origin list.
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{DefaultOrigin}
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", AdminKeyHeader},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	})
}
