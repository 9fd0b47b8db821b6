package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// authenticate rejects any request whose X-API-Key header is not exactly the
// configured key. It runs before every other handler on gated routes.
func (s *Server) authenticate(c *gin.Context) {
	expected := s.apiKey
	provided := c.GetHeader(APIKeyHeader)
	if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		slog.Warn("Unauthorized request received with invalid or missing API key",
			slog.String("path", c.Request.URL.Path),
			slog.String("request_id", c.GetString("request_id")),
		)
		s.metrics.RecordRejection("unauthorized")
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Detail: "Unauthorized: Invalid API Key"})
		return
	}
	c.Next()
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("Request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString("request_id")),
		)
	}
}

// openCORS allows every origin, method and header.
func openCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		MaxAge:          10 * time.Minute,
	})
}
