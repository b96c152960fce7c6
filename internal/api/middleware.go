package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academic_advisor/internal/metrics"
)

// requestLogger logs every request and records its route metrics.
func requestLogger(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		m.ObserveHTTP(c.FullPath(), c.Request.Method, status, elapsed)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.String("remote", c.ClientIP()),
			zap.Duration("latency", elapsed))
	}
}

// bearerAuth rejects requests without the expected token. An empty token
// disables the check. Health and metrics stay open.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		// Skip auth for health check and scraping
		if path := c.Request.URL.Path; path == healthPath || path == metricsPath {
			c.Next()
			return
		}

		got := extractBearerToken(c)
		if got == "" {
			sendError(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "Missing authorization token", "")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			sendError(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "Invalid token", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
