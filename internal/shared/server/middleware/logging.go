package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/telemetry"
)

const logFieldsKey = "logFields"

// quietPaths are polled by probes and scrapers; they are logged only on failure.
var quietPaths = []string{"/api/v1/health", "/metrics"}

// Annotate attaches a field to the request's completion log line.
func Annotate(c *gin.Context, key string, value any) {
	fields, _ := c.Get(logFieldsKey)
	m, ok := fields.(map[string]any)
	if !ok {
		m = make(map[string]any)
		c.Set(logFieldsKey, m)
	}
	m[key] = value
}

// Logging writes one request.complete line per request: warn for 4xx,
// error for 5xx, info otherwise.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if status < http.StatusBadRequest && isQuiet(path) {
			return
		}

		id := IdentityFromContext(c)
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id.UserID != "" {
			fields["user_id"] = id.UserID
			fields["is_guest"] = id.IsGuest
		}
		if extra, ok := c.Get(logFieldsKey); ok {
			for k, v := range extra.(map[string]any) {
				fields[k] = v
			}
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
