package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/server/respond"
	"casa-backend/internal/shared/telemetry"
)

const functionsPrefix = "/api/v1/functions/"

// Recovery turns a panic into a 500. Function routes get the flat
// {"error"} body their callers expect; everything else gets the envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if userID := c.GetString("userId"); userID != "" {
				fields["user_id"] = userID
			}
			telemetry.Error("panic", fields)

			if strings.HasPrefix(c.Request.URL.Path, functionsPrefix) {
				respond.FunctionError(c, http.StatusInternalServerError, "internal error")
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
