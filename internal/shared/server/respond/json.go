package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Private writes a JSON response that browsers and proxies must not store.
// Reports, chat replies and profiles carry health data.
func Private(c *gin.Context, status int, payload any) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	JSON(c, status, payload)
}
