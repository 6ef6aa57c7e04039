package respond

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"casa-backend/internal/shared/telemetry"
)

// ErrorBody is the envelope used by the REST routes.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// FieldIssue names one rejected request field.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Error logs and aborts with the enveloped error body.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := requestFields(c, status, message)
	fields["code"] = code
	telemetry.Error("http.error", fields)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// FunctionError logs and aborts with the flat {"error": message} body the
// function routes return.
func FunctionError(c *gin.Context, status int, message string) {
	telemetry.Error("http.error", requestFields(c, status, message))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// ValidationError answers 400 for a failed bind. Validator failures are
// listed per field; anything else (malformed JSON) gets a generic message.
func ValidationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Error(c, http.StatusBadRequest, "validation_error", "request body is not valid JSON", nil)
		return
	}
	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{Field: lowerFirst(fe.Field()), Issue: fe.Tag()})
	}
	Error(c, http.StatusBadRequest, "validation_error", issues[0].Field+" is "+issues[0].Issue, issues)
}

func requestFields(c *gin.Context, status int, message string) map[string]any {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
		fields["is_guest"] = c.GetBool("isGuest")
	}
	return fields
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
