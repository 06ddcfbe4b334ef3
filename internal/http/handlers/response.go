// Package handlers implements the HTTP endpoints of the assistant: chat turns,
// transcripts and support tickets. Handlers validate input, call a service
// and translate the result, including conditional GETs and idempotent
// replays. Every error leaves through fail with a stable code.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-printshop-assistant/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, to correlate with server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Human-readable message, safe to show to users
	Message string `json:"message" example:"session not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request logger; the client only sees msg.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failInternal logs err, which may carry internals, and answers with a
// generic message.
func failInternal(c *gin.Context, code string, err error) {
	middleware.LoggerFrom(c).Error().Err(err).Str("code", code).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   "internal error, please retry",
	})
}

// Fail is the exported fail, for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
