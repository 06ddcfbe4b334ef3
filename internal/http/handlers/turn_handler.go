// Chat HTTP handlers.
//
// This file exposes the conversational endpoints:
//   - POST /chat/sessions/{id}/messages   (run one dialogue turn)
//   - GET  /chat/sessions/{id}/messages   (read the transcript, ETag support)
//
// Idempotency:
// The Idempotency-Key is handed to the assistant, which checks it while
// holding the session lock. A repeated key with the same input answers with
// the first result and `Idempotency-Replayed: true`; no second turn runs.
// Reusing a key with a different input is a 409.
package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/http/middleware"
	"github.com/tbourn/go-printshop-assistant/internal/services"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload of one user turn.
type PostMessageRequest struct {
	// Input is the user's text or the value of a suggested option.
	Input string `json:"input" binding:"required" example:"look_products"`
	// UserID optionally links the session to a known user. X-User-ID is
	// used when absent.
	UserID string `json:"user_id,omitempty" binding:"omitempty,max=64" example:"user123"`
}

// TurnResponse is the bot's answer to one turn.
type TurnResponse struct {
	SessionID string        `json:"session_id" example:"web-7f3a"`
	Step      dialogue.Step `json:"step" swaggertype:"string" example:"awaiting_category"`
	dialogue.Reply
	// TicketID is set on the turn that filed a support ticket.
	TicketID string `json:"ticket_id,omitempty"`
}

// ListMessagesResponse contains a page of transcript lines.
type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeInput normalizes line endings and blank-line runs. Trimming and
// length checks are left to the service.
func sanitizeInput(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return nlCollapseRE.ReplaceAllString(s, "\n\n")
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message to the assistant
// @Description Runs one dialogue turn for the session and returns the bot reply, quick-reply options and product suggestions.
// @Description Sessions are created on first use. Supports idempotency via the Idempotency-Key header.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (optional)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Session ID (1-128 chars of A-Za-z0-9._~:-)"  example(web-7f3a)
// @Param       body             body    handlers.PostMessageRequest  true  "User turn"
//
// @Success     200  {object}  handlers.TurnResponse   "Bot reply"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Session busy or idempotency key reused"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/sessions/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")
	if !middleware.ValidToken(sessionID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid session id")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "input required")
		return
	}
	input := sanitizeInput(req.Input)

	uid := strings.TrimSpace(req.UserID)
	if uid == "" {
		uid = middleware.UserIDFrom(c)
	}
	var userID *string
	if uid != "" {
		userID = &uid
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	res, err := h.assistant.Turn(ctx, services.TurnRequest{
		SessionID:      sessionID,
		UserID:         userID,
		Input:          input,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "input required")
		case errors.Is(err, services.ErrInputTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "input too long")
		case errors.Is(err, services.ErrInvalidSessionID):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid session id")
		case errors.Is(err, services.ErrSessionBusy):
			fail(c, http.StatusConflict, ErrCodeSessionBusy, "another message for this session is still being processed")
		case errors.Is(err, services.ErrIdempotencyConflict):
			fail(c, http.StatusConflict, ErrCodeConflict, "idempotency key already used with a different input")
		default:
			failInternal(c, ErrCodeTurnFailed, err)
		}
		return
	}

	if res.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusOK, TurnResponse{
		SessionID: res.SessionID,
		Step:      res.Step,
		Reply:     res.Reply,
		TicketID:  res.TicketID,
	})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List the transcript of a session
// @Description Returns a page of user and bot messages in order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       id         path   string  true  "Session ID"  example(web-7f3a)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/sessions/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")
	if !middleware.ValidToken(sessionID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid session id")
		return
	}
	page, pageSize := pageParams(c)

	count, latest, err := h.transcripts.Stats(ctx, sessionID)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	case err != nil:
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	scope := sessionID + ":" + itoa(page) + ":" + itoa(pageSize)
	if notModified(c, weakETag("messages", scope, count, latest)) {
		c.Status(http.StatusNotModified)
		return
	}

	items, total, err := h.transcripts.ListPage(ctx, sessionID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}
