package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/services"
)

// ListTicketsResponse wraps a page of support tickets.
type ListTicketsResponse struct {
	Tickets    []domain.SupportTicket `json:"tickets"`
	Pagination Pagination             `json:"pagination"`
}

// UpdateTicketStatusRequest moves a ticket through its lifecycle.
type UpdateTicketStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open in_progress closed" example:"closed"`
}

// ListTickets godoc
// @ID          listTickets
// @Summary     List support tickets (paginated)
// @Description Returns tickets filed through the assistant, newest first, optionally filtered by status. Supports weak ETag via If-None-Match.
// @Tags        Tickets
// @Produce     json
//
// @Param       status     query  string  false "Status filter"  Enums(open, in_progress, closed)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTicketsResponse
// @Success     304  "Not modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets [get]
func (h *Handlers) ListTickets(c *gin.Context) {
	ctx := c.Request.Context()
	status := c.Query("status")
	page, pageSize := pageParams(c)

	count, latest, err := h.tickets.Stats(ctx, status)
	switch {
	case errors.Is(err, services.ErrInvalidTicketStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be open, in_progress or closed")
		return
	case err != nil:
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	scope := status + ":" + itoa(page) + ":" + itoa(pageSize)
	if notModified(c, weakETag("tickets", scope, count, latest)) {
		c.Status(http.StatusNotModified)
		return
	}

	items, total, err := h.tickets.ListPage(ctx, status, page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	ok(c, http.StatusOK, ListTicketsResponse{Tickets: items, Pagination: newPagination(page, pageSize, total)})
}

// UpdateTicketStatus godoc
// @ID          updateTicketStatus
// @Summary     Change a ticket's status
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Ticket ID"  format(uuid)
// @Param       body  body  handlers.UpdateTicketStatusRequest  true  "New status"
//
// @Success     200  {object}  domain.SupportTicket
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id}/status [patch]
func (h *Handlers) UpdateTicketStatus(c *gin.Context) {
	var req UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be open, in_progress or closed")
		return
	}

	t, err := h.tickets.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTicketNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		case errors.Is(err, services.ErrInvalidTicketStatus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be open, in_progress or closed")
		default:
			failInternal(c, ErrCodeUpdateFailed, err)
		}
		return
	}
	ok(c, http.StatusOK, t)
}
