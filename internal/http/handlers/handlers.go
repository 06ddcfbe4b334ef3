package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/services"
	"github.com/tbourn/go-printshop-assistant/internal/utils"
)

//
// Service contracts (context-aware)
//

// AssistantService runs one dialogue turn.
type AssistantService interface {
	Turn(ctx context.Context, req services.TurnRequest) (*services.TurnResult, error)
}

// TranscriptService reads the message log of a session.
type TranscriptService interface {
	// ListPage returns a page of messages ordered by sequence and the total.
	ListPage(ctx context.Context, sessionKey string, page, pageSize int) ([]domain.ChatMessage, int64, error)
	// Stats returns the message count and latest update, for ETags.
	Stats(ctx context.Context, sessionKey string) (int64, *time.Time, error)
}

// TicketService is the staff side of support tickets.
type TicketService interface {
	ListPage(ctx context.Context, status string, page, pageSize int) ([]domain.SupportTicket, int64, error)
	Stats(ctx context.Context, status string) (int64, *time.Time, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.SupportTicket, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	assistant   AssistantService
	transcripts TranscriptService
	tickets     TicketService
}

// New constructs Handlers bound to the given services.
func New(assistant AssistantService, transcripts TranscriptService, tickets TicketService) *Handlers {
	return &Handlers{assistant: assistant, transcripts: transcripts, tickets: tickets}
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	pages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}

// pageParams reads page and page_size from the query string.
func pageParams(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"))
}

// weakETag builds W/"<kind>:<scope>:<count>:<unixnano>". The page window is
// part of scope so different pages never share a tag.
func weakETag(kind, scope string, count int64, latest *time.Time) string {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, scope, count, ts)
}

// notModified sets ETag and reports whether If-None-Match matched it.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	return c.GetHeader("If-None-Match") == etag
}

func itoa(n int) string { return strconv.Itoa(n) }
