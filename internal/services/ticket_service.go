package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
)

// TicketService lists support tickets and moves them through their workflow.
type TicketService struct {
	DB *gorm.DB
}

func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{DB: db}
}

// parseStatusFilter accepts "" (all tickets) or a valid status.
func parseStatusFilter(s string) (domain.TicketStatus, error) {
	st := domain.TicketStatus(s)
	if s != "" && !st.Valid() {
		return "", ErrInvalidTicketStatus
	}
	return st, nil
}

// ListPage returns tickets newest first, optionally filtered by status.
func (s *TicketService) ListPage(ctx context.Context, status string, page, pageSize int) ([]domain.SupportTicket, int64, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("ticket.status", status),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := repo.CountTickets(ctx, s.DB, st)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SupportTicket{}, 0, nil
	}
	items, err := repo.ListTicketsPage(ctx, s.DB, st, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the ticket count and newest update time for a status filter.
func (s *TicketService) Stats(ctx context.Context, status string) (int64, *time.Time, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return 0, nil, err
	}
	return repo.TicketsStats(ctx, s.DB, st)
}

// UpdateStatus moves a ticket to status and returns the updated row.
func (s *TicketService) UpdateStatus(ctx context.Context, id, status string) (*domain.SupportTicket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("ticket.id", id),
			attribute.String("ticket.status", status),
		),
	)
	defer span.End()

	st := domain.TicketStatus(status)
	if !st.Valid() {
		return nil, ErrInvalidTicketStatus
	}

	var out *domain.SupportTicket
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateTicketStatus(ctx, tx, id, st); err != nil {
			return err
		}
		t, err := repo.GetTicket(ctx, tx, id)
		out = t
		return err
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
