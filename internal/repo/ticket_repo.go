package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// CreateTicket inserts t, assigning an id, an open status and timestamps
// when they are unset.
func CreateTicket(ctx context.Context, db *gorm.DB, t *domain.SupportTicket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TicketOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(t).Error
}

// TicketWriter creates tickets through a fixed handle, usually a turn's
// transaction.
type TicketWriter struct {
	db *gorm.DB
}

// NewTicketWriter binds ticket creation to db.
func NewTicketWriter(db *gorm.DB) TicketWriter { return TicketWriter{db: db} }

// CreateTicket implements dialogue.TicketWriter.
func (w TicketWriter) CreateTicket(ctx context.Context, t *domain.SupportTicket) error {
	return CreateTicket(ctx, w.db, t)
}

// GetTicket fetches a ticket by id.
func GetTicket(ctx context.Context, db *gorm.DB, id string) (*domain.SupportTicket, error) {
	var t domain.SupportTicket
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func ticketQuery(ctx context.Context, db *gorm.DB, status domain.TicketStatus) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.SupportTicket{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}

// CountTickets counts tickets, optionally restricted to one status.
func CountTickets(ctx context.Context, db *gorm.DB, status domain.TicketStatus) (int64, error) {
	var total int64
	err := ticketQuery(ctx, db, status).Count(&total).Error
	return total, err
}

// ListTicketsPage returns tickets newest first, optionally filtered by status.
func ListTicketsPage(ctx context.Context, db *gorm.DB, status domain.TicketStatus, offset, limit int) ([]domain.SupportTicket, error) {
	var out []domain.SupportTicket
	err := ticketQuery(ctx, db, status).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateTicketStatus sets the status of a ticket; ErrNotFound when no row matches.
func UpdateTicketStatus(ctx context.Context, db *gorm.DB, id string, status domain.TicketStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.SupportTicket{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
