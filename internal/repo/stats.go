package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// MessagesStats returns the transcript size of a session and the newest
// updated_at, used to build weak ETags.
func MessagesStats(ctx context.Context, db *gorm.DB, sessionID string) (int64, *time.Time, error) {
	return tableStats(db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("chat_session_id = ?", sessionID))
}

// TicketsStats is MessagesStats for the ticket list, optionally per status.
func TicketsStats(ctx context.Context, db *gorm.DB, status domain.TicketStatus) (int64, *time.Time, error) {
	return tableStats(ticketQuery(ctx, db, status))
}

func tableStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	// ORDER BY + LIMIT instead of MAX(): SQLite returns MAX(datetime) as TEXT.
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
