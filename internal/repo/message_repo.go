package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// AppendMessage adds one transcript line after the last one of the session.
// Seq is computed as max+1, so callers appending several lines for one turn
// should do so inside a single transaction while holding the session lock.
func AppendMessage(ctx context.Context, db *gorm.DB, sessionID, sender, text string) (*domain.ChatMessage, error) {
	var last int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Select("COALESCE(MAX(seq), 0)").
		Where("chat_session_id = ?", sessionID).
		Scan(&last).Error
	if err != nil {
		return nil, err
	}

	m := &domain.ChatMessage{
		ID:            uuid.NewString(),
		ChatSessionID: sessionID,
		Seq:           last + 1,
		Sender:        sender,
		Text:          text,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// CountMessages returns the number of transcript lines of a session.
func CountMessages(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("chat_session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns transcript lines in sequence order.
func ListMessagesPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
