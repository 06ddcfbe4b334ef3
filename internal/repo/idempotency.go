package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// GetIdempotency returns the unexpired record for (sessionKey, key) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, sessionKey, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(sessionKey) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("session_key = ? AND key = ? AND expires_at > ?", sessionKey, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores the response of a turn under (sessionKey, key).
// A concurrent or earlier record for the same pair yields ErrDuplicate.
// Expired rows for the pair are removed first so the key can be reused.
func CreateIdempotency(ctx context.Context, db *gorm.DB, sessionKey, key, inputHash string, status int, response []byte, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	if err := db.WithContext(ctx).
		Where("session_key = ? AND key = ? AND expires_at <= ?", sessionKey, key, now).
		Delete(&domain.Idempotency{}).Error; err != nil {
		return nil, err
	}

	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		SessionKey: sessionKey,
		Key:        key,
		InputHash:  inputHash,
		Status:     status,
		Response:   datatypes.JSON(response),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredIdempotency deletes records that expired before now.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
