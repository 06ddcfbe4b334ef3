package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// resolveAttempts bounds the select/insert loop in ResolveSession.
const resolveAttempts = 3

// GetSessionByKey fetches the session row for an external session key.
func GetSessionByKey(ctx context.Context, db *gorm.DB, key string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := db.WithContext(ctx).Where("session_key = ?", key).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveSession returns the session for key, creating it with userID when
// it does not exist yet. Two callers racing on a new key both end up with
// the single row that won the unique index; the loser re-reads it.
// An existing session keeps the user it was created with.
func ResolveSession(ctx context.Context, db *gorm.DB, key string, userID *string) (*domain.ChatSession, error) {
	var lastErr error
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		s, err := GetSessionByKey(ctx, db, key)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		s = &domain.ChatSession{
			ID:         uuid.NewString(),
			SessionKey: key,
			UserID:     userID,
		}
		err = db.WithContext(ctx).Create(s).Error
		if err == nil {
			return s, nil
		}
		if !IsDuplicate(err) && !IsBusy(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("resolve session %q: %w", key, lastErr)
}

// LoadDialogueState returns the raw state snapshot stored on the session row.
// A missing row or an empty column yields (nil, nil).
func LoadDialogueState(ctx context.Context, db *gorm.DB, key string) ([]byte, error) {
	var row struct {
		DialogueState datatypes.JSON
	}
	err := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Select("dialogue_state").
		Where("session_key = ?", key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// A NULL column scans as the JSON literal null.
	if len(row.DialogueState) == 0 || string(row.DialogueState) == "null" {
		return nil, nil
	}
	return row.DialogueState, nil
}

// SaveDialogueState overwrites the state snapshot of an existing session.
func SaveDialogueState(ctx context.Context, db *gorm.DB, key string, raw []byte) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("session_key = ?", key).
		Update("dialogue_state", datatypes.JSON(raw))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
