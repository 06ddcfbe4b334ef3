package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Idempotency records the reply produced for a chat turn submitted with an
// Idempotency-Key, so a retried request replays the stored reply instead of
// advancing the dialogue a second time. InputHash guards against a key being
// reused for a different message.
type Idempotency struct {
	ID         string         `gorm:"type:char(36);primaryKey"`
	SessionKey string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_idempotency_session_key,priority:1"`
	Key        string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_idempotency_session_key,priority:2"`
	InputHash  string         `gorm:"type:char(64);not null"`
	Status     int            `gorm:"not null"`
	Response   datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time      `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
