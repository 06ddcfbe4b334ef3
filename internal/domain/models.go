// Package domain defines the GORM models persisted by the assistant: chat
// sessions with their transcripts, support tickets raised from the chat,
// the read-only print catalog, and idempotency records.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatSession is the persisted row behind an externally supplied session key.
// It is created on the first turn for a key and never deleted by the service.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - SessionKey: the caller's session identifier; unique, so concurrent
//     first turns converge on one row.
//   - UserID: optional external user; fixed at creation.
//   - DialogueState: JSON snapshot of the dialogue, used by the db state store.
type ChatSession struct {
	ID            string         `json:"id"          gorm:"type:char(36);primaryKey"`
	SessionKey    string         `json:"session_key" gorm:"type:varchar(128);not null;uniqueIndex:ux_chat_sessions_key"`
	UserID        *string        `json:"user_id,omitempty" gorm:"type:varchar(64);index"`
	DialogueState datatypes.JSON `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage is one transcript line. Every turn appends a user line followed
// by a bot line; Seq orders them within the session.
type ChatMessage struct {
	ID            string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatSessionID string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex:ux_chat_messages_seq,priority:1"`
	Seq           int64     `json:"seq"        gorm:"not null;uniqueIndex:ux_chat_messages_seq,priority:2"`
	Sender        string    `json:"sender"     gorm:"type:varchar(8);not null;check:sender IN ('user','bot')"`
	Text          string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	ChatSession ChatSession `json:"-" gorm:"foreignKey:ChatSessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// TicketStatus is the support workflow state of a ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}

// SupportTicket is raised when a chat user submits a grievance. Tickets are
// independent of the session that produced them.
type SupportTicket struct {
	ID          string       `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string       `json:"name"        gorm:"type:varchar(255);not null"`
	Email       string       `json:"email"       gorm:"type:varchar(255)"`
	Mobile      string       `json:"mobile"      gorm:"type:varchar(32)"`
	Subject     string       `json:"subject"     gorm:"type:varchar(255);not null"`
	Description string       `json:"description" gorm:"type:text;not null"`
	Status      TicketStatus `json:"status"      gorm:"type:varchar(16);not null;default:'open';index"`
	CreatedAt   time.Time    `json:"created_at"  gorm:"index"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName returns the database table name for SupportTicket.
func (SupportTicket) TableName() string { return "support_tickets" }
