package model

import "time"

const (
	EventUserRegistered = "user.registered"
	EventTurnCompleted  = "chat.turn.completed"
	EventTurnFailed     = "chat.turn.failed"
	EventHistoryCleared = "chat.history.cleared"
)

// Event is the payload published to the broker. AuditEvent is its stored form.
type Event struct {
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AuditEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Type       string    `gorm:"size:64;not null;index" json:"type"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
