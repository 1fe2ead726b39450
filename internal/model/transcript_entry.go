package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TranscriptEntry is one line of a user's conversation. CreatedAt is assigned
// by the repository and never decreases for a given user.
type TranscriptEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_transcript_user_time,priority:1" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null;index:idx_transcript_user_time,priority:2" json:"timestamp"`
}

func (TranscriptEntry) TableName() string {
	return "chat_history"
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
