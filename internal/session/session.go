// Package session keeps the server-side half of a login: which user a session
// id belongs to and until when.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions. Get returns nil for unknown or expired ids, and
// Delete of an unknown id is not an error.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

func NewID() string {
	return uuid.NewString()
}
