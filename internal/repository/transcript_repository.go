package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gopherchat/internal/model"
)

var ErrUnknownUser = errors.New("user does not exist")

type TranscriptRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db, now: time.Now}
}

// WithClock replaces the timestamp source. Used by tests.
func (r *TranscriptRepository) WithClock(now func() time.Time) *TranscriptRepository {
	r.now = now
	return r
}

// Create stores entry with a repository-assigned CreatedAt that is never
// earlier than the user's latest entry.
func (r *TranscriptRepository) Create(ctx context.Context, entry *model.TranscriptEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&model.User{}).Where("id = ?", entry.UserID).Count(&users).Error; err != nil {
			return fmt.Errorf("check transcript owner failed: %w", err)
		}
		if users == 0 {
			return ErrUnknownUser
		}

		createdAt := r.now()
		var last model.TranscriptEntry
		err := tx.Where("user_id = ?", entry.UserID).
			Order("created_at DESC, id DESC").
			Take(&last).Error
		switch {
		case err == nil:
			if createdAt.Before(last.CreatedAt) {
				createdAt = last.CreatedAt
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("query latest transcript entry failed: %w", err)
		}

		entry.ID = 0
		entry.CreatedAt = createdAt
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("create transcript entry failed: %w", err)
		}
		return nil
	})
	return err
}

// ListLatest returns up to limit entries, newest first.
func (r *TranscriptRepository) ListLatest(ctx context.Context, userID uint, limit int) ([]model.TranscriptEntry, error) {
	if limit <= 0 {
		return []model.TranscriptEntry{}, nil
	}

	var entries []model.TranscriptEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list latest transcript entries failed: %w", err)
	}
	return entries, nil
}

// ListAll returns the full transcript, oldest first.
func (r *TranscriptRepository) ListAll(ctx context.Context, userID uint) ([]model.TranscriptEntry, error) {
	var entries []model.TranscriptEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list transcript entries failed: %w", err)
	}
	return entries, nil
}

func (r *TranscriptRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.TranscriptEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete transcript entries failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
