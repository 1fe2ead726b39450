package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gopherchat/internal/model"
	"gopherchat/internal/repository"
)

type TranscriptRepository interface {
	Create(ctx context.Context, entry *model.TranscriptEntry) error
	ListLatest(ctx context.Context, userID uint, limit int) ([]model.TranscriptEntry, error)
	ListAll(ctx context.Context, userID uint) ([]model.TranscriptEntry, error)
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)
}

// HistoryCache serves All. A failed BeginWrite or EndWrite must leave the
// cache unable to return the copy from before the write.
type HistoryCache interface {
	Load(ctx context.Context, userID uint) ([]model.TranscriptEntry, bool, error)
	Fill(ctx context.Context, userID uint, entries []model.TranscriptEntry) error
	BeginWrite(ctx context.Context, userID uint) error
	EndWrite(ctx context.Context, userID uint) error
}

// TranscriptStore appends and reads a user's ordered conversation. The cache
// is optional and only ever serves All.
type TranscriptStore struct {
	repo         TranscriptRepository
	historyCache HistoryCache
	publisher    EventPublisher
	logger       *slog.Logger
}

func NewTranscriptStore(repo TranscriptRepository, historyCache HistoryCache, publisher EventPublisher, logger *slog.Logger) *TranscriptStore {
	return &TranscriptStore{
		repo:         repo,
		historyCache: historyCache,
		publisher:    publisher,
		logger:       loggerOrDefault(logger),
	}
}

func (s *TranscriptStore) Append(ctx context.Context, userID uint, role, message string) error {
	if userID == 0 {
		return invalid("user is required")
	}
	if !model.ValidRole(role) {
		return invalid("role must be user or assistant")
	}
	if strings.TrimSpace(message) == "" {
		return invalid("message must not be empty")
	}

	s.beginWrite(ctx, userID)
	err := s.repo.Create(ctx, &model.TranscriptEntry{
		UserID:  userID,
		Role:    role,
		Message: message,
	})
	s.endWrite(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownUser) {
			return invalid("unknown user")
		}
		return storageError(err)
	}
	return nil
}

// Recent returns the last limit entries, oldest first.
func (s *TranscriptStore) Recent(ctx context.Context, userID uint, limit int) ([]model.TranscriptEntry, error) {
	if limit <= 0 {
		return []model.TranscriptEntry{}, nil
	}
	latest, err := s.repo.ListLatest(ctx, userID, limit)
	if err != nil {
		return nil, storageError(err)
	}
	for i, j := 0, len(latest)-1; i < j; i, j = i+1, j-1 {
		latest[i], latest[j] = latest[j], latest[i]
	}
	return latest, nil
}

func (s *TranscriptStore) All(ctx context.Context, userID uint) ([]model.TranscriptEntry, error) {
	if s.historyCache != nil {
		cached, hit, err := s.historyCache.Load(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "load cached history failed", "user_id", userID, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	entries, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	if s.historyCache != nil {
		if err := s.historyCache.Fill(ctx, userID, entries); err != nil {
			s.logger.WarnContext(ctx, "cache history failed", "user_id", userID, "error", err)
		}
	}
	return entries, nil
}

// Clear deletes every entry of the user. The user record is untouched.
func (s *TranscriptStore) Clear(ctx context.Context, userID uint) error {
	if userID == 0 {
		return invalid("user is required")
	}

	s.beginWrite(ctx, userID)
	deleted, err := s.repo.DeleteByUserID(ctx, userID)
	s.endWrite(ctx, userID)
	if err != nil {
		return storageError(err)
	}

	s.logger.InfoContext(ctx, "history cleared", "user_id", userID, "entries", deleted)
	publishEvent(ctx, s.publisher, s.logger, model.EventHistoryCleared, userID, "")
	return nil
}

func (s *TranscriptStore) beginWrite(ctx context.Context, userID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.BeginWrite(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "mark history dirty failed", "user_id", userID, "error", err)
	}
}

func (s *TranscriptStore) endWrite(ctx context.Context, userID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.EndWrite(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "drop cached history failed", "user_id", userID, "error", err)
	}
}
