package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherchat/internal/model"
)

// HistoryCache keeps a copy of each user's full transcript in Redis.
//
// Writers call BeginWrite before touching the database and EndWrite after it.
// Readers never fill the copy while the dirty marker is set. When Redis fails
// during either step the user is remembered as stale in this process, and
// Load misses for them until a later delete of the copy succeeds.
type HistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration

	mu    sync.Mutex
	stale map[uint]struct{}
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
		stale:          make(map[uint]struct{}),
	}
}

// BeginWrite sets the dirty marker for userID.
func (c *HistoryCache) BeginWrite(ctx context.Context, userID uint) error {
	if err := c.MarkDirty(ctx, userID); err != nil {
		c.markStale(userID)
		return err
	}
	return nil
}

// EndWrite drops the cached copy once the database write is done.
func (c *HistoryCache) EndWrite(ctx context.Context, userID uint) error {
	if err := c.DeleteHistory(ctx, userID); err != nil {
		c.markStale(userID)
		return err
	}
	c.clearStale(userID)
	return nil
}

// Load returns the cached transcript when it can be trusted.
func (c *HistoryCache) Load(ctx context.Context, userID uint) ([]model.TranscriptEntry, bool, error) {
	if c.isStale(userID) {
		return nil, false, nil
	}
	dirty, err := c.IsDirty(ctx, userID)
	if err != nil || dirty {
		return nil, false, err
	}
	return c.GetHistory(ctx, userID)
}

// Fill stores entries read from the database. For a stale user it only
// retries the delete, so the next read fills from a clean slate.
func (c *HistoryCache) Fill(ctx context.Context, userID uint, entries []model.TranscriptEntry) error {
	if c.isStale(userID) {
		if err := c.DeleteHistory(ctx, userID); err != nil {
			return err
		}
		c.clearStale(userID)
		return nil
	}
	dirty, err := c.IsDirty(ctx, userID)
	if err != nil || dirty {
		return err
	}
	return c.SetHistory(ctx, userID, entries)
}

func (c *HistoryCache) GetHistory(ctx context.Context, userID uint) ([]model.TranscriptEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(userID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var entries []model.TranscriptEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return entries, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, userID uint, entries []model.TranscriptEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(userID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, c.historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, userID uint) error {
	if err := c.client.Set(ctx, c.dirtyKey(userID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, userID uint) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *HistoryCache) markStale(userID uint) {
	c.mu.Lock()
	c.stale[userID] = struct{}{}
	c.mu.Unlock()
}

func (c *HistoryCache) clearStale(userID uint) {
	c.mu.Lock()
	delete(c.stale, userID)
	c.mu.Unlock()
}

func (c *HistoryCache) isStale(userID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[userID]
	return ok
}

func (c *HistoryCache) historyKey(userID uint) string {
	return fmt.Sprintf("chat:history:%d", userID)
}

func (c *HistoryCache) dirtyKey(userID uint) string {
	return fmt.Sprintf("chat:history:dirty:%d", userID)
}
