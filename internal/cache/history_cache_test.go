package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherchat/internal/model"
)

func newTestCache(t *testing.T) (*HistoryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryCache(client, time.Minute, 5*time.Second), mr
}

func TestHistoryCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, hit, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	entries := []model.TranscriptEntry{
		{ID: 1, UserID: 1, Role: model.RoleUser, Message: "hello"},
		{ID: 2, UserID: 1, Role: model.RoleAssistant, Message: "hi there"},
	}
	require.NoError(t, c.SetHistory(ctx, 1, entries))

	got, hit, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "hi there", got[1].Message)

	require.NoError(t, c.DeleteHistory(ctx, 1))
	_, hit, err = c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestHistoryCache_DirtyMarkerExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.MarkDirty(ctx, 3))
	dirty, err := c.IsDirty(ctx, 3)
	require.NoError(t, err)
	assert.True(t, dirty)

	other, err := c.IsDirty(ctx, 4)
	require.NoError(t, err)
	assert.False(t, other)

	mr.FastForward(6 * time.Second)
	dirty, err = c.IsDirty(ctx, 3)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestHistoryCache_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("chat:history:9", "not-json"))

	_, hit, err := c.GetHistory(ctx, 9)
	require.Error(t, err)
	assert.False(t, hit)
}

func TestHistoryCache_FailedDropKeepsUserOffCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	old := []model.TranscriptEntry{{ID: 1, UserID: 1, Role: model.RoleUser, Message: "hello"}}
	require.NoError(t, c.SetHistory(ctx, 1, old))

	mr.SetError("ERR redis unavailable")
	require.Error(t, c.BeginWrite(ctx, 1))
	require.Error(t, c.EndWrite(ctx, 1))
	mr.SetError("")

	// The old copy is still in Redis but must not be served.
	assert.True(t, mr.Exists("chat:history:1"))
	_, hit, err := c.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Fill(ctx, 1, nil))
	assert.False(t, mr.Exists("chat:history:1"))

	fresh := []model.TranscriptEntry{{ID: 2, UserID: 1, Role: model.RoleUser, Message: "again"}}
	require.NoError(t, c.Fill(ctx, 1, fresh))
	got, hit, err := c.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "again", got[0].Message)
}

func TestHistoryCache_SuccessfulDropClearsStaleUser(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	mr.SetError("ERR redis unavailable")
	require.Error(t, c.BeginWrite(ctx, 2))
	mr.SetError("")
	require.NoError(t, c.EndWrite(ctx, 2))
	mr.FastForward(6 * time.Second)

	require.NoError(t, c.Fill(ctx, 2, []model.TranscriptEntry{{ID: 5, UserID: 2, Message: "kept"}}))
	_, hit, err := c.Load(ctx, 2)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestHistoryCache_NoFillWhileDirty(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.BeginWrite(ctx, 3))
	require.NoError(t, c.Fill(ctx, 3, []model.TranscriptEntry{{ID: 1, UserID: 3, Message: "racing"}}))
	assert.False(t, mr.Exists("chat:history:3"))
}
