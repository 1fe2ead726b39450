package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherchat/internal/model"
)

type memoryAuditRepo struct {
	events []model.AuditEvent
	err    error
}

func (r *memoryAuditRepo) Create(_ context.Context, event *model.AuditEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *event)
	return nil
}

func TestHandle_PersistsEvent(t *testing.T) {
	repo := &memoryAuditRepo{}
	w := NewAuditPersistWorker(nil, repo, "chat.events", nil)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	body, err := json.Marshal(model.Event{Type: model.EventTurnCompleted, UserID: 3, OccurredAt: at})
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), body))

	require.Len(t, repo.events, 1)
	assert.Equal(t, model.EventTurnCompleted, repo.events[0].Type)
	assert.EqualValues(t, 3, repo.events[0].UserID)
	assert.True(t, at.Equal(repo.events[0].OccurredAt))
}

func TestHandle_BadPayload(t *testing.T) {
	w := NewAuditPersistWorker(nil, &memoryAuditRepo{}, "chat.events", nil)

	require.ErrorIs(t, w.Handle(context.Background(), []byte("{not json")), errBadPayload)
	require.ErrorIs(t, w.Handle(context.Background(), []byte(`{"user_id":1}`)), errBadPayload)
}

func TestHandle_StorageError(t *testing.T) {
	w := NewAuditPersistWorker(nil, &memoryAuditRepo{err: errors.New("db down")}, "chat.events", nil)

	err := w.Handle(context.Background(), []byte(`{"type":"user.registered","user_id":1}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errBadPayload))
}

func TestClose_WithoutStart(t *testing.T) {
	w := NewAuditPersistWorker(nil, &memoryAuditRepo{}, "chat.events", nil)
	w.Close()
}
