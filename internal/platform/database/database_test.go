package database_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherchat/internal/model"
	"gopherchat/internal/platform/database"
	"gopherchat/internal/platform/sqlite"
	"gopherchat/internal/repository"
)

func captureDefaultLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	buf := captureDefaultLogger(t)
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, repository.Migrate(db))

	var user model.User
	err = db.Where("username = ?", "ghost").First(&user).Error
	require.Error(t, err)
	assert.NotContains(t, buf.String(), "record not found")

	err = db.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
	assert.Contains(t, buf.String(), "level=WARN")
}
