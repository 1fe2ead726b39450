package sqlite

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"gopherchat/internal/platform/database"
)

// New opens a SQLite database at path. SQLite serializes writers, so the pool
// is held to a single connection; this also keeps ":memory:" databases shared.
func New(ctx context.Context, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), database.GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}
	if err := database.Tune(ctx, db, 1, 1); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return db, nil
}
