package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gopherchat/internal/platform/database"
)

func New(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), database.GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres failed: %w", err)
	}
	if err := database.Tune(ctx, db, 10, 50); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return db, nil
}
