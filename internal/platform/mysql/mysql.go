package mysql

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"gopherchat/internal/platform/database"
)

func New(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), database.GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open mysql failed: %w", err)
	}
	if err := database.Tune(ctx, db, 10, 50); err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return db, nil
}
