package repository

import (
	"fmt"

	"gorm.io/gorm"

	"gopherchat/internal/model"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.TranscriptEntry{}, &model.AuditEvent{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
