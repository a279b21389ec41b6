package database

import (
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Connection{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
	)
}
