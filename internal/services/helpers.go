package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
)

// Broadcaster publishes realtime events to a user's connected sessions. The
// websocket hub satisfies it in production; tests inject fakes.
type Broadcaster interface {
	BroadcastToUser(stream, userID string, message realtime.Message)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// userExists reports whether an active user with the supplied ID exists.
func userExists(ctx context.Context, db *gorm.DB, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// loadUser fetches a user by ID, mapping absence to ErrUserNotFound.
func loadUser(ctx context.Context, db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}
