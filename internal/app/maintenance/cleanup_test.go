package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reboundhq/rebound/internal/database/testutil"
	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/services"
)

func TestRunNotificationCleanup(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	notifications, err := services.NewNotificationService(db, nil)
	require.NoError(t, err)

	recipient := models.User{Username: "ada", Email: "ada@example.com", Password: "x"}
	require.NoError(t, db.Create(&recipient).Error)

	ctx := context.Background()
	oldRead, err := notifications.Notify(ctx, services.NotifyInput{
		RecipientID: recipient.ID,
		Type:        models.NotificationPostLike,
	})
	require.NoError(t, err)
	_, err = notifications.MarkRead(ctx, recipient.ID, oldRead.ID)
	require.NoError(t, err)

	fresh, err := notifications.Notify(ctx, services.NotifyInput{
		RecipientID: recipient.ID,
		Type:        models.NotificationPostComment,
	})
	require.NoError(t, err)

	// Age the read notification past the retention window.
	require.NoError(t, db.Model(&models.Notification{}).
		Where("id = ?", oldRead.ID).
		UpdateColumn("created_at", time.Now().UTC().AddDate(0, 0, -120)).Error)

	cleaner, err := NewCleaner(notifications, WithRetentionDays(90))
	require.NoError(t, err)

	purged, err := cleaner.RunNotificationCleanup(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, fresh.ID, remaining[0].ID)
}

func TestCleanerDisabledRetention(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	notifications, err := services.NewNotificationService(db, nil)
	require.NoError(t, err)

	cleaner, err := NewCleaner(notifications, WithRetentionDays(0))
	require.NoError(t, err)
	require.NoError(t, cleaner.Start())
}
