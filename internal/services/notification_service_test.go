package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
)

func TestNotifyPersistsAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: bob.ID,
		Type:        models.NotificationMention,
		ActorID:     alice.ID,
		EntityType:  "post",
		EntityID:    "post-1",
		Message:     "mentioned you",
		Metadata:    map[string]any{"post_title": "launch day"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, notification.ID)
	require.False(t, notification.Read)

	events := env.broadcaster.eventsFor(realtime.StreamNotifications, bob.ID)
	require.Len(t, events, 1)
	require.Equal(t, realtime.EventNotificationNew, events[0].Message.Event)
}

func TestNotifyWithoutActor(t *testing.T) {
	env := newTestEnv(t)
	bob := env.createUser(t, "bob")

	notification, err := env.notifications.Notify(context.Background(), NotifyInput{
		RecipientID: bob.ID,
		Type:        models.NotificationPitchStatus,
		Message:     "your pitch moved forward",
	})
	require.NoError(t, err)
	require.Nil(t, notification.ActorID)

	var stored models.Notification
	require.NoError(t, env.db.First(&stored, "id = ?", notification.ID).Error)
	require.Nil(t, stored.ActorID)
}

func TestNotifyBestEffortSwallowsFailure(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	// Break the store; the call must neither panic nor push a phantom event.
	require.NoError(t, env.db.Migrator().DropTable(&models.Notification{}))

	env.notifications.NotifyBestEffort(context.Background(), NotifyInput{
		RecipientID: bob.ID,
		Type:        models.NotificationMessage,
		ActorID:     alice.ID,
	})
	require.Empty(t, env.broadcaster.eventsFor(realtime.StreamNotifications, bob.ID))
}

func TestNotifyRequiresRecipientAndType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notifications.Notify(context.Background(), NotifyInput{Type: models.NotificationMessage})
	require.Error(t, err)
	_, err = env.notifications.Notify(context.Background(), NotifyInput{RecipientID: "user-1"})
	require.Error(t, err)
}

func TestListNotificationsFiltersAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	for i := 0; i < 3; i++ {
		_, err := env.notifications.Notify(ctx, NotifyInput{
			RecipientID: bob.ID,
			Type:        models.NotificationPostLike,
			ActorID:     alice.ID,
		})
		require.NoError(t, err)
	}

	first, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: bob.ID,
		Type:        models.NotificationPostComment,
		ActorID:     alice.ID,
	})
	require.NoError(t, err)
	_, err = env.notifications.MarkRead(ctx, bob.ID, first.ID)
	require.NoError(t, err)

	all, total, unread, err := env.notifications.List(ctx, ListNotificationsInput{RecipientID: bob.ID})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.EqualValues(t, 3, unread)
	require.Len(t, all, 4)

	unreadOnly, total, _, err := env.notifications.List(ctx, ListNotificationsInput{RecipientID: bob.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, unreadOnly, 3)
	for _, notification := range unreadOnly {
		require.False(t, notification.Read)
	}
}

func TestMarkReadOwnershipAndIdempotence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: bob.ID,
		Type:        models.NotificationMessage,
		ActorID:     alice.ID,
	})
	require.NoError(t, err)

	_, err = env.notifications.MarkRead(ctx, alice.ID, notification.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	read, err := env.notifications.MarkRead(ctx, bob.ID, notification.ID)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	again, err := env.notifications.MarkRead(ctx, bob.ID, notification.ID)
	require.NoError(t, err)
	require.True(t, again.Read)

	_, err = env.notifications.MarkRead(ctx, bob.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	for i := 0; i < 3; i++ {
		_, err := env.notifications.Notify(ctx, NotifyInput{
			RecipientID: bob.ID,
			Type:        models.NotificationPostLike,
			ActorID:     alice.ID,
		})
		require.NoError(t, err)
	}

	count, err := env.notifications.MarkAllRead(ctx, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	_, _, unread, err := env.notifications.List(ctx, ListNotificationsInput{RecipientID: bob.ID})
	require.NoError(t, err)
	require.EqualValues(t, 0, unread)
}

func TestDeleteNotificationOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: bob.ID,
		Type:        models.NotificationMessage,
		ActorID:     alice.ID,
	})
	require.NoError(t, err)

	require.ErrorIs(t, env.notifications.Delete(ctx, alice.ID, notification.ID), apperrors.ErrForbidden)
	require.NoError(t, env.notifications.Delete(ctx, bob.ID, notification.ID))
	require.ErrorIs(t, env.notifications.Delete(ctx, bob.ID, notification.ID), apperrors.ErrNotFound)
}

func TestDeleteReadOlderThanKeepsUnread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	oldRead, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: bob.ID, Type: models.NotificationPostLike, ActorID: alice.ID,
	})
	require.NoError(t, err)
	_, err = env.notifications.MarkRead(ctx, bob.ID, oldRead.ID)
	require.NoError(t, err)

	oldUnread, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: bob.ID, Type: models.NotificationPostLike, ActorID: alice.ID,
	})
	require.NoError(t, err)

	// Age both rows past the retention cutoff.
	past := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("id IN ?", []string{oldRead.ID, oldUnread.ID}).
		UpdateColumn("created_at", past).Error)

	purged, err := env.notifications.DeleteReadOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	remaining := env.notificationsFor(t, bob.ID)
	require.Len(t, remaining, 1)
	require.Equal(t, oldUnread.ID, remaining[0].ID)
}
