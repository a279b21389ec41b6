package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/database/testutil"
	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
)

type broadcastEvent struct {
	Stream  string
	UserID  string
	Message realtime.Message
}

// fakeBroadcaster records realtime pushes so tests can assert on them.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (f *fakeBroadcaster) BroadcastToUser(stream, userID string, message realtime.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{Stream: stream, UserID: userID, Message: message})
}

func (f *fakeBroadcaster) eventsFor(stream, userID string) []broadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []broadcastEvent
	for _, event := range f.events {
		if event.Stream == stream && event.UserID == userID {
			matched = append(matched, event)
		}
	}
	return matched
}

type testEnv struct {
	db            *gorm.DB
	broadcaster   *fakeBroadcaster
	users         *UserService
	connections   *ConnectionService
	chat          *ChatService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	broadcaster := &fakeBroadcaster{}

	notifications, err := NewNotificationService(db, broadcaster)
	require.NoError(t, err)
	connections, err := NewConnectionService(db, notifications, broadcaster)
	require.NoError(t, err)
	chat, err := NewChatService(db, notifications, broadcaster)
	require.NoError(t, err)
	users, err := NewUserService(db)
	require.NoError(t, err)

	return &testEnv{
		db:            db,
		broadcaster:   broadcaster,
		users:         users,
		connections:   connections,
		chat:          chat,
		notifications: notifications,
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := e.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) notificationsFor(t *testing.T, recipientID string) []models.Notification {
	t.Helper()

	var notifications []models.Notification
	require.NoError(t, e.db.
		Where("recipient_id = ?", recipientID).
		Order("created_at ASC").
		Find(&notifications).Error)
	return notifications
}
