package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
)

func TestGetOrCreateConversationIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	first, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, bob.ID, first.Participant.ID)

	// Same pair from the other side resolves to the same thread.
	second, err := env.chat.GetOrCreateConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, alice.ID, second.Participant.ID)

	var count int64
	require.NoError(t, env.db.Model(&models.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGetOrCreateConversationLosesCreateRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	// A rival request inserts the conversation between our lookup miss and our
	// create, forcing the unique pair key violation and the reload path.
	var rival models.Conversation
	var fired bool
	err := env.db.Callback().Create().Before("gorm:begin_transaction").
		Register("conversation_conflict", func(tx *gorm.DB) {
			if fired || tx.Statement.Table != "conversations" {
				return
			}
			fired = true
			rival = models.NewConversation(alice.ID, bob.ID)
			if err := env.db.Create(&rival).Error; err != nil {
				tx.AddError(err)
			}
		})
	require.NoError(t, err)

	entry, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, rival.ID, entry.ID)

	var count int64
	require.NoError(t, env.db.Model(&models.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGetOrCreateConversationRejectsSelf(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	_, err := env.chat.GetOrCreateConversation(context.Background(), alice.ID, alice.ID)
	require.ErrorIs(t, err, ErrSelfConversation)
}

func TestGetOrCreateConversationUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	_, err := env.chat.GetOrCreateConversation(context.Background(), alice.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSendMessageUpdatesConversationState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	message, err := env.chat.SendMessage(ctx, alice.ID, conversation.ID, "hello bob")
	require.NoError(t, err)
	require.Equal(t, alice.ID, message.SenderID)
	require.False(t, message.Read)

	var stored models.Conversation
	require.NoError(t, env.db.First(&stored, "id = ?", conversation.ID).Error)
	require.NotNil(t, stored.LastMessageID)
	require.Equal(t, message.ID, *stored.LastMessageID)
	require.Equal(t, 1, stored.UnreadFor(bob.ID))
	require.Equal(t, 0, stored.UnreadFor(alice.ID))

	notifications := env.notificationsFor(t, bob.ID)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotificationMessage, notifications[0].Type)

	events := env.broadcaster.eventsFor(realtime.StreamMessages, bob.ID)
	require.Len(t, events, 1)
	require.Equal(t, realtime.EventNewMessage, events[0].Message.Event)
	// The sender gets no push for their own message.
	require.Empty(t, env.broadcaster.eventsFor(realtime.StreamMessages, alice.ID))
}

func TestSendMessageContentBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.chat.SendMessage(ctx, alice.ID, conversation.ID, "   ")
	require.ErrorIs(t, err, ErrContentInvalid)

	_, err = env.chat.SendMessage(ctx, alice.ID, conversation.ID, strings.Repeat("x", models.MaxMessageLength+1))
	require.ErrorIs(t, err, ErrContentInvalid)

	_, err = env.chat.SendMessage(ctx, alice.ID, conversation.ID, strings.Repeat("x", models.MaxMessageLength))
	require.NoError(t, err)
}

func TestSendMessageSurvivesFanoutFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Break the notification store; the send must still commit.
	require.NoError(t, env.db.Migrator().DropTable(&models.Notification{}))

	message, err := env.chat.SendMessage(ctx, alice.ID, conversation.ID, "hello")
	require.NoError(t, err)

	var stored models.Message
	require.NoError(t, env.db.First(&stored, "id = ?", message.ID).Error)

	// The realtime push still goes out.
	require.Len(t, env.broadcaster.eventsFor(realtime.StreamMessages, bob.ID), 1)
}

func TestSendMessageRequiresParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.chat.SendMessage(ctx, carol.ID, conversation.ID, "let me in")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.chat.SendMessage(ctx, alice.ID, "00000000-0000-0000-0000-000000000000", "hello")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListMessagesMarksIncomingRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.chat.SendMessage(ctx, alice.ID, conversation.ID, "first")
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, alice.ID, conversation.ID, "second")
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, bob.ID, conversation.ID, "reply")
	require.NoError(t, err)

	messages, total, err := env.chat.ListMessages(ctx, bob.ID, conversation.ID, 1, 50)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, messages, 3)
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "reply", messages[2].Content)

	// Bob's view flips Alice's messages to read and clears his counter.
	var stored models.Conversation
	require.NoError(t, env.db.First(&stored, "id = ?", conversation.ID).Error)
	require.Equal(t, 0, stored.UnreadFor(bob.ID))
	require.Equal(t, 1, stored.UnreadFor(alice.ID))

	var unreadFromAlice int64
	require.NoError(t, env.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id = ? AND read = ?", conversation.ID, alice.ID, false).
		Count(&unreadFromAlice).Error)
	require.EqualValues(t, 0, unreadFromAlice)

	// Bob's own message to Alice stays unread until she lists.
	var unreadFromBob int64
	require.NoError(t, env.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id = ? AND read = ?", conversation.ID, bob.ID, false).
		Count(&unreadFromBob).Error)
	require.EqualValues(t, 1, unreadFromBob)
}

func TestListMessagesRequiresParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = env.chat.ListMessages(ctx, carol.ID, conversation.ID, 1, 50)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	withBob, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	withCarol, err := env.chat.GetOrCreateConversation(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	_, err = env.chat.SendMessage(ctx, carol.ID, withCarol.ID, "ping")
	require.NoError(t, err)

	entries, total, err := env.chat.ListConversations(ctx, alice.ID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	require.Equal(t, withCarol.ID, entries[0].ID)
	require.Equal(t, 1, entries[0].UnreadCount)
	require.NotNil(t, entries[0].LastMessage)
	require.Equal(t, withBob.ID, entries[1].ID)
	require.Equal(t, 0, entries[1].UnreadCount)
}

func TestDeleteMessageRepointsLastMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	first, err := env.chat.SendMessage(ctx, alice.ID, conversation.ID, "first")
	require.NoError(t, err)
	second, err := env.chat.SendMessage(ctx, alice.ID, conversation.ID, "second")
	require.NoError(t, err)

	require.NoError(t, env.chat.DeleteMessage(ctx, alice.ID, second.ID))

	var stored models.Conversation
	require.NoError(t, env.db.First(&stored, "id = ?", conversation.ID).Error)
	require.NotNil(t, stored.LastMessageID)
	require.Equal(t, first.ID, *stored.LastMessageID)

	require.NoError(t, env.chat.DeleteMessage(ctx, alice.ID, first.ID))
	require.NoError(t, env.db.First(&stored, "id = ?", conversation.ID).Error)
	require.Nil(t, stored.LastMessageID)
}

func TestDeleteMessageOnlySender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	message, err := env.chat.SendMessage(ctx, alice.ID, conversation.ID, "mine")
	require.NoError(t, err)

	require.ErrorIs(t, env.chat.DeleteMessage(ctx, bob.ID, message.ID), apperrors.ErrForbidden)
	require.ErrorIs(t, env.chat.DeleteMessage(ctx, alice.ID, "00000000-0000-0000-0000-000000000000"), apperrors.ErrNotFound)
}

func TestMarkConversationRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conversation, err := env.chat.GetOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, alice.ID, conversation.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, env.chat.MarkConversationRead(ctx, bob.ID, conversation.ID))

	var stored models.Conversation
	require.NoError(t, env.db.First(&stored, "id = ?", conversation.ID).Error)
	require.Equal(t, 0, stored.UnreadFor(bob.ID))
}
