package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/logger"
	"github.com/reboundhq/rebound/pkg/metrics"
)

// ChatService manages two-party conversations and their messages.
type ChatService struct {
	db            *gorm.DB
	notifications *NotificationService
	broadcaster   Broadcaster
	log           *zap.Logger
}

// NewChatService constructs the chat service.
func NewChatService(db *gorm.DB, notifications *NotificationService, broadcaster Broadcaster) (*ChatService, error) {
	if db == nil {
		return nil, fmt.Errorf("chat service requires database handle")
	}
	if notifications == nil {
		return nil, fmt.Errorf("chat service requires notification service")
	}
	return &ChatService{
		db:            db,
		notifications: notifications,
		broadcaster:   broadcaster,
		log:           logger.WithModule("services.chat"),
	}, nil
}

// ConversationEntry is a conversation shaped for one participant: the other
// user, the latest message, and the caller's unread count.
type ConversationEntry struct {
	ID          string               `json:"id"`
	Participant models.PublicProfile `json:"participant"`
	LastMessage *models.Message      `json:"last_message,omitempty"`
	UnreadCount int                  `json:"unread_count"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// GetOrCreateConversation returns the single conversation between the caller
// and the other user, creating it on first contact. Creation is idempotent:
// concurrent first contact resolves through the unique pair key.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, callerID, otherID string) (*ConversationEntry, error) {
	ctx = ensureContext(ctx)

	callerID = strings.TrimSpace(callerID)
	otherID = strings.TrimSpace(otherID)
	if callerID == "" || otherID == "" {
		return nil, apperrors.NewBadRequest("both participants are required")
	}
	if callerID == otherID {
		return nil, ErrSelfConversation
	}

	exists, err := userExists(ctx, s.db, otherID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	pairKey := models.PairKey(callerID, otherID)

	conversation, err := s.loadByPairKey(ctx, pairKey)
	if err == nil {
		return s.entryFor(conversation, callerID), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	created := models.NewConversation(callerID, otherID)
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Another request created the thread first; use theirs.
			conversation, err = s.loadByPairKey(ctx, pairKey)
			if err != nil {
				return nil, fmt.Errorf("load conversation after conflict: %w", err)
			}
			return s.entryFor(conversation, callerID), nil
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	conversation, err = s.loadByPairKey(ctx, pairKey)
	if err != nil {
		return nil, fmt.Errorf("reload conversation: %w", err)
	}
	return s.entryFor(conversation, callerID), nil
}

func (s *ChatService) loadByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		Preload("ParticipantOne").
		Preload("ParticipantTwo").
		Preload("LastMessage").
		First(&conversation, "pair_key = ?", pairKey).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (s *ChatService) entryFor(conversation *models.Conversation, callerID string) *ConversationEntry {
	entry := &ConversationEntry{
		ID:          conversation.ID,
		LastMessage: conversation.LastMessage,
		UnreadCount: conversation.UnreadFor(callerID),
		UpdatedAt:   conversation.UpdatedAt,
	}

	other := conversation.ParticipantTwo
	if conversation.ParticipantTwoID == callerID {
		other = conversation.ParticipantOne
	}
	if other != nil {
		entry.Participant = other.Profile()
	}
	return entry
}

// ListConversations returns the caller's conversations, most recently active first.
func (s *ChatService) ListConversations(ctx context.Context, callerID string, page, pageSize int) ([]ConversationEntry, int64, error) {
	ctx = ensureContext(ctx)

	page, pageSize = normalizePage(page, pageSize)

	query := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("participant_one_id = ? OR participant_two_id = ?", callerID, callerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	var conversations []models.Conversation
	if err := query.
		Preload("ParticipantOne").
		Preload("ParticipantTwo").
		Preload("LastMessage").
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&conversations).Error; err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}

	entries := make([]ConversationEntry, 0, len(conversations))
	for i := range conversations {
		entries = append(entries, *s.entryFor(&conversations[i], callerID))
	}
	return entries, total, nil
}

// SendMessage appends a message to a conversation the caller participates in.
// The recipient's unread counter is incremented atomically in SQL so concurrent
// sends never lose an increment.
func (s *ChatService) SendMessage(ctx context.Context, callerID, conversationID, content string) (*models.Message, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, ErrContentInvalid
	}

	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !conversation.HasParticipant(callerID) {
		return nil, apperrors.ErrForbidden
	}

	recipientID := conversation.OtherParticipant(callerID)

	message := models.Message{
		ConversationID: conversation.ID,
		SenderID:       callerID,
		Content:        content,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		unreadColumn := conversation.UnreadColumn(recipientID)
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conversation.ID).
			Updates(map[string]any{
				"last_message_id": message.ID,
				unreadColumn:      gorm.Expr(unreadColumn+" + ?", 1),
			}).Error; err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()

	s.notifications.NotifyBestEffort(ctx, NotifyInput{
		RecipientID: recipientID,
		Type:        models.NotificationMessage,
		ActorID:     callerID,
		EntityType:  "conversation",
		EntityID:    conversation.ID,
		Message:     "sent you a message",
	})
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToUser(realtime.StreamMessages, recipientID, realtime.Message{
			Event: realtime.EventNewMessage,
			Data: map[string]any{
				"conversation_id": conversation.ID,
				"message":         message,
			},
		})
	}

	return &message, nil
}

// ListMessages returns a page of the conversation's messages in chronological
// order. Listing doubles as reading: every message from the other participant
// is flipped to read and the caller's unread counter is reset.
func (s *ChatService) ListMessages(ctx context.Context, callerID, conversationID string, page, pageSize int) ([]models.Message, int64, error) {
	ctx = ensureContext(ctx)

	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.ErrNotFound
		}
		return nil, 0, fmt.Errorf("load conversation: %w", err)
	}
	if !conversation.HasParticipant(callerID) {
		return nil, 0, apperrors.ErrForbidden
	}

	page, pageSize = normalizePage(page, pageSize)

	query := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ?", conversation.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	var messages []models.Message
	if err := query.
		Preload("Sender").
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	if err := s.markConversationRead(ctx, &conversation, callerID); err != nil {
		s.log.Error("mark conversation read failed",
			zap.String("conversation_id", conversation.ID), zap.Error(err))
	}

	return messages, total, nil
}

// MarkConversationRead flips the caller's incoming messages to read without
// fetching them.
func (s *ChatService) MarkConversationRead(ctx context.Context, callerID, conversationID string) error {
	ctx = ensureContext(ctx)

	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("load conversation: %w", err)
	}
	if !conversation.HasParticipant(callerID) {
		return apperrors.ErrForbidden
	}
	return s.markConversationRead(ctx, &conversation, callerID)
}

func (s *ChatService) markConversationRead(ctx context.Context, conversation *models.Conversation, callerID string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversation.ID, callerID, false).
		UpdateColumn("read", true).Error; err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	// UpdateColumn so reading does not bump the conversation's recency.
	if err := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversation.ID).
		UpdateColumn(conversation.UnreadColumn(callerID), 0).Error; err != nil {
		return fmt.Errorf("reset unread counter: %w", err)
	}
	return nil
}

// DeleteMessage removes a message authored by the caller. If it was the
// conversation's latest message, the pointer is moved to the newest survivor.
func (s *ChatService) DeleteMessage(ctx context.Context, callerID, messageID string) error {
	ctx = ensureContext(ctx)

	var message models.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("load message: %w", err)
	}
	if message.SenderID != callerID {
		return apperrors.ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		loadErr := tx.First(&conversation, "id = ?", message.ConversationID).Error
		if loadErr != nil && !errors.Is(loadErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load conversation: %w", loadErr)
		}

		// Repoint before deleting so last_message_id never dangles under the
		// foreign key.
		if loadErr == nil && conversation.LastMessageID != nil && *conversation.LastMessageID == message.ID {
			var lastID *string
			var newest models.Message
			err := tx.Where("conversation_id = ? AND id <> ?", conversation.ID, message.ID).
				Order("created_at DESC").
				First(&newest).Error
			switch {
			case err == nil:
				lastID = &newest.ID
			case errors.Is(err, gorm.ErrRecordNotFound):
				lastID = nil
			default:
				return fmt.Errorf("find newest message: %w", err)
			}

			if err := tx.Model(&models.Conversation{}).
				Where("id = ?", conversation.ID).
				UpdateColumn("last_message_id", lastID).Error; err != nil {
				return fmt.Errorf("repoint last message: %w", err)
			}
		}

		if err := tx.Delete(&message).Error; err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return nil
	})
}
