package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/logger"
	"github.com/reboundhq/rebound/pkg/metrics"
)

// NotificationService persists per-user notifications and pushes them to
// connected realtime sessions.
type NotificationService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	log         *zap.Logger
}

// NewNotificationService constructs the notification service. The broadcaster
// may be nil, in which case realtime pushes are skipped.
func NewNotificationService(db *gorm.DB, broadcaster Broadcaster) (*NotificationService, error) {
	if db == nil {
		return nil, fmt.Errorf("notification service requires database handle")
	}
	return &NotificationService{
		db:          db,
		broadcaster: broadcaster,
		log:         logger.WithModule("services.notifications"),
	}, nil
}

// NotifyInput describes a notification to record and push.
type NotifyInput struct {
	RecipientID string
	Type        string
	ActorID     string
	EntityType  string
	EntityID    string
	Message     string
	Metadata    map[string]any
}

// Notify writes the durable notification row and pushes a realtime event to the
// recipient. The push is fire-and-forget; the row is the source of truth.
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	input.RecipientID = strings.TrimSpace(input.RecipientID)
	input.Type = strings.TrimSpace(input.Type)
	if input.RecipientID == "" || input.Type == "" {
		return nil, apperrors.NewBadRequest("notification recipient and type are required")
	}

	notification := models.Notification{
		RecipientID: input.RecipientID,
		Type:        input.Type,
		EntityType:  strings.TrimSpace(input.EntityType),
		EntityID:    strings.TrimSpace(input.EntityID),
		Message:     strings.TrimSpace(input.Message),
	}
	if actorID := strings.TrimSpace(input.ActorID); actorID != "" {
		notification.ActorID = &actorID
	}
	if len(input.Metadata) > 0 {
		payload, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode notification metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(payload)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToUser(realtime.StreamNotifications, notification.RecipientID, realtime.Message{
			Event: realtime.EventNotificationNew,
			Data:  notification,
		})
	}

	return &notification, nil
}

// NotifyBestEffort runs Notify and swallows failures. Side-effect notifications
// must never fail the mutation that triggered them.
func (s *NotificationService) NotifyBestEffort(ctx context.Context, input NotifyInput) {
	if _, err := s.Notify(ctx, input); err != nil {
		metrics.NotificationFanout.WithLabelValues(input.Type, "error").Inc()
		s.log.Error("notification fan-out failed",
			zap.String("type", input.Type),
			zap.String("recipient_id", input.RecipientID),
			zap.Error(err))
		return
	}
	metrics.NotificationFanout.WithLabelValues(input.Type, "ok").Inc()
}

// ListNotificationsInput filters and paginates a recipient's notifications.
type ListNotificationsInput struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	PageSize    int
}

// List returns the recipient's notifications newest first, plus the total and
// unread counts for envelope metadata.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) ([]models.Notification, int64, int64, error) {
	ctx = ensureContext(ctx)

	page, pageSize := normalizePage(input.Page, input.PageSize)

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ?", input.RecipientID)
	if input.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("count notifications: %w", err)
	}

	var unread int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", input.RecipientID, false).
		Count(&unread).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("count unread notifications: %w", err)
	}

	var notifications []models.Notification
	if err := query.
		Preload("Actor").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, total, unread, nil
}

// MarkRead flips a single notification to read. Only the recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, callerID, notificationID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("load notification: %w", err)
	}
	if notification.RecipientID != callerID {
		return nil, apperrors.ErrForbidden
	}

	if !notification.Read {
		now := time.Now().UTC()
		notification.Read = true
		notification.ReadAt = &now
		if err := s.db.WithContext(ctx).
			Model(&notification).
			Updates(map[string]any{"read": true, "read_at": now}).Error; err != nil {
			return nil, fmt.Errorf("mark notification read: %w", err)
		}
	}
	return &notification, nil
}

// MarkAllRead flips every unread notification for the recipient and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Updates(map[string]any{"read": true, "read_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes a notification owned by the caller.
func (s *NotificationService) Delete(ctx context.Context, callerID, notificationID string) error {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("load notification: %w", err)
	}
	if notification.RecipientID != callerID {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&notification).Error; err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// DeleteReadOlderThan purges read notifications past the retention window. The
// maintenance cleaner calls it on a schedule.
func (s *NotificationService) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
