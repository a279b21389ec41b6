package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/internal/realtime"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/logger"
)

// ConnectionService manages the mutual-connection graph: requests, responses,
// removals, and suggestion queries.
type ConnectionService struct {
	db            *gorm.DB
	notifications *NotificationService
	broadcaster   Broadcaster
	log           *zap.Logger
}

// NewConnectionService constructs the connection service.
func NewConnectionService(db *gorm.DB, notifications *NotificationService, broadcaster Broadcaster) (*ConnectionService, error) {
	if db == nil {
		return nil, fmt.Errorf("connection service requires database handle")
	}
	if notifications == nil {
		return nil, fmt.Errorf("connection service requires notification service")
	}
	return &ConnectionService{
		db:            db,
		notifications: notifications,
		broadcaster:   broadcaster,
		log:           logger.WithModule("services.connections"),
	}, nil
}

// SendRequestInput describes a new connection request.
type SendRequestInput struct {
	RequesterID string
	RecipientID string
	Message     string
}

// SendRequest creates a pending connection request. At most one relationship
// row exists per unordered user pair; a previously rejected row is reopened as
// a fresh pending request in the new direction.
func (s *ConnectionService) SendRequest(ctx context.Context, input SendRequestInput) (*models.Connection, error) {
	ctx = ensureContext(ctx)

	requesterID := strings.TrimSpace(input.RequesterID)
	recipientID := strings.TrimSpace(input.RecipientID)
	if requesterID == "" || recipientID == "" {
		return nil, apperrors.NewBadRequest("requester and recipient are required")
	}
	if requesterID == recipientID {
		return nil, ErrSelfConnection
	}

	exists, err := userExists(ctx, s.db, recipientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	message := strings.TrimSpace(input.Message)
	if len(message) > 500 {
		return nil, apperrors.NewBadRequest("connection message must be at most 500 characters")
	}

	var existing models.Connection
	err = s.db.WithContext(ctx).
		First(&existing, "pair_key = ?", models.PairKey(requesterID, recipientID)).Error
	switch {
	case err == nil:
		switch existing.Status {
		case models.ConnectionAccepted:
			return nil, ErrAlreadyConnected
		case models.ConnectionPending:
			return nil, ErrRequestPending
		case models.ConnectionRejected:
			// Reopen the row so the unique pair key is not a permanent block.
			existing.RequesterID = requesterID
			existing.RecipientID = recipientID
			existing.Status = models.ConnectionPending
			existing.Message = message
			if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
				return nil, fmt.Errorf("reopen connection request: %w", err)
			}
			s.notifyRequest(ctx, &existing)
			return &existing, nil
		default:
			return nil, ErrRequestPending
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No relationship yet; fall through to create.
	default:
		return nil, fmt.Errorf("load connection: %w", err)
	}

	connection := models.Connection{
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.ConnectionPending,
		Message:     message,
	}
	if err := s.db.WithContext(ctx).Create(&connection).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent request for the same pair.
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("create connection request: %w", err)
	}

	s.notifyRequest(ctx, &connection)
	return &connection, nil
}

func (s *ConnectionService) notifyRequest(ctx context.Context, connection *models.Connection) {
	s.notifications.NotifyBestEffort(ctx, NotifyInput{
		RecipientID: connection.RecipientID,
		Type:        models.NotificationConnectionRequest,
		ActorID:     connection.RequesterID,
		EntityType:  "connection",
		EntityID:    connection.ID,
		Message:     "sent you a connection request",
	})
}

// Respond accepts or rejects a pending request. Only the recipient may answer,
// and only while the request is still pending.
func (s *ConnectionService) Respond(ctx context.Context, callerID, connectionID string, accept bool) (*models.Connection, error) {
	ctx = ensureContext(ctx)

	var connection models.Connection
	if err := s.db.WithContext(ctx).First(&connection, "id = ?", connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("load connection: %w", err)
	}
	if connection.RecipientID != callerID {
		return nil, apperrors.ErrForbidden
	}
	if connection.Status != models.ConnectionPending {
		return nil, ErrInvalidConnectionStatus
	}

	status := models.ConnectionRejected
	if accept {
		status = models.ConnectionAccepted
	}

	// Guard against a concurrent answer: only flip rows still pending.
	result := s.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id = ? AND status = ?", connection.ID, models.ConnectionPending).
		Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("update connection status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvalidConnectionStatus
	}
	connection.Status = status
	connection.UpdatedAt = time.Now().UTC()

	// Rejections are silent: the requester is never told.
	if accept {
		s.notifications.NotifyBestEffort(ctx, NotifyInput{
			RecipientID: connection.RequesterID,
			Type:        models.NotificationConnectionAccepted,
			ActorID:     connection.RecipientID,
			EntityType:  "connection",
			EntityID:    connection.ID,
			Message:     "accepted your connection request",
		})
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToUser(realtime.StreamConnections, connection.RequesterID, realtime.Message{
				Event: realtime.EventConnectionAccepted,
				Data:  connection,
			})
		}
	}

	return &connection, nil
}

// Remove deletes the relationship row. Either side may remove it, whether it is
// an accepted connection or a request they want to withdraw. No notification
// is produced.
func (s *ConnectionService) Remove(ctx context.Context, callerID, connectionID string) error {
	ctx = ensureContext(ctx)

	var connection models.Connection
	if err := s.db.WithContext(ctx).First(&connection, "id = ?", connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("load connection: %w", err)
	}
	if !connection.Involves(callerID) {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&connection).Error; err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

// ConnectionEntry is an accepted connection shaped for the caller: the other
// participant plus when the connection was established.
type ConnectionEntry struct {
	ID          string               `json:"id"`
	User        models.PublicProfile `json:"user"`
	ConnectedAt time.Time            `json:"connected_at"`
}

// ListConnections returns the caller's accepted connections, most recent first.
func (s *ConnectionService) ListConnections(ctx context.Context, userID string, page, pageSize int) ([]ConnectionEntry, int64, error) {
	ctx = ensureContext(ctx)

	page, pageSize = normalizePage(page, pageSize)

	query := s.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("status = ? AND (requester_id = ? OR recipient_id = ?)", models.ConnectionAccepted, userID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count connections: %w", err)
	}

	var connections []models.Connection
	if err := query.
		Preload("Requester").
		Preload("Recipient").
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&connections).Error; err != nil {
		return nil, 0, fmt.Errorf("list connections: %w", err)
	}

	entries := make([]ConnectionEntry, 0, len(connections))
	for _, connection := range connections {
		other := connection.Recipient
		if connection.RecipientID == userID {
			other = connection.Requester
		}
		entry := ConnectionEntry{ID: connection.ID, ConnectedAt: connection.UpdatedAt}
		if other != nil {
			entry.User = other.Profile()
		}
		entries = append(entries, entry)
	}
	return entries, total, nil
}

// PendingRequest is an incoming request awaiting the caller's answer.
type PendingRequest struct {
	ID        string               `json:"id"`
	Requester models.PublicProfile `json:"requester"`
	Message   string               `json:"message,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// ListPending returns requests addressed to the caller, newest first.
func (s *ConnectionService) ListPending(ctx context.Context, userID string, page, pageSize int) ([]PendingRequest, int64, error) {
	ctx = ensureContext(ctx)

	page, pageSize = normalizePage(page, pageSize)

	query := s.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("recipient_id = ? AND status = ?", userID, models.ConnectionPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count pending requests: %w", err)
	}

	var connections []models.Connection
	if err := query.
		Preload("Requester").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&connections).Error; err != nil {
		return nil, 0, fmt.Errorf("list pending requests: %w", err)
	}

	requests := make([]PendingRequest, 0, len(connections))
	for _, connection := range connections {
		request := PendingRequest{
			ID:        connection.ID,
			Message:   connection.Message,
			CreatedAt: connection.CreatedAt,
		}
		if connection.Requester != nil {
			request.Requester = connection.Requester.Profile()
		}
		requests = append(requests, request)
	}
	return requests, total, nil
}

// Suggestions returns active users the caller has no relationship with: not
// connected, no request pending in either direction. Rejected pairs are
// excluded as well so a declined stranger does not keep resurfacing.
func (s *ConnectionService) Suggestions(ctx context.Context, userID string, limit int) ([]models.PublicProfile, error) {
	ctx = ensureContext(ctx)

	if limit < 1 || limit > maxPageSize {
		limit = 10
	}

	related := s.db.
		Model(&models.Connection{}).
		Select("CASE WHEN requester_id = ? THEN recipient_id ELSE requester_id END", userID).
		Where("requester_id = ? OR recipient_id = ?", userID, userID)

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("id <> ? AND is_active = ?", userID, true).
		Where("id NOT IN (?)", related).
		Order("created_at DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Profile())
	}
	return profiles, nil
}
