package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/reboundhq/rebound/pkg/errors"
)

// Domain errors surfaced by the social-graph services. Handlers render them
// through the shared response envelope.
var (
	ErrUserNotFound = apperrors.New(
		"users.not_found", "User not found", http.StatusNotFound)

	ErrSelfConnection = apperrors.New(
		"connections.self_request", "Cannot send a connection request to yourself", http.StatusBadRequest)
	ErrAlreadyConnected = apperrors.New(
		"connections.already_connected", "You are already connected with this user", http.StatusConflict)
	ErrRequestPending = apperrors.New(
		"connections.request_pending", "A connection request between you is already pending", http.StatusConflict)
	ErrInvalidConnectionStatus = apperrors.New(
		"connections.invalid_status", "Connection request has already been answered", http.StatusConflict)

	ErrSelfConversation = apperrors.New(
		"conversations.self_conversation", "Cannot start a conversation with yourself", http.StatusBadRequest)
	ErrContentInvalid = apperrors.New(
		"messages.content_invalid", "Message content must be between 1 and 2000 characters", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
