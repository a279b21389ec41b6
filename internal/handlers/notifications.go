package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns notifications for the current user, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 25)
	unreadOnly := strings.EqualFold(c.Query("unread_only"), "true")

	notifications, total, unread, err := h.notifications.List(requestContext(c), services.ListNotificationsInput{
		RecipientID: userID,
		UnreadOnly:  unreadOnly,
		Page:        page,
		PageSize:    limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := listMeta(page, limit, total)
	meta.Unread = int(unread)
	response.SuccessWithMeta(c, http.StatusOK, notifications, meta)
}

// MarkRead flips a notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	notification, err := h.notifications.MarkRead(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, notification)
}

// MarkAllRead marks every unread notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.notifications.Delete(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
