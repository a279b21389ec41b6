package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/response"
)

// MessageHandler exposes conversations and direct messages over HTTP.
type MessageHandler struct {
	chat *services.ChatService
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(chat *services.ChatService) *MessageHandler {
	return &MessageHandler{chat: chat}
}

// ListConversations returns the caller's conversations, most recently active first.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	entries, total, err := h.chat.ListConversations(requestContext(c), userID, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, listMeta(page, perPage, total))
}

// OpenConversation returns the thread with another user, creating it on first contact.
func (h *MessageHandler) OpenConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload struct {
		ParticipantID string `json:"participant_id" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	entry, err := h.chat.GetOrCreateConversation(requestContext(c), userID, payload.ParticipantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entry)
}

// ListMessages returns a page of a conversation's messages in chronological
// order. Viewing marks the caller's incoming messages as read.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)

	messages, total, err := h.chat.ListMessages(requestContext(c), userID, id, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, messages, listMeta(page, pageSize, total))
}

// SendMessage appends a message to the conversation.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload struct {
		Content string `json:"content" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	message, err := h.chat.SendMessage(requestContext(c), userID, id, payload.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, message)
}

// MarkRead flips the caller's incoming messages to read without fetching them.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.chat.MarkConversationRead(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// DeleteMessage removes a message the caller authored.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.chat.DeleteMessage(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
