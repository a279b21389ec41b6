package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/response"
)

// ConnectionHandler exposes the connection graph over HTTP.
type ConnectionHandler struct {
	connections *services.ConnectionService
}

// NewConnectionHandler constructs a connection handler.
func NewConnectionHandler(connections *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// SendRequest creates a pending connection request.
func (h *ConnectionHandler) SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload struct {
		RecipientID string `json:"recipient_id" validate:"required"`
		Message     string `json:"message" validate:"max=500"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	connection, err := h.connections.SendRequest(requestContext(c), services.SendRequestInput{
		RequesterID: userID,
		RecipientID: payload.RecipientID,
		Message:     payload.Message,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, connection)
}

// Accept answers a pending request positively.
func (h *ConnectionHandler) Accept(c *gin.Context) {
	h.respond(c, true)
}

// Reject answers a pending request negatively. The requester is not notified.
func (h *ConnectionHandler) Reject(c *gin.Context) {
	h.respond(c, false)
}

func (h *ConnectionHandler) respond(c *gin.Context, accept bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	connection, err := h.connections.Respond(requestContext(c), userID, id, accept)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, connection)
}

// Remove deletes a connection or withdraws a request.
func (h *ConnectionHandler) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.connections.Remove(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// List returns the caller's accepted connections.
func (h *ConnectionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	entries, total, err := h.connections.ListConnections(requestContext(c), userID, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, listMeta(page, perPage, total))
}

// Pending returns incoming requests awaiting the caller's answer.
func (h *ConnectionHandler) Pending(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	requests, total, err := h.connections.ListPending(requestContext(c), userID, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, requests, listMeta(page, perPage, total))
}

// Suggestions returns users the caller could connect with.
func (h *ConnectionHandler) Suggestions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 10)

	profiles, err := h.connections.Suggestions(requestContext(c), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profiles)
}
