package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/reboundhq/rebound/internal/auth"
	"github.com/reboundhq/rebound/internal/realtime"
	"github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/response"
)

// RealtimeHandler upgrades HTTP connections into authenticated WebSocket streams.
type RealtimeHandler struct {
	hub            *realtime.Hub
	jwt            *iauth.JWTService
	allowedStreams map[string]struct{}
}

// NewRealtimeHandler constructs a realtime handler restricted to the supplied streams.
// If no streams are provided, any stream name is accepted.
func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService, streams ...string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(streams))
	for _, stream := range streams {
		stream = strings.ToLower(strings.TrimSpace(stream))
		if stream == "" {
			continue
		}
		allowed[stream] = struct{}{}
	}

	return &RealtimeHandler{
		hub:            hub,
		jwt:            jwt,
		allowedStreams: allowed,
	}
}

// Stream validates the caller and upgrades the request to the realtime hub.
// Tokens arrive via query parameter because browsers cannot set headers on
// websocket upgrades.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}

	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	streams := gatherStreams(c)
	if len(streams) == 0 {
		streams = []string{realtime.StreamMessages, realtime.StreamNotifications, realtime.StreamConnections}
	}

	if len(h.allowedStreams) > 0 {
		for _, stream := range streams {
			if _, ok := h.allowedStreams[stream]; !ok {
				response.Error(c, errors.ErrNotFound)
				return
			}
		}
	}

	var allowed map[string]struct{}
	if len(h.allowedStreams) > 0 {
		allowed = h.allowedStreams
	}
	h.hub.Serve(userID, streams, allowed, c.Writer, c.Request)
}

func gatherStreams(c *gin.Context) []string {
	var streams []string

	appendStream := func(raw string) {
		stream := strings.ToLower(strings.TrimSpace(raw))
		if stream == "" {
			return
		}
		for _, existing := range streams {
			if existing == stream {
				return
			}
		}
		streams = append(streams, stream)
	}

	for _, queryStream := range c.QueryArray("stream") {
		appendStream(queryStream)
	}
	for _, listed := range strings.Split(c.Query("streams"), ",") {
		appendStream(listed)
	}

	return streams
}
