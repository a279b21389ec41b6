package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/response"
)

// UserHandler exposes public profile lookups.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Get returns a user's public profile.
func (h *UserHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	profile, err := h.users.GetProfile(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// Search finds users by username or display name.
func (h *UserHandler) Search(c *gin.Context) {
	limit := parseIntQuery(c, "per_page", 20)

	profiles, err := h.users.Search(requestContext(c), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profiles)
}
