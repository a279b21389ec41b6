package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/reboundhq/rebound/internal/auth"
	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/response"
)

// AuthHandler exposes registration, login, and identity endpoints.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

// Register creates a new account and returns an access token.
func (h *AuthHandler) Register(c *gin.Context) {
	var payload struct {
		Username    string `json:"username" validate:"required,min=3,max=32"`
		Email       string `json:"email" validate:"required,email"`
		Password    string `json:"password" validate:"required,min=8,max=128"`
		DisplayName string `json:"display_name" validate:"max=128"`
		Headline    string `json:"headline" validate:"max=255"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Username:    payload.Username,
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
		Headline:    payload.Headline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload struct {
		Identifier string `json:"identifier" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), payload.Identifier, payload.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
