package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/models"
	"github.com/reboundhq/rebound/pkg/crypto"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/logger"
	"github.com/reboundhq/rebound/pkg/metrics"
)

// UserService manages account registration, credential checks, and profile lookups.
type UserService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, fmt.Errorf("user service requires database handle")
	}
	return &UserService{
		db:  db,
		log: logger.WithModule("services.users"),
	}, nil
}

// RegisterInput carries a new account's fields.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Headline    string
}

// Register creates an account with a bcrypt-hashed password. Username and
// email collisions surface as conflicts.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewBadRequest("username, email, and password are required")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:    username,
		Email:       email,
		Password:    hash,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Headline:    strings.TrimSpace(input.Headline),
		IsActive:    true,
	}
	if user.DisplayName == "" {
		user.DisplayName = username
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("users.already_exists", "Username or email already taken", http.StatusConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

// Authenticate verifies a username-or-email plus password pair.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.touchLastSeen(ctx, user.ID)
	return &user, nil
}

func (s *UserService) touchLastSeen(ctx context.Context, userID string) {
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen_at", time.Now().UTC()).Error; err != nil {
		s.log.Warn("update last seen failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// GetByID returns the full user record.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(ensureContext(ctx), s.db, userID)
}

// GetProfile returns the public projection of a user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// Search finds active users by username or display name substring.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]models.PublicProfile, error) {
	ctx = ensureContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewBadRequest("search query is required")
	}
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Profile())
	}
	return profiles, nil
}
