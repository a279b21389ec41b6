package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reboundhq/rebound/internal/models"
	apperrors "github.com/reboundhq/rebound/pkg/errors"
)

func TestRegisterHashesPasswordAndNormalizes(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.Register(context.Background(), RegisterInput{
		Username: "  Ada  ",
		Email:    "Ada@Example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "ada", user.Username)
	require.Equal(t, "ada@example.com", user.Email)
	require.Equal(t, "ada", user.DisplayName)
	require.NotEqual(t, "hunter2hunter2", user.Password)
	require.True(t, user.IsActive)
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "ada")

	_, err := env.users.Register(ctx, RegisterInput{
		Username: "ada",
		Email:    "other@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, "users.already_exists", appErr.Code)

	_, err = env.users.Register(ctx, RegisterInput{
		Username: "grace",
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.Error(t, err)
}

func TestAuthenticateByUsernameOrEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "ada")

	byUsername, err := env.users.Authenticate(ctx, "ada", "secret-password")
	require.NoError(t, err)
	require.Equal(t, "ada", byUsername.Username)

	byEmail, err := env.users.Authenticate(ctx, "ADA@example.com", "secret-password")
	require.NoError(t, err)
	require.Equal(t, byUsername.ID, byEmail.ID)

	refreshed, err := env.users.GetByID(ctx, byEmail.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.LastSeenAt)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ada := env.createUser(t, "ada")

	_, err := env.users.Authenticate(ctx, "ada", "wrong-password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody", "secret-password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", ada.ID).
		UpdateColumn("is_active", false).Error)
	_, err = env.users.Authenticate(ctx, "ada", "secret-password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestGetProfileProjectsPublicFields(t *testing.T) {
	env := newTestEnv(t)

	ada := env.createUser(t, "ada")
	profile, err := env.users.GetProfile(context.Background(), ada.ID)
	require.NoError(t, err)
	require.Equal(t, ada.ID, profile.ID)
	require.Equal(t, "ada", profile.Username)

	_, err = env.users.GetProfile(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearchMatchesUsernameAndDisplayName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ada := env.createUser(t, "ada")
	env.createUser(t, "grace")
	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", ada.ID).
		UpdateColumn("display_name", "Ada Lovelace").Error)

	byName, err := env.users.Search(ctx, "lovelace", 10)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, ada.ID, byName[0].ID)

	byUsername, err := env.users.Search(ctx, "gra", 10)
	require.NoError(t, err)
	require.Len(t, byUsername, 1)
	require.Equal(t, "grace", byUsername[0].Username)

	_, err = env.users.Search(ctx, "   ", 10)
	require.Error(t, err)
}
