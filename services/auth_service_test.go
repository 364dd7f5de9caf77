package services

import (
	"context"
	"fanous-live/auth"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/mocks"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("a_test_secret_long_enough_for_hs256", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	issuer := newIssuer()
	svc := NewAuthService(mockRepo, issuer)
	ctx := context.Background()

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		email := "test@example.com"
		password := "ComplexPass123!"

		// CreateUser gets a hash, never the plain password
		mockRepo.EXPECT().
			CreateUser(gomock.Any(), email, "Tester", gomock.Not(password)).
			Return(domain.User{ID: "user-uuid", Email: email, DisplayName: "Tester", Roles: []string{"user"}}, nil).
			Times(1)

		result, err := svc.Register(ctx, email, password, "Tester")

		req.NoError(err)
		req.Equal("user-uuid", result.UserID)
		claims, err := issuer.ValidateToken(result.Token)
		req.NoError(err)
		req.Equal("user-uuid", claims.UserID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		result, err := svc.Register(ctx, "test@example.com", "simple", "")

		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(result.Token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		mockRepo.EXPECT().
			CreateUser(gomock.Any(), "duplicate@example.com", "", gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register(ctx, "duplicate@example.com", "ComplexPass123!", "")

		require.ErrorIs(t, err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	issuer := newIssuer()
	svc := NewAuthService(mockRepo, issuer)
	ctx := context.Background()

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		email := "user@example.com"
		password := "Secret123456!"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		storedUser := domain.User{
			ID:           "uuid-123",
			Email:        email,
			PasswordHash: hashedPassword,
			Roles:        []string{"user"},
		}

		mockRepo.EXPECT().
			GetUserByEmail(gomock.Any(), email).
			Return(storedUser, nil).
			Times(1)

		result, err := svc.Login(ctx, email, password)

		req.NoError(err)
		claims, err := issuer.ValidateToken(result.Token)
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		hashedPassword, err := auth.HashPassword("CorrectPassword123!")
		require.NoError(t, err)

		mockRepo.EXPECT().
			GetUserByEmail(gomock.Any(), "user@example.com").
			Return(domain.User{Email: "user@example.com", PasswordHash: hashedPassword}, nil).
			Times(1)

		_, err = svc.Login(ctx, "user@example.com", "WrongPassword123!")

		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		mockRepo.EXPECT().
			GetUserByEmail(gomock.Any(), "unknown@example.com").
			Return(domain.User{}, errors.ErrUserNotFound).
			Times(1)

		_, err := svc.Login(ctx, "unknown@example.com", "anyPassword")

		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})
}
