//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fanous-live/auth"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/repositories"
	"fmt"
)

type IAuthService interface {
	Register(ctx context.Context, email, password, displayName string) (domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (domain.AuthResult, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	issuer         *auth.TokenIssuer
}

func NewAuthService(repo repositories.IUserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{userRepository: repo, issuer: issuer}
}

func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (domain.AuthResult, error) {
	// 1. Business rules first, hashing is expensive
	err := auth.ValidateRegister(auth.RegisterRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return domain.AuthResult{}, err
	}

	// 2. The repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. ErrUserAlreadyExists propagates when the email is taken
	user, err := s.userRepository.CreateUser(ctx, email, displayName, hashedPassword)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.AuthResult{}, err
		}
		return domain.AuthResult{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	return s.issue(user.ID, user.DisplayName, user.Roles)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, email)
	if err != nil {
		// Generic error to prevent user enumeration
		return domain.AuthResult{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.AuthResult{}, errors.ErrInvalidCredentials
	}

	return s.issue(user.ID, user.DisplayName, user.Roles)
}

func (s *AuthService) issue(userID, displayName string, roles []string) (domain.AuthResult, error) {
	token, err := s.issuer.GenerateToken(userID, roles)
	if err != nil {
		return domain.AuthResult{}, errors.ErrTokenGeneration
	}
	return domain.AuthResult{UserID: userID, DisplayName: displayName, Token: token}, nil
}
