package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/client-registry/internal/domain"
)

// AuthService handles user registration, login and token validation.
type AuthService struct {
	users  domain.UserRepository
	hasher domain.PasswordHasher
	tokens domain.TokenService
}

func NewAuthService(users domain.UserRepository, hasher domain.PasswordHasher, tokens domain.TokenService) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// RegisterInput carries the raw registration fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is a signed token and its lifetime.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	User      *domain.User
}

// Register validates the input, hashes the password, checks that the email
// is free and stores the new user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username, err := domain.NewUsername(in.Username)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmailAddress(in.Email)
	if err != nil {
		return nil, err
	}
	password, err := domain.NewPassword(in.Password)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(password.String())
	if err != nil {
		return nil, err
	}

	_, err = s.users.GetByEmail(ctx, email.String())
	switch {
	case err == nil:
		return nil, domain.ErrEmailTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username.String(),
		Email:        email.String(),
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, rawEmail, password string) (*LoginResult, error) {
	email, err := domain.NewEmailAddress(rawEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email.String())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.hasher.Compare(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrWrongPassword
	}

	token, err := s.tokens.Issue(domain.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresIn: s.tokens.TTL(), User: user}, nil
}

// ValidateToken returns the identity carried by a bearer token.
func (s *AuthService) ValidateToken(token string) (*domain.TokenClaims, error) {
	return s.tokens.Verify(token)
}

// GetUserByID retrieves a user by their ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
