package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/example/todo-cache-demo/domain/user"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when the email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
	// ErrShortName is returned when the display name is too short.
	ErrShortName = errors.New("name must be at least 2 characters")
)

// AuthService handles authentication business logic: credential sign-up
// and sign-in, federated sign-in, and session token validation. It is
// the request authorizer the todo service relies on for user identity.
type AuthService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a new user account with credentials.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, ErrShortName
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	// bcrypt silently truncates beyond 72 bytes.
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	u := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

// Login authenticates a user by credentials and returns session tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// OAuth-only accounts carry no password hash and cannot log in
	// with credentials.
	if u.PasswordHash == "" || !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(u.ID, u.Email)
}

// LoginWithProfile signs in a user identified by a federated provider
// profile, creating the account on first sign-in (keyed by email), and
// returns session tokens.
func (s *AuthService) LoginWithProfile(ctx context.Context, profile *Profile) (*domain.TokenPair, error) {
	u, err := s.repo.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Refresh profile fields the provider may have changed.
		if profile.Name != "" {
			u.Name = profile.Name
		}
		if profile.Image != "" {
			u.Image = profile.Image
		}
		u.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	case errors.Is(err, ErrUserNotFound):
		now := time.Now()
		u = &domain.User{
			ID:        uuid.New().String(),
			Name:      profile.Name,
			Email:     profile.Email,
			Image:     profile.Image,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(u.ID, u.Email)
}

// RefreshTokens generates new access and refresh tokens.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(u.ID, u.Email)
}

// ValidateToken validates an access token and returns the identity claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &domain.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *AuthService) generateTokenPair(userID, email string) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}
