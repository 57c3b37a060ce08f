package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
	"github.com/ivmartynov/bookverse/internal/service/auth/tokenmanager"
)

const bearerScheme = "Bearer"

type Config struct {
	// Hasher to use during registration and login
	// BcryptHasher is used when not set
	Hasher PasswordHasher
}

type AuthService struct {
	token   *tokenmanager.TokenManager
	hasher  PasswordHasher
	storage repository.Storage
}

func NewService(cfg Config, token *tokenmanager.TokenManager, storage repository.Storage) (*AuthService, error) {
	if token == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	return &AuthService{
		token:   token,
		hasher:  hasher,
		storage: storage,
	}, nil
}

// Register creates a user with role USER regardless of what the caller
// asked for. Username falls back to email when empty.
func (s *AuthService) Register(ctx context.Context, username string, email string, password string) (models.User, error) {
	if username == "" {
		username = email
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.storage.User().CreateUser(ctx, username, email, hash, models.RoleUser)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login resolves the identifier as email first, then username.
// Unknown identifier and wrong password fail identically with
// ErrInvalidCredentials, banned accounts fail with ErrUserBanned.
func (s *AuthService) Login(ctx context.Context, identifier string, password string) (models.TokenPair, models.User, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, identifier)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		user, err = s.storage.User().GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.TokenPair{}, models.User{}, apperrors.ErrInvalidCredentials
		}
		return models.TokenPair{}, models.User{}, err
	}

	if user.Banned {
		return models.TokenPair{}, models.User{}, apperrors.ErrUserBanned
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.TokenPair{}, models.User{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.token.IssuePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, models.User{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, user, nil
}

// Refresh validates and rotates a refresh token, returning a new pair
// bound to the same user
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, models.User, error) {
	return s.token.RotatePair(ctx, refresh)
}

// Logout revokes a single refresh token
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	return s.token.RevokeOne(ctx, refresh)
}

// LogoutAll revokes every refresh token of the principal's user
func (s *AuthService) LogoutAll(ctx context.Context, principal models.Principal) error {
	user, err := s.storage.User().GetUserByUsername(ctx, principal.Username)
	if err != nil {
		return err
	}
	return s.token.RevokeAllForUser(ctx, user.ID)
}

// User loads the user record behind a verified principal
func (s *AuthService) User(ctx context.Context, principal models.Principal) (models.User, error) {
	return s.storage.User().GetUserByUsername(ctx, principal.Username)
}

// Authenticate parses the Authorization header and verifies the bearer
// access token. Reasons are not distinguished for the caller.
func (s *AuthService) Authenticate(ctx context.Context, authorization string) (models.Principal, error) {
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		return models.Principal{}, apperrors.ErrAccessTokenInvalid
	}

	return s.token.ParseAccess(strings.TrimSpace(token))
}
