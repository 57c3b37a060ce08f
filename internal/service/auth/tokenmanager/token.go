package tokenmanager

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
)

const (
	defaultAccessTokenTTL  = 24 * time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"

	// Marker that keeps access tokens from being confused with anything
	// else signed by the same key
	accessTokenType = "access"
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Role      models.Role `json:"role"`
	TokenType string      `json:"typ"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign access tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then defaults are used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager owns both token classes: stateless signed access tokens
// and opaque stored refresh tokens with the single active session policy.
type TokenManager struct {
	key        string
	alg        jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Long term storage for refresh tokens and users
	storage repository.Storage
}

func New(cfg Config, storage repository.Storage) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		storage:    storage,
	}, nil
}

// IssuePair mints an access token and a fresh refresh session for the user.
// Every refresh token the user held before is revoked in the same
// transaction, so at most one session chain stays usable.
func (m *TokenManager) IssuePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair
	err := m.storage.InTx(ctx, func(s repository.Storage) error {
		var err error
		pair, err = m.issuePair(ctx, s, user)
		return err
	})
	return pair, err
}

// RotatePair exchanges a refresh token for a new token pair.
// Claiming the old token and saving the new one happen in one
// transaction: a replayed token fails, a crash in between only logs the
// user out.
func (m *TokenManager) RotatePair(ctx context.Context, refresh string) (models.TokenPair, models.User, error) {
	var pair models.TokenPair
	var user models.User

	err := m.storage.InTx(ctx, func(s repository.Storage) error {
		// Read the row only to learn the owner, validity is decided
		// after the user lock is held
		peek, err := s.Refresh().Get(ctx, refresh)
		if err != nil {
			return err
		}

		// Session writers always lock the user row first, in the same
		// order as issuePair
		if err := s.User().Lock(ctx, peek.UserID); err != nil {
			return err
		}

		// Revoking the old token is the guard: of concurrent rotations
		// of the same token exactly one claims the row
		token, err := s.Refresh().MarkRevoked(ctx, refresh)
		if err != nil {
			return err
		}
		if !token.Valid(time.Now()) {
			return apperrors.ErrRefreshTokenExpired
		}

		user, err = s.User().GetUserByID(ctx, token.UserID)
		if err != nil {
			return err
		}

		pair, err = m.issuePair(ctx, s, user)
		return err
	})

	return pair, user, err
}

// RevokeOne revokes a single refresh token, missing tokens included
func (m *TokenManager) RevokeOne(ctx context.Context, refresh string) error {
	return m.storage.Refresh().Revoke(ctx, refresh)
}

// RevokeAllForUser is used on logout-all, ban and account deletion
func (m *TokenManager) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := m.storage.Refresh().RevokeAllForUser(ctx, userID)
	return err
}

// PurgeExpired deletes rows that can never validate again. Housekeeping
// only, expired tokens are rejected with or without it.
func (m *TokenManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.storage.Refresh().DeleteExpired(ctx, time.Now())
}

// ParseAccess verifies an access token and returns the principal it
// proves. Bad signature, wrong algorithm, expiry and wrong token type
// all collapse into apperrors.ErrAccessTokenInvalid.
func (m *TokenManager) ParseAccess(access string) (models.Principal, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}

	role, err := models.ParseRole(string(claims.Role))
	if err != nil || claims.TokenType != accessTokenType || claims.Subject == "" {
		return models.Principal{}, apperrors.ErrAccessTokenInvalid
	}

	return models.Principal{Username: claims.Subject, Role: role}, nil
}

func (m *TokenManager) issuePair(ctx context.Context, s repository.Storage, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair

	// Hold the user row for the rest of the transaction. Without it two
	// concurrent issues each miss the other's not yet visible insert
	// when revoking and leave two live sessions
	if err := s.User().Lock(ctx, user.ID); err != nil {
		return pair, err
	}

	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	// Generate JWT access token encoded as string
	accessToken := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.Username,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
			},
			Role:      user.Role,
			TokenType: accessTokenType,
		},
	)
	access, err := accessToken.SignedString([]byte(m.key))
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	// Generate random opaque refresh token, 16 bytes of entropy
	b := make([]byte, 16)
	_, err = rand.Read(b)
	if err != nil {
		return pair, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}
	refresh := hex.EncodeToString(b)

	// Revoke before insert, both inside the caller's transaction
	_, err = s.Refresh().RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return pair, fmt.Errorf("error while revoking old refresh tokens. Err: %w", err)
	}

	_, err = s.Refresh().Save(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     refresh,
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
		Revoked:   false,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}
