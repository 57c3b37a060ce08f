package auth

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
	"github.com/ivmartynov/bookverse/internal/repository/postgres"
	"github.com/ivmartynov/bookverse/internal/service/auth/tokenmanager"
	"github.com/ivmartynov/bookverse/internal/testutil"
)

func Test_Auth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin new db transaction and create new AuthService
	// Rollback transaction when test stops
	withTx := func(dbpool *pgxpool.Pool, accessTTL time.Duration, refreshTTL time.Duration, t *testing.T, fn func(s *AuthService, storage repository.Storage)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			tokenManager, err := tokenmanager.New(
				tokenmanager.Config{
					SecretKey:  "test-secret-key",
					AccessTTL:  accessTTL,
					RefreshTTL: refreshTTL,
				},
				storage,
			)
			require.NoError(t, err, "token manager should be created without errors")

			s, err := NewService(Config{}, tokenManager, storage)
			require.NoError(t, err, "auth service could't be started", err)

			fn(s, storage)
		})
	}

	t.Run("new auth service defaults", func(t *testing.T) {
		storage := postgres.NewStorage(pg.Pool)
		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "secret"}, storage)
		require.NoError(t, err)

		s, err := NewService(Config{}, tokenManager, storage)
		require.NoError(t, err, "auth service should be created without errors")

		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be set to BcryptHasher")
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				user, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")

				require.NoError(t, err, "registering new user should be ok")
				require.Equal(t, "ivan", user.Username)
				require.Equal(t, "ivan@example.com", user.Email)
				require.Equal(t, models.RoleUser, user.Role, "registration must never grant another role")
				require.NotEqual(t, "pwd123", user.HashedPassword, "password must be stored hashed")
			})
		})

		t.Run("username defaults to email", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				user, err := s.Register(t.Context(), "", "noname@example.com", "pwd123")

				require.NoError(t, err)
				require.Equal(t, "noname@example.com", user.Username)
			})
		})

		t.Run("fail if email taken", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err, "no error has should happen if user not exists")

				_, err = s.Register(t.Context(), "other", "ivan@example.com", "other-pwd")

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrEmailTaken)
			})
		})

		t.Run("fail if username taken", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err)

				_, err = s.Register(t.Context(), "ivan", "other@example.com", "other-pwd")

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrUsernameTaken)
			})
		})
	})

	t.Run("Login", func(t *testing.T) {
		register := func(t *testing.T, s *AuthService) models.User {
			t.Helper()
			user, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
			require.NoError(t, err)
			return user
		}

		t.Run("by email", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				registered := register(t, s)

				pair, user, err := s.Login(t.Context(), "ivan@example.com", "pwd123")

				require.NoError(t, err)
				require.Equal(t, registered.ID, user.ID)
				require.NotEmpty(t, pair.Access.Value)
				require.NotEmpty(t, pair.Refresh.Value)
			})
		})

		t.Run("by username", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				registered := register(t, s)

				_, user, err := s.Login(t.Context(), "ivan", "pwd123")

				require.NoError(t, err)
				require.Equal(t, registered.ID, user.ID)
			})
		})

		t.Run("wrong password", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				register(t, s)

				_, _, err := s.Login(t.Context(), "ivan", "wrong")

				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			})
		})

		t.Run("unknown identifier", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, _, err := s.Login(t.Context(), "nobody", "pwd123")

				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "unknown user must not be distinguishable from wrong password")
			})
		})

		t.Run("banned user", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, storage repository.Storage) {
				user := register(t, s)
				_, err := storage.User().SetBanned(t.Context(), user.ID, true)
				require.NoError(t, err)

				_, _, err = s.Login(t.Context(), "ivan", "pwd123")

				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrUserBanned)
			})
		})
	})

	t.Run("Refresh and Logout", func(t *testing.T) {
		t.Run("refresh rotates", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err)
				pair, _, err := s.Login(t.Context(), "ivan", "pwd123")
				require.NoError(t, err)

				rotated, user, err := s.Refresh(t.Context(), pair.Refresh.Value)

				require.NoError(t, err)
				require.Equal(t, "ivan", user.Username)
				require.NotEqual(t, pair.Refresh.Value, rotated.Refresh.Value)
			})
		})

		t.Run("logout revokes the session", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err)
				pair, _, err := s.Login(t.Context(), "ivan", "pwd123")
				require.NoError(t, err)

				require.NoError(t, s.Logout(t.Context(), pair.Refresh.Value))

				_, _, err = s.Refresh(t.Context(), pair.Refresh.Value)
				assert.ErrorIs(t, err, apperrors.ErrRefreshTokenRevoked)
			})
		})

		t.Run("logout all revokes by principal", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err)
				pair, _, err := s.Login(t.Context(), "ivan", "pwd123")
				require.NoError(t, err)

				err = s.LogoutAll(t.Context(), models.Principal{Username: "ivan", Role: models.RoleUser})
				require.NoError(t, err)

				_, _, err = s.Refresh(t.Context(), pair.Refresh.Value)
				assert.ErrorIs(t, err, apperrors.ErrRefreshTokenRevoked)
			})
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("bearer token ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err)
				pair, _, err := s.Login(t.Context(), "ivan", "pwd123")
				require.NoError(t, err)

				principal, err := s.Authenticate(t.Context(), "Bearer "+pair.Access.Value)

				require.NoError(t, err)
				require.Equal(t, "ivan", principal.Username)
				require.Equal(t, models.RoleUser, principal.Role)
			})
		})

		t.Run("scheme is case insensitive", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				_, err := s.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
				require.NoError(t, err)
				pair, _, err := s.Login(t.Context(), "ivan", "pwd123")
				require.NoError(t, err)

				_, err = s.Authenticate(t.Context(), "bearer "+pair.Access.Value)

				require.NoError(t, err)
			})
		})

		t.Run("bad headers", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, _ repository.Storage) {
				for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcjpwd2Q=", "some-random-token"} {
					_, err := s.Authenticate(t.Context(), header)
					assert.ErrorIs(t, err, apperrors.ErrAccessTokenInvalid, "header %q must be rejected", header)
				}
			})
		})
	})
}
