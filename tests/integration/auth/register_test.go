package auth

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/testutil"
	"github.com/ivmartynov/bookverse/tests/integration"
)

const (
	RegisterURL = "/api/auth/register"
	LoginURL    = "/api/auth/login"
	RefreshURL  = "/api/auth/refresh"
	LogoutURL   = "/api/auth/logout"
	MeURL       = "/api/auth/me"
)

func Test_Register(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("register ok", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			data := `{"username": "ivan", "email": "ivan@example.com", "password": "pwd123"}`

			resp, err := http.Post(srvURL+RegisterURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"message": "User registered successfully"
				}`, string(body))
		})
	})

	t.Run("role in request is ignored", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			data := `{"username": "sneaky", "email": "sneaky@example.com", "password": "pwd123", "role": "ADMIN"}`

			resp, err := http.Post(srvURL+RegisterURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			user, err := s.Storage.User().GetUserByUsername(t.Context(), "sneaky")
			require.NoError(t, err)
			require.EqualValues(t, "USER", user.Role, "registration must never grant the requested role")
		})
	})

	t.Run("duplicate email", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			_, err := s.AuthService.Register(t.Context(), "ivan", "ivan@example.com", "pwd123")
			require.NoError(t, err)

			data := `{"username": "other", "email": "ivan@example.com", "password": "pwd123"}`
			resp, err := http.Post(srvURL+RegisterURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Email already exists"
				}`, string(body))
		})
	})

	t.Run("short password", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			data := `{"email": "short@example.com", "password": "123"}`

			resp, err := http.Post(srvURL+RegisterURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {
						"password": "Value is too short (minimum 6)"
					}
				}`, string(body))
		})
	})
}
