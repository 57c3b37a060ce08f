package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/handlers/userctx"
	"github.com/ivmartynov/bookverse/internal/models"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, authorization string) (models.Principal, error)

func (f authFunc) Authenticate(ctx context.Context, authorization string) (models.Principal, error) {
	return f(ctx, authorization)
}

func TestRequireAuth(t *testing.T) {
	// Simple handler that try to get principal from context
	// If ok write it username to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set principal or write error to response
		principal, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(principal.Username))
		require.NoError(t, err, "should write username to response")
	})

	t.Run("auth ok", func(t *testing.T) {
		// Middleware that always return ok
		middleware := RequireAuth(authFunc(func(ctx context.Context, authorization string) (models.Principal, error) {
			return models.Principal{Username: "test-user", Role: models.RoleUser}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", string(body))
		require.Equal(t, "test-user", string(body), "should return username in response")
	})

	t.Run("auth fail", func(t *testing.T) {
		// Middleware that always fails
		middleware := RequireAuth(authFunc(func(ctx context.Context, authorization string) (models.Principal, error) {
			return models.Principal{}, apperrors.ErrAccessTokenInvalid
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "should return status Unauthorized. Resp: %s", string(body))
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized"
			}`,
			string(body),
		)
	})
}

func TestRequireRole(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serveAs := func(t *testing.T, principal *models.Principal) *http.Response {
		t.Helper()

		gate := RequireRole(models.RoleAdmin)(handler)

		// Bind the principal first, the role check expects it in context
		var wrapped http.Handler = gate
		if principal != nil {
			p := *principal
			wrapped = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gate.ServeHTTP(w, r.WithContext(userctx.New(r.Context(), p)))
			})
		}

		srv := httptest.NewServer(wrapped)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck
		return resp
	}

	t.Run("admin passes", func(t *testing.T) {
		resp := serveAs(t, &models.Principal{Username: "root", Role: models.RoleAdmin})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("user is forbidden", func(t *testing.T) {
		resp := serveAs(t, &models.Principal{Username: "joe", Role: models.RoleUser})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("no principal is unauthorized", func(t *testing.T) {
		resp := serveAs(t, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
