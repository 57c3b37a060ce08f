package middleware

import (
	"context"
	"net/http"

	"github.com/ivmartynov/bookverse/internal/handlers/render"
	"github.com/ivmartynov/bookverse/internal/handlers/userctx"
	"github.com/ivmartynov/bookverse/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, authorization string) (models.Principal, error)
}

// RequireAuth verifies the bearer access token and binds the principal
// to the request context. Missing and invalid tokens are rejected the
// same way. Public routes simply don't use this middleware, so an
// anonymous caller passes through them untouched.
func RequireAuth(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := as.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only principals with the given role through.
// Must be chained after RequireAuth. The role set is closed, anything
// that is not an exact member is rejected.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := userctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			switch principal.Role {
			case role:
				next.ServeHTTP(w, r)
			case models.RoleUser, models.RoleAdmin:
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
			default:
				// Unknown role can't get past token parsing, treat as no auth
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			}
		})
	}
}
