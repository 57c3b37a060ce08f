package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/handlers/render"
	"github.com/ivmartynov/bookverse/internal/handlers/userctx"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/models"
)

type authService interface {
	Register(ctx context.Context, username string, email string, password string) (models.User, error)
	Login(ctx context.Context, identifier string, password string) (models.TokenPair, models.User, error)
	Refresh(ctx context.Context, refresh string) (models.TokenPair, models.User, error)
	Logout(ctx context.Context, refresh string) error
	LogoutAll(ctx context.Context, principal models.Principal) error
	User(ctx context.Context, principal models.Principal) (models.User, error)
	Authenticate(ctx context.Context, authorization string) (models.Principal, error)
}

// UserResponse is the outward shape of a user. The password hash never
// leaves the service layer.
type UserResponse struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	Banned   bool        `json:"banned"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Banned:   u.Banned,
	}
}

type tokenPairResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

type AuthHandler struct {
	authService authService
	logger      logger.Logger
}

func NewAuth(as authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{authService: as, logger: l}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type registerRequest struct {
		Username string `json:"username" validate:"omitempty,max=50"`
		Email    string `json:"email" validate:"required,max=254"`
		Password string `json:"password" validate:"required,min=6"`

		// Accepted but deliberately ignored, everyone registers as USER
		Role string `json:"role"`
	}
	type registerResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[registerRequest](w, r)
	if err != nil {
		return
	}

	_, err = h.authService.Register(r.Context(), data.Username, data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmailTaken):
			render.ServiceError(w, "Email already exists", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUsernameTaken):
			render.ServiceError(w, "Username already exists", http.StatusBadRequest)
		default:
			h.logger.Error("registration failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, registerResponse{Message: "User registered successfully"})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type loginRequest struct {
		// Username holds email or username, resolved in that order
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[loginRequest](w, r)
	if err != nil {
		return
	}

	pair, user, err := h.authService.Login(r.Context(), data.Username, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid email/username or password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrUserBanned):
			render.ServiceError(w, "Account is banned", http.StatusForbidden)
		default:
			h.logger.Error("login failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		User:         toUserResponse(user),
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type refreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	data, err := render.BindAndValidate[refreshRequest](w, r)
	if err != nil {
		return
	}

	pair, user, err := h.authService.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		// Not found, revoked, rotated and expired all read the same from
		// the outside
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
			errors.Is(err, apperrors.ErrRefreshTokenRevoked),
			errors.Is(err, apperrors.ErrRefreshTokenExpired),
			errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		default:
			h.logger.Error("token refresh failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		User:         toUserResponse(user),
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type logoutRequest struct {
		RefreshToken string `json:"refreshToken"`
		RevokeAll    bool   `json:"revokeAll"`
	}
	type logoutResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[logoutRequest](w, r)
	if err != nil {
		return
	}

	principal, _ := userctx.FromContext(r.Context())

	if data.RevokeAll {
		err = h.authService.LogoutAll(r.Context(), principal)
	} else {
		err = h.authService.Logout(r.Context(), data.RefreshToken)
	}
	if err != nil {
		h.logger.Error("logout failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, logoutResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.User(r.Context(), principal)
	if err != nil {
		// The account may be deleted while its access token still lives
		if errors.Is(err, apperrors.ErrUserNotFound) {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.logger.Error("me lookup failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toUserResponse(user))
}
