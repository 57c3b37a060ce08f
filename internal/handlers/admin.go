package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/handlers/render"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/service/admin"
)

type adminService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	BanUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	UnbanUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, role models.Role) (models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	UserDetails(ctx context.Context, userID uuid.UUID) (admin.UserDetails, error)
	Stats(ctx context.Context) (admin.Stats, error)
}

type AdminHandler struct {
	adminService adminService
	logger       logger.Logger
}

func NewAdmin(as adminService, l logger.Logger) *AdminHandler {
	return &AdminHandler{adminService: as, logger: l}
}

func toUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func userIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func (h *AdminHandler) userError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, apperrors.ErrUserNotFound) {
		render.ServiceError(w, "User not found", http.StatusNotFound)
		return
	}
	h.logger.Error(action+" failed", "error", err.Error())
	render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	var (
		users []models.User
		err   error
	)
	if query != "" {
		users, err = h.adminService.SearchUsers(r.Context(), query)
	} else {
		users, err = h.adminService.ListUsers(r.Context())
	}
	if err != nil {
		h.logger.Error("user listing failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toUserResponses(users))
}

func (h *AdminHandler) userDetails(w http.ResponseWriter, r *http.Request) {
	type userDetailsResponse struct {
		User          UserResponse     `json:"user"`
		ReviewCount   int64            `json:"reviewCount"`
		RecentReviews []ReviewResponse `json:"recentReviews"`
	}

	userID, err := userIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	details, err := h.adminService.UserDetails(r.Context(), userID)
	if err != nil {
		h.userError(w, err, "user details lookup")
		return
	}

	render.JSON(w, userDetailsResponse{
		User:          toUserResponse(details.User),
		ReviewCount:   details.ReviewCount,
		RecentReviews: toReviewResponses(details.RecentReviews),
	})
}

func (h *AdminHandler) banUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.adminService.BanUser(r.Context(), userID)
	if err != nil {
		h.userError(w, err, "user ban")
		return
	}

	render.JSON(w, toUserResponse(user))
}

func (h *AdminHandler) unbanUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.adminService.UnbanUser(r.Context(), userID)
	if err != nil {
		h.userError(w, err, "user unban")
		return
	}

	render.JSON(w, toUserResponse(user))
}

func (h *AdminHandler) setRole(w http.ResponseWriter, r *http.Request) {
	type setRoleRequest struct {
		Role string `json:"role" validate:"required"`
	}

	userID, err := userIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	data, err := render.BindAndValidate[setRoleRequest](w, r)
	if err != nil {
		return
	}

	role, err := models.ParseRole(data.Role)
	if err != nil {
		render.ServiceError(w, "Invalid role", http.StatusBadRequest)
		return
	}

	user, err := h.adminService.SetRole(r.Context(), userID, role)
	if err != nil {
		h.userError(w, err, "role change")
		return
	}

	render.JSON(w, toUserResponse(user))
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromPath(r)
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.adminService.DeleteUser(r.Context(), userID); err != nil {
		h.userError(w, err, "user deletion")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	type statsResponse struct {
		TotalUsers   int64 `json:"totalUsers"`
		TotalBooks   int64 `json:"totalBooks"`
		TotalReviews int64 `json:"totalReviews"`
		BannedUsers  int64 `json:"bannedUsers"`
	}

	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats collection failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, statsResponse{
		TotalUsers:   stats.TotalUsers,
		TotalBooks:   stats.TotalBooks,
		TotalReviews: stats.TotalReviews,
		BannedUsers:  stats.BannedUsers,
	})
}
