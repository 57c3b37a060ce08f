package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/handlers/render"
	"github.com/ivmartynov/bookverse/internal/handlers/userctx"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/models"
)

type reviewService interface {
	Create(ctx context.Context, principal models.Principal, bookID uuid.UUID, rating int, text string) (models.Review, error)
	ListAll(ctx context.Context) ([]models.Review, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]models.Review, error)
	Delete(ctx context.Context, reviewID uuid.UUID) error
}

type ReviewResponse struct {
	ID         uuid.UUID `json:"id"`
	BookID     uuid.UUID `json:"bookId"`
	UserID     uuid.UUID `json:"userId"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"reviewText"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toReviewResponse(rv models.Review) ReviewResponse {
	return ReviewResponse{
		ID:         rv.ID,
		BookID:     rv.BookID,
		UserID:     rv.UserID,
		Rating:     rv.Rating,
		ReviewText: rv.ReviewText,
		CreatedAt:  rv.CreatedAt,
	}
}

func toReviewResponses(reviews []models.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewResponse(rv))
	}
	return out
}

type ReviewHandler struct {
	reviewService reviewService
	logger        logger.Logger
}

func NewReviews(rs reviewService, l logger.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: rs, logger: l}
}

func (h *ReviewHandler) create(w http.ResponseWriter, r *http.Request) {
	type createRequest struct {
		BookID     uuid.UUID `json:"bookId" validate:"required"`
		Rating     int       `json:"rating" validate:"required,gte=1,lte=5"`
		ReviewText string    `json:"reviewText" validate:"max=4000"`
	}

	data, err := render.BindAndValidate[createRequest](w, r)
	if err != nil {
		return
	}

	principal, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rv, err := h.reviewService.Create(r.Context(), principal, data.BookID, data.Rating, data.ReviewText)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBookNotFound):
			render.ServiceError(w, "Book not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrUserBanned):
			render.ServiceError(w, "Account is banned", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		default:
			h.logger.Error("review creation failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, toReviewResponse(rv), http.StatusCreated)
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ListAll(r.Context())
	if err != nil {
		h.logger.Error("review listing failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toReviewResponses(reviews))
}

func (h *ReviewHandler) listByBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(r.PathValue("bookId"))
	if err != nil {
		render.ServiceError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	reviews, err := h.reviewService.ListByBook(r.Context(), bookID)
	if err != nil {
		h.logger.Error("review listing failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toReviewResponses(reviews))
}

func (h *ReviewHandler) delete(w http.ResponseWriter, r *http.Request) {
	reviewID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid review id", http.StatusBadRequest)
		return
	}

	if err := h.reviewService.Delete(r.Context(), reviewID); err != nil {
		if errors.Is(err, apperrors.ErrReviewNotFound) {
			render.ServiceError(w, "Review not found", http.StatusNotFound)
			return
		}
		h.logger.Error("review deletion failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
