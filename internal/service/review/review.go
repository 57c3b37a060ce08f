package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
)

type ReviewService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *ReviewService {
	return &ReviewService{storage: storage}
}

// Create posts a review on behalf of the principal. Banned users are
// rejected here even when their access token is still live: writing is
// the one place where staleness of the token would be visible content.
func (s *ReviewService) Create(ctx context.Context, principal models.Principal, bookID uuid.UUID, rating int, text string) (models.Review, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, principal.Username)
	if err != nil {
		return models.Review{}, err
	}

	if user.Banned {
		return models.Review{}, apperrors.ErrUserBanned
	}

	// Book existence is also enforced by the foreign key, checking first
	// gives the caller a proper not found instead of a constraint error
	if _, err := s.storage.Book().GetBook(ctx, bookID); err != nil {
		return models.Review{}, err
	}

	return s.storage.Review().CreateReview(ctx, models.Review{
		BookID:     bookID,
		UserID:     user.ID,
		Rating:     rating,
		ReviewText: text,
	})
}

func (s *ReviewService) ListAll(ctx context.Context) ([]models.Review, error) {
	return s.storage.Review().ListReviews(ctx)
}

func (s *ReviewService) ListByBook(ctx context.Context, bookID uuid.UUID) ([]models.Review, error) {
	return s.storage.Review().ListByBook(ctx, bookID)
}

func (s *ReviewService) Delete(ctx context.Context, reviewID uuid.UUID) error {
	return s.storage.Review().DeleteReview(ctx, reviewID)
}
