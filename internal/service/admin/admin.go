package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
)

type Stats struct {
	TotalUsers   int64
	TotalBooks   int64
	TotalReviews int64
	BannedUsers  int64
}

type UserDetails struct {
	User          models.User
	ReviewCount   int64
	RecentReviews []models.Review
}

type AdminService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *AdminService {
	return &AdminService{storage: storage}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.storage.User().ListUsers(ctx)
}

func (s *AdminService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.storage.User().SearchUsers(ctx, query)
}

// BanUser flips the flag and kills the user's refresh sessions in one
// transaction. Outstanding access tokens stay usable until they expire.
func (s *AdminService) BanUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	var user models.User
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		user, err = st.User().SetBanned(ctx, userID, true)
		if err != nil {
			return err
		}

		_, err = st.Refresh().RevokeAllForUser(ctx, userID)
		return err
	})
	return user, err
}

func (s *AdminService) UnbanUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().SetBanned(ctx, userID, false)
}

func (s *AdminService) SetRole(ctx context.Context, userID uuid.UUID, role models.Role) (models.User, error) {
	return s.storage.User().SetRole(ctx, userID, role)
}

// DeleteUser removes the user row, the schema cascades reviews and
// refresh tokens
func (s *AdminService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.storage.User().DeleteUser(ctx, userID)
}

func (s *AdminService) UserDetails(ctx context.Context, userID uuid.UUID) (UserDetails, error) {
	var details UserDetails

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return details, err
	}

	count, err := s.storage.Review().CountByUser(ctx, userID)
	if err != nil {
		return details, err
	}

	recent, err := s.storage.Review().ListRecentByUser(ctx, userID, 5)
	if err != nil {
		return details, err
	}

	return UserDetails{User: user, ReviewCount: count, RecentReviews: recent}, nil
}

func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	if stats.TotalUsers, err = s.storage.User().CountUsers(ctx); err != nil {
		return stats, err
	}
	if stats.TotalBooks, err = s.storage.Book().CountBooks(ctx); err != nil {
		return stats, err
	}
	if stats.TotalReviews, err = s.storage.Review().CountReviews(ctx); err != nil {
		return stats, err
	}
	if stats.BannedUsers, err = s.storage.User().CountBanned(ctx); err != nil {
		return stats, err
	}

	return stats, nil
}
