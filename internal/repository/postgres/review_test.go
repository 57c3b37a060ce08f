package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/testutil"
)

func Test_ReviewRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create review ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := ReviewRepo{DB: tx}
			user := createTestUser(t, tx, "reader")
			book := createTestBook(t, tx, "Reviewed", "A", "Fiction")

			review, err := repo.CreateReview(t.Context(), models.Review{
				BookID:     book.ID,
				UserID:     user.ID,
				Rating:     4,
				ReviewText: "solid",
			})

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, review.ID)
			require.Equal(t, book.ID, review.BookID)
			require.Equal(t, user.ID, review.UserID)
			require.Equal(t, 4, review.Rating)
			require.False(t, review.CreatedAt.IsZero())
		})
	})

	t.Run("create review for missing book", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := ReviewRepo{DB: tx}
			user := createTestUser(t, tx, "lost")

			_, err := repo.CreateReview(t.Context(), models.Review{
				BookID: uuid.New(),
				UserID: user.ID,
				Rating: 3,
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
		})
	})

	t.Run("list by book", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := ReviewRepo{DB: tx}
			user := createTestUser(t, tx, "lister")
			bookOne := createTestBook(t, tx, "One", "A", "Fiction")
			bookTwo := createTestBook(t, tx, "Two", "B", "Fiction")

			for _, bookID := range []uuid.UUID{bookOne.ID, bookOne.ID, bookTwo.ID} {
				_, err := repo.CreateReview(t.Context(), models.Review{BookID: bookID, UserID: user.ID, Rating: 5})
				require.NoError(t, err)
			}

			reviews, err := repo.ListByBook(t.Context(), bookOne.ID)

			require.NoError(t, err)
			require.Len(t, reviews, 2)
		})
	})

	t.Run("recent by user is limited", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := ReviewRepo{DB: tx}
			user := createTestUser(t, tx, "prolific")
			book := createTestBook(t, tx, "Target", "A", "Fiction")

			for range 4 {
				_, err := repo.CreateReview(t.Context(), models.Review{BookID: book.ID, UserID: user.ID, Rating: 3})
				require.NoError(t, err)
			}

			reviews, err := repo.ListRecentByUser(t.Context(), user.ID, 2)
			require.NoError(t, err)
			require.Len(t, reviews, 2)

			count, err := repo.CountByUser(t.Context(), user.ID)
			require.NoError(t, err)
			require.EqualValues(t, 4, count)
		})
	})

	t.Run("delete review", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := ReviewRepo{DB: tx}
			user := createTestUser(t, tx, "deleter")
			book := createTestBook(t, tx, "Doomed", "A", "Fiction")

			review, err := repo.CreateReview(t.Context(), models.Review{BookID: book.ID, UserID: user.ID, Rating: 1})
			require.NoError(t, err)

			require.NoError(t, repo.DeleteReview(t.Context(), review.ID))

			err = repo.DeleteReview(t.Context(), review.ID)
			assert.ErrorIs(t, err, apperrors.ErrReviewNotFound)
		})
	})

	t.Run("reviews cascade with book", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			bookRepo := BookRepo{DB: tx}
			reviewRepo := ReviewRepo{DB: tx}
			user := createTestUser(t, tx, "orphaned")
			book := createTestBook(t, tx, "Removed", "A", "Fiction")

			_, err := reviewRepo.CreateReview(t.Context(), models.Review{BookID: book.ID, UserID: user.ID, Rating: 2})
			require.NoError(t, err)

			require.NoError(t, bookRepo.DeleteBook(t.Context(), book.ID))

			reviews, err := reviewRepo.ListByBook(t.Context(), book.ID)
			require.NoError(t, err)
			require.Empty(t, reviews)
		})
	})
}
