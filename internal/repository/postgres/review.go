package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
)

type ReviewRepo struct {
	DB DBTX
}

const createReview = `-- name: CreateReview
INSERT INTO reviews (id, book_id, user_id, rating, review_text, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, book_id, user_id, rating, review_text, created_at
`

func (r *ReviewRepo) CreateReview(ctx context.Context, review models.Review) (models.Review, error) {
	id := review.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createReview, id, review.BookID, review.UserID, review.Rating, review.ReviewText, createdAt)
	created, err := pgx.CollectOneRow(rows, rowToReview)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, apperrors.ErrBookNotFound
		}
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listReviews = `-- name: ListReviews
SELECT id, book_id, user_id, rating, review_text, created_at FROM reviews
ORDER BY created_at DESC
`

func (r *ReviewRepo) ListReviews(ctx context.Context) ([]models.Review, error) {
	rows, _ := r.DB.Query(ctx, listReviews)
	return collectReviews(rows)
}

const listByBook = `-- name: ListByBook
SELECT id, book_id, user_id, rating, review_text, created_at FROM reviews
WHERE book_id = $1
ORDER BY created_at DESC
`

func (r *ReviewRepo) ListByBook(ctx context.Context, bookID uuid.UUID) ([]models.Review, error) {
	rows, _ := r.DB.Query(ctx, listByBook, bookID)
	return collectReviews(rows)
}

const listRecentByUser = `-- name: ListRecentByUser
SELECT id, book_id, user_id, rating, review_text, created_at FROM reviews
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (r *ReviewRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Review, error) {
	rows, _ := r.DB.Query(ctx, listRecentByUser, userID, limit)
	return collectReviews(rows)
}

func (r *ReviewRepo) DeleteReview(ctx context.Context, reviewID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrReviewNotFound
	default:
		return nil
	}
}

func (r *ReviewRepo) CountReviews(ctx context.Context) (int64, error) {
	return countRows(ctx, r.DB, `SELECT count(*) FROM reviews`)
}

const countByUser = `SELECT count(*) FROM reviews WHERE user_id = $1`

func (r *ReviewRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	rows, _ := r.DB.Query(ctx, countByUser, userID)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func collectReviews(rows pgx.Rows) ([]models.Review, error) {
	reviews, err := pgx.CollectRows(rows, rowToReview)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return reviews, nil
}

func rowToReview(row pgx.CollectableRow) (models.Review, error) {
	var rv models.Review
	err := row.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.ReviewText, &rv.CreatedAt)
	return rv, err
}
