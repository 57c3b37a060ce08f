package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/repository"
)

type BookRepo struct {
	DB DBTX
}

// Every book select carries the derived average rating so the model is
// always complete
const bookColumns = `b.id, b.created_at, b.updated_at, b.title, b.author, b.genre, b.description, b.image_url, b.view_count,
COALESCE((SELECT AVG(r.rating) FROM reviews r WHERE r.book_id = b.id), 0)::numeric AS average_rating`

// Columns accepted in ORDER BY. The sort field comes from a query
// string, it must never reach the SQL text unmapped
var sortColumns = map[string]string{
	repository.SortByCreatedAt: "b.created_at",
	repository.SortByTitle:     "b.title",
	repository.SortByAuthor:    "b.author",
}

func orderByClause(params repository.ListParams) string {
	column, ok := sortColumns[params.SortBy]
	if !ok {
		column = "b.created_at"
	}

	direction := "DESC"
	if params.SortDir == "asc" {
		direction = "ASC"
	}

	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}

const createBook = `-- name: CreateBook
INSERT INTO books (id, created_at, updated_at, title, author, genre, description, image_url, view_count)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, 0)
RETURNING id, created_at, updated_at, title, author, genre, description, image_url, view_count, 0::numeric AS average_rating
`

func (r *BookRepo) CreateBook(ctx context.Context, book models.Book) (models.Book, error) {
	id := book.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()

	rows, _ := r.DB.Query(ctx, createBook, id, now, book.Title, book.Author, book.Genre, book.Description, book.ImageURL)
	created, err := pgx.CollectOneRow(rows, rowToBook)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

var getBook = `-- name: GetBook
SELECT ` + bookColumns + `
FROM books b
WHERE b.id = $1
`

func (r *BookRepo) GetBook(ctx context.Context, bookID uuid.UUID) (models.Book, error) {
	rows, _ := r.DB.Query(ctx, getBook, bookID)
	return collectBook(rows)
}

var updateBook = `-- name: UpdateBook
UPDATE books b
SET title = $2, author = $3, genre = $4, description = $5, image_url = $6, updated_at = $7
WHERE b.id = $1
RETURNING ` + bookColumns + `
`

func (r *BookRepo) UpdateBook(ctx context.Context, book models.Book) (models.Book, error) {
	rows, _ := r.DB.Query(ctx, updateBook, book.ID, book.Title, book.Author, book.Genre, book.Description, book.ImageURL, time.Now())
	return collectBook(rows)
}

func (r *BookRepo) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrBookNotFound
	default:
		return nil
	}
}

func (r *BookRepo) ListBooks(ctx context.Context, params repository.ListParams) ([]models.Book, int64, error) {
	query := `SELECT ` + bookColumns + `, COUNT(*) OVER () AS total
FROM books b
` + orderByClause(params) + `
LIMIT $1 OFFSET $2`

	rows, _ := r.DB.Query(ctx, query, params.Size, params.Page*params.Size)
	return collectBookPage(rows)
}

func (r *BookRepo) SearchBooks(ctx context.Context, filter repository.BookFilter, params repository.ListParams) ([]models.Book, int64, error) {
	// Free text query searches every field and overrides field filters
	if filter.Query != "" {
		filter = repository.BookFilter{Query: filter.Query}
	}

	query := `SELECT ` + bookColumns + `, COUNT(*) OVER () AS total
FROM books b
WHERE ($1 = '' OR b.title ILIKE '%' || $1 || '%' OR b.author ILIKE '%' || $1 || '%' OR b.genre ILIKE '%' || $1 || '%')
  AND ($2 = '' OR b.title ILIKE '%' || $2 || '%')
  AND ($3 = '' OR b.author ILIKE '%' || $3 || '%')
  AND ($4 = '' OR b.genre ILIKE '%' || $4 || '%')
` + orderByClause(params) + `
LIMIT $5 OFFSET $6`

	rows, _ := r.DB.Query(ctx, query, filter.Query, filter.Title, filter.Author, filter.Genre, params.Size, params.Page*params.Size)
	return collectBookPage(rows)
}

var topRated = `-- name: TopRated
SELECT ` + bookColumns + `
FROM books b
ORDER BY average_rating DESC, b.created_at DESC
LIMIT $1
`

func (r *BookRepo) TopRated(ctx context.Context, limit int) ([]models.Book, error) {
	rows, _ := r.DB.Query(ctx, topRated, limit)
	books, err := pgx.CollectRows(rows, rowToBook)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return books, nil
}

func (r *BookRepo) Genres(ctx context.Context) ([]string, error) {
	rows, _ := r.DB.Query(ctx, `SELECT DISTINCT genre FROM books WHERE genre <> '' ORDER BY genre`)
	genres, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return genres, nil
}

func (r *BookRepo) IncrementViewCount(ctx context.Context, bookID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `UPDATE books SET view_count = view_count + 1 WHERE id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *BookRepo) CountBooks(ctx context.Context) (int64, error) {
	return countRows(ctx, r.DB, `SELECT count(*) FROM books`)
}

func collectBook(rows pgx.Rows) (models.Book, error) {
	book, err := pgx.CollectOneRow(rows, rowToBook)

	switch {
	case err == nil:
		return book, nil
	case errors.Is(err, pgx.ErrNoRows):
		return book, apperrors.ErrBookNotFound
	default:
		return book, fmt.Errorf("db error: %w", err)
	}
}

func collectBookPage(rows pgx.Rows) ([]models.Book, int64, error) {
	var total int64
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Book, error) {
		var b models.Book
		err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.Title, &b.Author, &b.Genre, &b.Description, &b.ImageURL, &b.ViewCount, &b.AverageRating, &total)
		return b, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return books, total, nil
}

func rowToBook(row pgx.CollectableRow) (models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt, &b.Title, &b.Author, &b.Genre, &b.Description, &b.ImageURL, &b.ViewCount, &b.AverageRating)
	return b, err
}
