package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/models"
)

// Sort field names accepted from the outside world. Repositories map them
// to column names, everything else falls back to ListDefaults.
const (
	SortByCreatedAt = "createdAt"
	SortByTitle     = "title"
	SortByAuthor    = "author"
)

// ListParams describes pagination and ordering for book listings.
// Page is zero based.
type ListParams struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// BookFilter narrows a book search. Query wins over the per-field
// filters when both are set: it matches title OR author OR genre.
type BookFilter struct {
	Query  string
	Title  string
	Author string
	Genre  string
}

type UserRepo interface {
	// Create user
	// Duplicate email or username must map to apperrors.ErrEmailTaken
	// or apperrors.ErrUsernameTaken respectively
	CreateUser(ctx context.Context, username string, email string, hashedPassword string, role models.Role) (models.User, error)

	// Lock the user row until the surrounding transaction ends.
	// Serializes session writes per user, apperrors.ErrUserNotFound
	// when the user is absent
	Lock(ctx context.Context, userID uuid.UUID) error

	// Lookups return apperrors.ErrUserNotFound when the user is absent
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	SetBanned(ctx context.Context, userID uuid.UUID, banned bool) (models.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, role models.Role) (models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	CountUsers(ctx context.Context) (int64, error)
	CountBanned(ctx context.Context) (int64, error)
}

type RefreshTokenRepo interface {
	// Save token as is. Token string collision maps to db error,
	// the unique index is the backstop against random value reuse
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token whatever state it is in, or apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Atomically revoke a live token and return its pre-revocation
	// state. Already revoked tokens map to apperrors.ErrRefreshTokenRevoked,
	// missing ones to apperrors.ErrRefreshTokenNotFound
	MarkRevoked(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Set revoked flag on a single token. Missing token is not an error:
	// logout with a bogus token should not leak whether it ever existed
	Revoke(ctx context.Context, tokenString string) error

	// Bulk revoke every live token of a user, returns the number touched
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Housekeeping, validity checks never rely on it
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type BookRepo interface {
	CreateBook(ctx context.Context, book models.Book) (models.Book, error)

	// Returns apperrors.ErrBookNotFound when absent
	GetBook(ctx context.Context, bookID uuid.UUID) (models.Book, error)
	UpdateBook(ctx context.Context, book models.Book) (models.Book, error)
	DeleteBook(ctx context.Context, bookID uuid.UUID) error

	// ListBooks and SearchBooks return one page plus the total row count
	ListBooks(ctx context.Context, params ListParams) ([]models.Book, int64, error)
	SearchBooks(ctx context.Context, filter BookFilter, params ListParams) ([]models.Book, int64, error)

	TopRated(ctx context.Context, limit int) ([]models.Book, error)
	Genres(ctx context.Context) ([]string, error)
	IncrementViewCount(ctx context.Context, bookID uuid.UUID) error

	CountBooks(ctx context.Context) (int64, error)
}

type ReviewRepo interface {
	CreateReview(ctx context.Context, review models.Review) (models.Review, error)

	ListReviews(ctx context.Context) ([]models.Review, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]models.Review, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Review, error)

	DeleteReview(ctx context.Context, reviewID uuid.UUID) error

	CountReviews(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Storage bundles the repositories over one connection or transaction.
// InTx runs fn with a Storage bound to a single transaction and commits
// when fn returns nil, rolls back otherwise.
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Book() BookRepo
	Review() ReviewRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}
