package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivmartynov/bookverse/internal/apperrors"
	"github.com/ivmartynov/bookverse/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, password_hash, role, banned)
VALUES ($1, $2, $3, $4, $5, false)
RETURNING id, created_at, username, email, password_hash, role, banned
`

func (r *UserRepo) CreateUser(ctx context.Context, username string, email string, hashedPassword string, role models.Role) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), username, email, hashedPassword, role)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// The violated constraint tells which field collided
			if strings.Contains(pgErr.ConstraintName, "email") {
				return user, apperrors.ErrEmailTaken
			}
			return user, apperrors.ErrUsernameTaken
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const lockUser = `-- name: LockUser
SELECT id FROM users
WHERE id = $1
FOR UPDATE
`

// Lock takes the user row lock for the rest of the transaction.
// Session writers take it before touching refresh_tokens so concurrent
// issues and rotations for one user run strictly one after another
func (r *UserRepo) Lock(ctx context.Context, userID uuid.UUID) error {
	rows, _ := r.DB.Query(ctx, lockUser, userID)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, email, password_hash, role, banned FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, username, email, password_hash, role, banned FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, username, email, password_hash, role, banned FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, username, email, password_hash, role, banned FROM users
ORDER BY created_at
`

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

const searchUsers = `-- name: SearchUsers
SELECT id, created_at, username, email, password_hash, role, banned FROM users
WHERE username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
ORDER BY created_at
`

func (r *UserRepo) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, searchUsers, query)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

const setBanned = `-- name: SetBanned
UPDATE users
SET banned = $2
WHERE id = $1
RETURNING id, created_at, username, email, password_hash, role, banned
`

func (r *UserRepo) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setBanned, userID, banned)
	return collectUser(rows)
}

const setRole = `-- name: SetRole
UPDATE users
SET role = $2
WHERE id = $1
RETURNING id, created_at, username, email, password_hash, role, banned
`

func (r *UserRepo) SetRole(ctx context.Context, userID uuid.UUID, role models.Role) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setRole, userID, role)
	return collectUser(rows)
}

// Delete user row. Reviews and refresh tokens go with it, the schema
// cascades on user deletion
func (r *UserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func (r *UserRepo) CountUsers(ctx context.Context) (int64, error) {
	return countRows(ctx, r.DB, `SELECT count(*) FROM users`)
}

func (r *UserRepo) CountBanned(ctx context.Context) (int64, error) {
	return countRows(ctx, r.DB, `SELECT count(*) FROM users WHERE banned`)
}

func countRows(ctx context.Context, db DBTX, sql string) (int64, error) {
	rows, _ := db.Query(ctx, sql)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.HashedPassword, &u.Role, &u.Banned)
	return u, err
}
