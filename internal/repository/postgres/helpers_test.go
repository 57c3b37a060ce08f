package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/models"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func createTestUser(t *testing.T, tx pgx.Tx, username string) models.User {
	t.Helper()

	repo := UserRepo{DB: tx}
	user, err := repo.CreateUser(t.Context(), username, username+"@example.com", "fakehash", models.RoleUser)
	require.NoError(t, err, "user should be created without errors")
	return user
}

func createTestBook(t *testing.T, tx pgx.Tx, title string, author string, genre string) models.Book {
	t.Helper()

	repo := BookRepo{DB: tx}
	book, err := repo.CreateBook(t.Context(), models.Book{
		Title:       title,
		Author:      author,
		Genre:       genre,
		Description: "test book",
	})
	require.NoError(t, err, "book should be created without errors")
	return book
}
