package reviews

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/models"
	"github.com/ivmartynov/bookverse/internal/testutil"
	"github.com/ivmartynov/bookverse/tests/integration"
)

const ReviewsURL = "/api/reviews"

func Test_Reviews(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	setup := func(t *testing.T, s integration.Services) (models.Book, string) {
		t.Helper()

		book, err := s.BookService.Create(t.Context(), models.Book{Title: "Reviewed", Author: "Author"})
		require.NoError(t, err)

		_, err = s.AuthService.Register(t.Context(), "critic", "critic@example.com", "pwd123")
		require.NoError(t, err)
		pair, _, err := s.AuthService.Login(t.Context(), "critic", "pwd123")
		require.NoError(t, err)

		return book, pair.Access.Value
	}

	postReview := func(t *testing.T, srvURL string, access string, body string) *http.Response {
		t.Helper()

		req, err := http.NewRequest(http.MethodPost, srvURL+ReviewsURL, strings.NewReader(body))
		require.NoError(t, err)
		if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("create review ok", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			book, access := setup(t, s)

			data := fmt.Sprintf(`{"bookId": %q, "rating": 5, "reviewText": "loved it"}`, book.ID)
			resp := postReview(t, srvURL, access, data)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Contains(t, string(body), `"rating":5`)

			got, err := s.Storage.Book().GetBook(t.Context(), book.ID)
			require.NoError(t, err)
			require.True(t, got.AverageRating.Equal(decimal.NewFromInt(5)), "review must feed the average rating, got %s", got.AverageRating)
		})
	})

	t.Run("create requires auth", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			book, _ := setup(t, s)

			data := fmt.Sprintf(`{"bookId": %q, "rating": 5}`, book.ID)
			resp := postReview(t, srvURL, "", data)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	})

	t.Run("rating out of range", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			book, access := setup(t, s)

			data := fmt.Sprintf(`{"bookId": %q, "rating": 9}`, book.ID)
			resp := postReview(t, srvURL, access, data)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Contains(t, string(body), "validation_failed")
		})
	})

	t.Run("review for missing book", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			_, access := setup(t, s)

			data := `{"bookId": "7c2e1a92-0000-0000-0000-000000000000", "rating": 3}`
			resp := postReview(t, srvURL, access, data)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})

	t.Run("banned user can't review", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			book, access := setup(t, s)

			user, err := s.Storage.User().GetUserByUsername(t.Context(), "critic")
			require.NoError(t, err)
			_, err = s.Storage.User().SetBanned(t.Context(), user.ID, true)
			require.NoError(t, err)

			data := fmt.Sprintf(`{"bookId": %q, "rating": 1}`, book.ID)
			resp := postReview(t, srvURL, access, data)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusForbidden, resp.StatusCode, "not expected code. Body: %s", string(body))
		})
	})

	t.Run("list by book", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			book, _ := setup(t, s)
			user, err := s.Storage.User().GetUserByUsername(t.Context(), "critic")
			require.NoError(t, err)
			principal := models.Principal{Username: user.Username, Role: user.Role}

			_, err = s.ReviewService.Create(t.Context(), principal, book.ID, 4, "fine")
			require.NoError(t, err)

			resp, err := http.Get(srvURL + ReviewsURL + "/book/" + book.ID.String())
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, string(body), `"reviewText":"fine"`)
		})
	})

	t.Run("delete is admin only", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			book, access := setup(t, s)
			user, err := s.Storage.User().GetUserByUsername(t.Context(), "critic")
			require.NoError(t, err)
			principal := models.Principal{Username: user.Username, Role: user.Role}

			review, err := s.ReviewService.Create(t.Context(), principal, book.ID, 2, "meh")
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodDelete, srvURL+ReviewsURL+"/"+review.ID.String(), nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+access)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	})
}
