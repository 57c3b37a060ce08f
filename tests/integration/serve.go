package integration

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/ivmartynov/bookverse/internal/handlers"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/repository"
	"github.com/ivmartynov/bookverse/internal/repository/postgres"
	"github.com/ivmartynov/bookverse/internal/service/admin"
	"github.com/ivmartynov/bookverse/internal/service/auth"
	"github.com/ivmartynov/bookverse/internal/service/auth/tokenmanager"
	"github.com/ivmartynov/bookverse/internal/service/book"
	"github.com/ivmartynov/bookverse/internal/service/review"
	"github.com/ivmartynov/bookverse/internal/testutil"
)

type Services struct {
	AuthService   *auth.AuthService
	BookService   *book.BookService
	ReviewService *review.ReviewService
	AdminService  *admin.AdminService
	Storage       repository.Storage
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// Everything the test changes is rolled back when it stops
func RunTx(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, s Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"}, storage)
		require.NoError(t, err, "token manager should be created without errors")

		as, err := auth.NewService(auth.Config{}, tokenManager, storage)
		require.NoError(t, err, "auth service starting error", err)

		bs := book.NewService(storage)
		rs := review.NewService(storage)
		ads := admin.NewService(storage)

		router := handlers.NewRouter(as, bs, rs, ads, logger.NewNoOpLogger())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(srv.URL, Services{
			AuthService:   as,
			BookService:   bs,
			ReviewService: rs,
			AdminService:  ads,
			Storage:       storage,
		})
	})
}
