package handlers

import (
	"net/http"

	"github.com/ivmartynov/bookverse/internal/handlers/middleware"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	bookService bookService,
	reviewService reviewService,
	adminService adminService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.RequireAuth(authService)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	withAdmin := func(h http.Handler) http.Handler {
		return withAuth(adminOnly(h))
	}

	auth := NewAuth(authService, logger)
	books := NewBooks(bookService, logger)
	reviews := NewReviews(reviewService, logger)
	admin := NewAdmin(adminService, logger)

	apiauth := http.NewServeMux()
	apiauth.HandleFunc("POST /register", auth.register)
	apiauth.HandleFunc("POST /login", auth.login)
	apiauth.HandleFunc("POST /refresh", auth.refresh)
	apiauth.Handle("POST /logout", withAuth(http.HandlerFunc(auth.logout)))
	apiauth.Handle("GET /me", withAuth(http.HandlerFunc(auth.me)))

	// "/{$}" matches the bare collection path only, anything deeper than
	// one segment falls through to 404
	apibooks := http.NewServeMux()
	apibooks.HandleFunc("GET /{$}", books.list)
	apibooks.HandleFunc("GET /search", books.search)
	apibooks.HandleFunc("GET /top-rated", books.topRated)
	apibooks.HandleFunc("GET /genres", books.genres)
	apibooks.HandleFunc("GET /{id}", books.get)
	apibooks.Handle("POST /{$}", withAuth(http.HandlerFunc(books.create)))
	apibooks.Handle("PUT /{id}", withAdmin(http.HandlerFunc(books.update)))
	apibooks.Handle("DELETE /{id}", withAdmin(http.HandlerFunc(books.delete)))

	apireviews := http.NewServeMux()
	apireviews.HandleFunc("GET /{$}", reviews.list)
	apireviews.HandleFunc("GET /book/{bookId}", reviews.listByBook)
	apireviews.Handle("POST /{$}", withAuth(http.HandlerFunc(reviews.create)))
	apireviews.Handle("DELETE /{id}", withAdmin(http.HandlerFunc(reviews.delete)))

	apiadmin := http.NewServeMux()
	apiadmin.HandleFunc("GET /users", admin.listUsers)
	apiadmin.HandleFunc("GET /users/{id}", admin.userDetails)
	apiadmin.HandleFunc("PUT /users/{id}/ban", admin.banUser)
	apiadmin.HandleFunc("PUT /users/{id}/unban", admin.unbanUser)
	apiadmin.HandleFunc("PUT /users/{id}/role", admin.setRole)
	apiadmin.HandleFunc("DELETE /users/{id}", admin.deleteUser)
	apiadmin.HandleFunc("GET /stats", admin.stats)

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))
	root.Handle("/api/books/", http.StripPrefix("/api/books", apibooks))
	root.Handle("/api/reviews/", http.StripPrefix("/api/reviews", apireviews))
	root.Handle("/api/admin/", http.StripPrefix("/api/admin", chain(apiadmin, withAdmin)))

	// Collection paths without the trailing slash. A redirect would drop
	// the body on POST, so they are routed directly.
	root.HandleFunc("GET /api/books", books.list)
	root.Handle("POST /api/books", withAuth(http.HandlerFunc(books.create)))
	root.HandleFunc("GET /api/reviews", reviews.list)
	root.Handle("POST /api/reviews", withAuth(http.HandlerFunc(reviews.create)))

	handler := chain(root,
		middleware.Logger(logger),
	)

	return handler
}
