package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/ivmartynov/bookverse/internal/db"
	"github.com/ivmartynov/bookverse/internal/handlers"
	"github.com/ivmartynov/bookverse/internal/logger"
	"github.com/ivmartynov/bookverse/internal/repository/postgres"
	"github.com/ivmartynov/bookverse/internal/service/admin"
	"github.com/ivmartynov/bookverse/internal/service/auth"
	"github.com/ivmartynov/bookverse/internal/service/auth/tokenmanager"
	"github.com/ivmartynov/bookverse/internal/service/book"
	"github.com/ivmartynov/bookverse/internal/service/review"
	"github.com/ivmartynov/bookverse/internal/service/seed"
)

const tokenPurgeInterval = time.Hour

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger       logger.Logger
	tokenManager *tokenmanager.TokenManager
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokenManager, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	bookService := book.NewService(storage)
	reviewService := review.NewService(storage)
	adminService := admin.NewService(storage)

	if c.Seed {
		if err := seed.New(storage, auth.DefaultHasher, logger).Run(ctx); err != nil {
			return nil, fmt.Errorf("error while seeding database. Err: %w", err)
		}
	}

	mux := handlers.NewRouter(
		authService,
		bookService,
		reviewService,
		adminService,
		logger,
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   c.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	return &ServerApp{
		ListenAddr:   c.ListenAddr,
		Handler:      corsHandler,
		logger:       logger,
		tokenManager: tokenManager,
	}, nil
}

// purgeExpiredTokens drops refresh tokens that can never validate again,
// once an hour until the context is cancelled.
func (s *ServerApp) purgeExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.tokenManager.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error("refresh token purge failed", "error", err.Error())
				continue
			}
			if deleted > 0 {
				s.logger.Info("purged expired refresh tokens", "count", deleted)
			}
		}
	}
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go s.purgeExpiredTokens(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
