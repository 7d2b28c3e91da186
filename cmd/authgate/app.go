package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fawasanayat/authgate/internal/db"
	"github.com/fawasanayat/authgate/internal/handlers"
	"github.com/fawasanayat/authgate/internal/logger"
	"github.com/fawasanayat/authgate/internal/repository"
	"github.com/fawasanayat/authgate/internal/repository/postgres"
	"github.com/fawasanayat/authgate/internal/service/auth"
	"github.com/fawasanayat/authgate/internal/service/auth/tokenmanager"
)

// How often expired refresh token records are swept from the ledger
const refreshSweepPeriod = time.Hour

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	storage repository.Storage
	logger  logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	if c.DatabaseDSN == "" {
		return nil, errors.New("database dsn must not be empty")
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

	mux := handlers.NewRouter(authService, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		storage:    storage,
		logger:     log,
	}, nil
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

	go s.sweepExpiredTokens(srvCtx)

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
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// sweepExpiredTokens periodically deletes expired refresh token records
func (s *ServerApp) sweepExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(refreshSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.storage.Refresh().DeleteExpired(ctx, time.Now())
			if err != nil {
				s.logger.Error("expired token sweep failed", "error", err.Error())
				continue
			}
			if deleted > 0 {
				s.logger.Info("expired refresh tokens deleted", "count", deleted)
			}
		}
	}
}
