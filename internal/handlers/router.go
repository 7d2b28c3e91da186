package handlers

import (
	"context"
	"net/http"

	"github.com/fawasanayat/authgate/internal/handlers/middleware"
	"github.com/fawasanayat/authgate/internal/logger"
	"github.com/fawasanayat/authgate/internal/models"
)

type authService interface {
	// Register user with username, email and password
	// Has to return apperrors.ErrUserAlreadyExists if username is taken
	Register(ctx context.Context, username string, email string, password string) (models.User, error)

	// Login user with username and password
	// Has to return apperrors.ErrInvalidCredentials on any credential failure
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token used already: has to return apperrors.ErrRefreshTokenIsUsed
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(auth authService, l logger.Logger) http.Handler {
	authMiddleware := middleware.AuthMiddleware(auth)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiauth := http.NewServeMux()
	apiauth.Handle("POST /register", handleRegister(auth, l))
	apiauth.Handle("POST /login", handleLogin(auth, l))
	apiauth.Handle("POST /refresh", handleTokenRefresh(auth, l))

	apiuser := http.NewServeMux()
	apiuser.Handle("GET /me", withAuth(handleUserMe()))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))
	root.Handle("GET /health", handleHealth())

	handler := chain(root,
		middleware.LoggerMiddleware(l),
	)

	return handler
}
