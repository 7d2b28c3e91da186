package middleware

import (
	"context"
	"net/http"

	"github.com/fawasanayat/authgate/internal/handlers/render"
	"github.com/fawasanayat/authgate/internal/handlers/userctx"
	"github.com/fawasanayat/authgate/internal/models"
)

type authService interface {
	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware rejects requests without a valid bearer access token and
// puts the resolved user into the request context for downstream handlers
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Auth(r.Context(), r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
