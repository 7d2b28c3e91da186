package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawasanayat/authgate/internal/handlers/userctx"
	"github.com/fawasanayat/authgate/internal/models"
)

// authFunc adapts a plain function to the authService interface
type authFunc func(ctx context.Context, r *http.Request) (models.User, error)

func (f authFunc) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	return f(ctx, r)
}

func Test_AuthMiddleware(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok, "user should be set in context for downstream handlers")
		_, _ = w.Write([]byte(user.Username))
	})

	t.Run("authenticated request passed through", func(t *testing.T) {
		as := authFunc(func(ctx context.Context, r *http.Request) (models.User, error) {
			return models.User{Username: "someuser"}, nil
		})
		handler := AuthMiddleware(as)(next)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "someuser", w.Body.String())
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		as := authFunc(func(ctx context.Context, r *http.Request) (models.User, error) {
			return models.User{}, errors.New("bad token")
		})
		handler := AuthMiddleware(as)(next)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{"error": "service_error", "message": "Could not validate credentials"}`, w.Body.String())
	})
}
