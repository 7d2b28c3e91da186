package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fawasanayat/authgate/internal/apperrors"
	"github.com/fawasanayat/authgate/internal/handlers/render"
	"github.com/fawasanayat/authgate/internal/logger"
)

const tokenTypeBearer = "bearer"

// Token bundle returned on login and refresh
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func handleRegister(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Email    string    `json:"email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			l.Debug("register request rejected", "error", err.Error())
			return
		}

		user, err := auth.Register(r.Context(), data.Username, data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				l.Error("register failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{ID: user.ID, Username: user.Username, Email: user.Email})
	})
}

func handleLogin(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			l.Debug("login request rejected", "error", err.Error())
			return
		}

		pair, err := auth.Login(r.Context(), data.Username, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				// One message for unknown user and wrong password both
				render.ServiceError(w, "Invalid username or password", http.StatusUnauthorized)
			default:
				l.Error("login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, tokenResponse{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
			TokenType:    tokenTypeBearer,
		})
	})
}

func handleTokenRefresh(auth authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			l.Debug("refresh request rejected", "error", err.Error())
			return
		}

		pair, err := auth.RefreshPair(r.Context(), data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
				errors.Is(err, apperrors.ErrRefreshTokenIsUsed),
				errors.Is(err, apperrors.ErrRefreshTokenExpired),
				errors.Is(err, apperrors.ErrRefreshTokenInvalid):
				l.Debug("refresh token rejected", "error", err.Error())
				render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
			default:
				l.Error("refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, tokenResponse{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
			TokenType:    tokenTypeBearer,
		})
	})
}
