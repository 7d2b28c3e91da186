package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fawasanayat/authgate/internal/handlers/render"
	"github.com/fawasanayat/authgate/internal/handlers/userctx"
)

func handleUserMe() http.Handler {
	type response struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Email    string    `json:"email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{ID: user.ID, Username: user.Username, Email: user.Email})
	})
}
