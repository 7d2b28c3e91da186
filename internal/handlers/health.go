package handlers

import (
	"net/http"

	"github.com/fawasanayat/authgate/internal/handlers/render"
)

func handleHealth() http.Handler {
	type response struct {
		Status string `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, response{Status: "ok"})
	})
}
