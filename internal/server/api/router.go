package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires all routes. Session endpoints are open; everything under
// the authed subrouter requires a live access token.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/ping", h.Ping).Methods(http.MethodGet)
	r.HandleFunc("/api/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh", h.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", h.Logout).Methods(http.MethodPost)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(h.AuthMiddleware)
	authed.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}", h.PutUser).Methods(http.MethodPut)
	authed.HandleFunc("/uploads", h.CreateUpload).Methods(http.MethodPost)
	authed.HandleFunc("/uploads/url", h.GetUploadURL).Methods(http.MethodGet)

	return r
}
