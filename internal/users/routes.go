package users

import (
	"net/http"

	"github.com/gorilla/mux"

	"otec/internal/authn"
	"otec/internal/models"
)

// RegisterRoutes — управление пользователями, целиком под админом.
func RegisterRoutes(r *mux.Router, h *Handler, tokens *authn.TokenService) {
	sub := r.PathPrefix("/users").Subrouter()
	sub.Use(authn.JWTAuth(tokens), authn.RequireRoles(models.RoleAdmin))
	sub.HandleFunc("", h.List).Methods(http.MethodGet)
	sub.HandleFunc("", h.Create).Methods(http.MethodPost)
	sub.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	sub.HandleFunc("/{id}", h.Update).Methods(http.MethodPatch)
	sub.HandleFunc("/{id}/roles", h.UpdateRoles).Methods(http.MethodPatch)
	sub.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
}
