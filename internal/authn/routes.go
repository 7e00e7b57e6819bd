package authn

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes — публичная поверхность /auth/*.
// Публичной регистрации нет: пользователей создаёт админ через /users.
func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/auth").Subrouter()
	sub.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	sub.HandleFunc("/request-password-reset", h.RequestPasswordReset).Methods(http.MethodPost)
	sub.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)
}
