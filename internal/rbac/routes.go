package rbac

import (
	"net/http"

	"github.com/gorilla/mux"

	"otec/internal/authn"
	"otec/internal/models"
)

// RegisterRoutes — админская поверхность ролей и permissions.
// Чтение ролей доступно любому аутентифицированному пользователю,
// всё остальное — только админу.
func RegisterRoutes(r *mux.Router, h *Handler, tokens *authn.TokenService) {
	admin := authn.RequireRoles(models.RoleAdmin)

	roles := r.PathPrefix("/roles").Subrouter()
	roles.Use(authn.JWTAuth(tokens))
	roles.HandleFunc("", h.ListRoles).Methods(http.MethodGet)
	roles.HandleFunc("/{id}", h.GetRole).Methods(http.MethodGet)
	roles.Handle("", admin(http.HandlerFunc(h.CreateRole))).Methods(http.MethodPost)
	roles.Handle("/{id}", admin(http.HandlerFunc(h.UpdateRole))).Methods(http.MethodPatch)
	roles.Handle("/{id}", admin(http.HandlerFunc(h.DeleteRole))).Methods(http.MethodDelete)

	perms := r.PathPrefix("/permissions").Subrouter()
	perms.Use(authn.JWTAuth(tokens), admin)
	perms.HandleFunc("/role/{roleId}", h.GetRolePermissions).Methods(http.MethodGet)
	perms.HandleFunc("/role/{roleId}/defaults", h.CreateDefaultPermissions).Methods(http.MethodPost)
	perms.HandleFunc("/role/{roleId}/bulk", h.BulkUpdatePermissions).Methods(http.MethodPut)
	perms.HandleFunc("/{id}", h.UpdatePermission).Methods(http.MethodPatch)
}
