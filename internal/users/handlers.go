package users

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"otec/internal/authn"
	"otec/internal/logs"
	"otec/internal/models"
	"otec/internal/repo"
)

type Handler struct {
	users *repo.UserStore
	auth  *authn.Service
}

func NewHandler(users *repo.UserStore, auth *authn.Service) *Handler {
	return &Handler{users: users, auth: auth}
}

func (h *Handler) writeStoreErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "", nil)
		return
	}
	logs.Logger.Errorf("users: %s: %v", op, err)
	models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
}

// GET /users (admin)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.writeStoreErr(w, "list", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, list)
}

// GET /users/{id} (admin)
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeStoreErr(w, "get", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, u)
}

type createRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	RoleIDs   []string `json:"roleIds"`
}

// POST /users (admin) — создание пользователя с ролями.
// Делегирует в authn.Service.Register: новый пользователь сразу
// получает свой access-токен в ответе.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	fe := models.FieldErrors{}
	if !models.ValidEmail(req.Email) {
		fe.Add("email", "must be a valid email address")
	}
	if len(req.Password) < 6 {
		fe.Add("password", "must be at least 6 characters")
	}
	if req.FirstName == "" {
		fe.Add("firstName", "must not be empty")
	}
	if req.LastName == "" {
		fe.Add("lastName", "must not be empty")
	}
	if len(fe) > 0 {
		models.WriteValidation(w, fe)
		return
	}

	res, err := h.auth.Register(r.Context(), authn.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleIDs:   req.RoleIDs,
	})
	if err != nil {
		if errors.Is(err, authn.ErrEmailTaken) {
			models.WriteProblem(w, http.StatusConflict, "Conflict", err.Error(), nil)
			return
		}
		h.writeStoreErr(w, "create", err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, res)
}

type updateRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	IsActive  *bool   `json:"isActive"`
}

// PATCH /users/{id} (admin)
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	fe := models.FieldErrors{}
	if req.Email != nil && !models.ValidEmail(*req.Email) {
		fe.Add("email", "must be a valid email address")
	}
	if req.Password != nil && len(*req.Password) < 6 {
		fe.Add("password", "must be at least 6 characters")
	}
	if len(fe) > 0 {
		models.WriteValidation(w, fe)
		return
	}

	u, err := h.users.Update(r.Context(), mux.Vars(r)["id"], repo.UpdateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.writeStoreErr(w, "update", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, u)
}

type updateRolesRequest struct {
	RoleIDs []string `json:"roleIds"`
}

// PATCH /users/{id}/roles (admin) — полная замена набора ролей.
func (h *Handler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	var req updateRolesRequest
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	u, err := h.users.UpdateRoles(r.Context(), mux.Vars(r)["id"], req.RoleIDs)
	if err != nil {
		h.writeStoreErr(w, "update roles", err)
		return
	}
	// роли в выданных токенах не обновляются — только после перелогина
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"user":    u,
		"message": "Role changes take effect after the user logs in again.",
	})
}

// DELETE /users/{id} (admin)
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeStoreErr(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
