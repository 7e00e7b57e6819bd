package rbac

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"otec/internal/logs"
	"otec/internal/models"
	"otec/internal/repo"
)

type Handler struct {
	roles *repo.RoleStore
	perms *repo.PermissionStore
}

func NewHandler(roles *repo.RoleStore, perms *repo.PermissionStore) *Handler {
	return &Handler{roles: roles, perms: perms}
}

func (h *Handler) writeStoreErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "", nil)
		return
	}
	// детали ошибок хранилища наружу не отдаём
	logs.Logger.Errorf("rbac: %s: %v", op, err)
	models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
}

// GET /roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.FindAll(r.Context())
	if err != nil {
		h.writeStoreErr(w, "list roles", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, roles)
}

// GET /roles/{id}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeStoreErr(w, "get role", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, role)
}

type roleBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// POST /roles (admin)
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleBody
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	fe := models.FieldErrors{}
	if req.Name == nil || *req.Name == "" {
		fe.Add("name", "must not be empty")
	} else if !models.IsKnownRole(*req.Name) {
		fe.Add("name", "must be one of the known role names")
	}
	if len(fe) > 0 {
		models.WriteValidation(w, fe)
		return
	}

	role := models.Role{Name: *req.Name}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if err := h.roles.Create(r.Context(), &role); err != nil {
		h.writeStoreErr(w, "create role", err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, role)
}

// PATCH /roles/{id} (admin)
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleBody
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	if req.Name != nil && !models.IsKnownRole(*req.Name) {
		fe := models.FieldErrors{}
		fe.Add("name", "must be one of the known role names")
		models.WriteValidation(w, fe)
		return
	}
	role, err := h.roles.Update(r.Context(), mux.Vars(r)["id"], req.Name, req.Description)
	if err != nil {
		h.writeStoreErr(w, "update role", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, role)
}

// DELETE /roles/{id} (admin)
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.roles.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeStoreErr(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /permissions/role/{roleId} (admin)
func (h *Handler) GetRolePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.perms.FindByRoleID(r.Context(), mux.Vars(r)["roleId"])
	if err != nil {
		h.writeStoreErr(w, "list permissions", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, perms)
}

// POST /permissions/role/{roleId}/defaults (admin)
func (h *Handler) CreateDefaultPermissions(w http.ResponseWriter, r *http.Request) {
	roleID := mux.Vars(r)["roleId"]
	if _, err := h.roles.FindByID(r.Context(), roleID); err != nil {
		h.writeStoreErr(w, "defaults: find role", err)
		return
	}
	perms, err := h.perms.CreateDefaults(r.Context(), roleID)
	if err != nil {
		h.writeStoreErr(w, "create default permissions", err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, perms)
}

type permissionBody struct {
	ModuleName string `json:"moduleName"`
	Feature    string `json:"feature"`
	CanView    bool   `json:"canView"`
	CanAdd     bool   `json:"canAdd"`
	CanEdit    bool   `json:"canEdit"`
	CanDelete  bool   `json:"canDelete"`
}

// PUT /permissions/role/{roleId}/bulk (admin)
// Тело — полный желаемый набор: чего в нём нет, того у роли не будет.
func (h *Handler) BulkUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	roleID := mux.Vars(r)["roleId"]
	if _, err := h.roles.FindByID(r.Context(), roleID); err != nil {
		h.writeStoreErr(w, "bulk: find role", err)
		return
	}

	var body []permissionBody
	if err := models.DecodeStrict(r, &body); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	fe := models.FieldErrors{}
	for _, p := range body {
		if p.ModuleName == "" {
			fe.Add("moduleName", "must not be empty")
		}
		if p.Feature == "" {
			fe.Add("feature", "must not be empty")
		}
	}
	if len(fe) > 0 {
		models.WriteValidation(w, fe)
		return
	}

	perms := make([]models.Permission, 0, len(body))
	for _, p := range body {
		perms = append(perms, models.Permission{
			ModuleName: p.ModuleName,
			Feature:    p.Feature,
			CanView:    p.CanView,
			CanAdd:     p.CanAdd,
			CanEdit:    p.CanEdit,
			CanDelete:  p.CanDelete,
		})
	}
	out, err := h.perms.BulkReplace(r.Context(), roleID, perms)
	if err != nil {
		h.writeStoreErr(w, "bulk update permissions", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, out)
}

type permissionPatch struct {
	CanView   *bool `json:"canView"`
	CanAdd    *bool `json:"canAdd"`
	CanEdit   *bool `json:"canEdit"`
	CanDelete *bool `json:"canDelete"`
}

// PATCH /permissions/{id} (admin)
func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionPatch
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	p, err := h.perms.UpdateOne(r.Context(), mux.Vars(r)["id"], repo.FlagPatch{
		CanView:   req.CanView,
		CanAdd:    req.CanAdd,
		CanEdit:   req.CanEdit,
		CanDelete: req.CanDelete,
	})
	if err != nil {
		h.writeStoreErr(w, "update permission", err)
		return
	}
	models.WriteJSON(w, http.StatusOK, p)
}
