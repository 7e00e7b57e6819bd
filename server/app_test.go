package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otec/config"
	"otec/internal/authn"
	"otec/internal/models"
)

var appDBSeq atomic.Int64

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.HTTPPort = "0"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTLMinutes = 60
	cfg.Auth.ResetTTLMinutes = 60
	cfg.Auth.BcryptCost = 4
	cfg.Auth.ExposeResetToken = true
	cfg.Bootstrap.AdminEmail = "admin@example.com"
	cfg.Bootstrap.AdminPassword = "Admin@123"
	cfg.Bootstrap.AdminFirstName = "Admin"
	cfg.Bootstrap.AdminLastName = "User"
	cfg.Logging.Level = "error"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = fmt.Sprintf("file:app_test_%d?mode=memory&cache=shared", appDBSeq.Add(1))

	app := &App{}
	app.Initialize(cfg)
	return app
}

func doJSON(t *testing.T, app *App, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, app *App, email, password string) authn.LoginResult {
	t.Helper()
	rec := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res authn.LoginResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func createUser(t *testing.T, app *App, adminToken, email, password string, roleIDs []string) {
	t.Helper()
	rec := doJSON(t, app, http.MethodPost, "/users", adminToken, map[string]any{
		"email":     email,
		"password":  password,
		"firstName": "E",
		"lastName":  "U",
		"roleIds":   roleIDs,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func roleIDByName(t *testing.T, app *App, adminToken, name string) string {
	t.Helper()
	rec := doJSON(t, app, http.MethodGet, "/roles", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles []models.Role
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&roles))
	for _, r := range roles {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("role %s not found", name)
	return ""
}

func TestApp_AdminLoginAndRoleGate(t *testing.T) {
	app := newTestApp(t)

	admin := loginAs(t, app, "admin@example.com", "Admin@123")
	assert.NotEmpty(t, admin.AccessToken)
	assert.Contains(t, admin.User.Roles, models.RoleAdmin)

	// админский маршрут с админским токеном
	rec := doJSON(t, app, http.MethodGet, "/users", admin.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// без токена — unauthenticated, не forbidden
	rec = doJSON(t, app, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// employee против admin-only маршрута — 403 с обоими наборами ролей
	empID := roleIDByName(t, app, admin.AccessToken, models.RoleEmployee)
	createUser(t, app, admin.AccessToken, "emp@example.com", "Emp@123", []string{empID})
	emp := loginAs(t, app, "emp@example.com", "Emp@123")
	assert.Equal(t, []string{models.RoleEmployee}, emp.User.Roles)

	rec = doJSON(t, app, http.MethodGet, "/users", emp.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	var p models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Contains(t, p.Detail, models.RoleAdmin)
	assert.Contains(t, p.Detail, models.RoleEmployee)
}

func TestApp_BadCredentials(t *testing.T) {
	app := newTestApp(t)

	// неверный пароль и незнакомый email дают один и тот же ответ
	rec1 := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	rec2 := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec1.Code)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
}

func TestApp_UnknownFieldRejected(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "Admin@123", "extra": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApp_PasswordResetFlow(t *testing.T) {
	app := newTestApp(t)
	admin := loginAs(t, app, "admin@example.com", "Admin@123")
	createUser(t, app, admin.AccessToken, "reset@example.com", "Old@123", nil)

	rec := doJSON(t, app, http.MethodPost, "/auth/request-password-reset", "", map[string]string{
		"email": "reset@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res authn.ResetRequestResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.NotEmpty(t, res.Token, "dev mode returns the raw token")

	rec = doJSON(t, app, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": res.Token, "newPassword": "New@123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// старый пароль мёртв, новый работает
	bad := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "reset@example.com", "password": "Old@123",
	})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	loginAs(t, app, "reset@example.com", "New@123")

	// повторное подтверждение тем же токеном — 400
	rec = doJSON(t, app, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": res.Token, "newPassword": "Third@123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApp_ResetRequestUniformForUnknownEmail(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/auth/request-password-reset", "", map[string]string{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res authn.ResetRequestResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Empty(t, res.Token)
	assert.NotEmpty(t, res.Message)
}

func TestApp_PermissionsSurface(t *testing.T) {
	app := newTestApp(t)
	admin := loginAs(t, app, "admin@example.com", "Admin@123")
	managerID := roleIDByName(t, app, admin.AccessToken, models.RoleManager)

	// defaults
	rec := doJSON(t, app, http.MethodPost, "/permissions/role/"+managerID+"/defaults", admin.AccessToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var perms []models.Permission
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&perms))
	assert.NotEmpty(t, perms)

	// bulk с пустым телом — полная зачистка
	rec = doJSON(t, app, http.MethodPut, "/permissions/role/"+managerID+"/bulk", admin.AccessToken, []any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, app, http.MethodGet, "/permissions/role/"+managerID, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perms = perms[:0]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&perms))
	assert.Empty(t, perms)

	// permissions — только для админа
	empID := roleIDByName(t, app, admin.AccessToken, models.RoleEmployee)
	createUser(t, app, admin.AccessToken, "emp2@example.com", "Emp@123", []string{empID})
	emp := loginAs(t, app, "emp2@example.com", "Emp@123")
	rec = doJSON(t, app, http.MethodGet, "/permissions/role/"+managerID, emp.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApp_RolesReadableByAnyAuthenticatedUser(t *testing.T) {
	app := newTestApp(t)
	admin := loginAs(t, app, "admin@example.com", "Admin@123")
	createUser(t, app, admin.AccessToken, "plain@example.com", "Plain@123", nil)
	plain := loginAs(t, app, "plain@example.com", "Plain@123")

	rec := doJSON(t, app, http.MethodGet, "/roles", plain.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// а мутации — нет
	rec = doJSON(t, app, http.MethodPost, "/roles", plain.AccessToken, map[string]string{"name": models.RoleVendor})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// и без токена даже чтение закрыто
	rec = doJSON(t, app, http.MethodGet, "/roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
