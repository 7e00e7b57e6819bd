package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"otec/internal/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Principal — проверенная личность запроса, вынутая из токена.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// PrincipalFrom достаёт principal из контекста; ok=false — запрос
// не прошёл JWTAuth.
func PrincipalFrom(r *http.Request) (*Principal, bool) {
	p, ok := r.Context().Value(principalKey).(*Principal)
	return p, ok
}

// WithPrincipal кладёт principal в контекст запроса (для тестов и JWTAuth).
func WithPrincipal(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey, p))
}

// JWTAuth проверяет Bearer-токен и кладёт principal в контекст.
// Нет токена или он битый/просроченный — 401, дальше не идём.
func JWTAuth(tokens *TokenService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, p) {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"missing bearer token", nil)
				return
			}
			claims, err := tokens.VerifySession(strings.TrimPrefix(auth, p))
			if err != nil {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"invalid or expired token", nil)
				return
			}
			next.ServeHTTP(w, WithPrincipal(r, &Principal{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			}))
		})
	}
}

// RequireRoles пропускает запрос, если у principal есть хотя бы одна
// роль из allowlist. Порядок проверок важен: неаутентифицированный
// и «без ролей» отличимы от настоящего несовпадения ролей — клиент
// по 401 уводит на логин, по 403 показывает отказ на месте.
func RequireRoles(required ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFrom(r)
			if !ok {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"Access denied. User not authenticated.", nil)
				return
			}
			if len(p.Roles) == 0 {
				models.WriteProblem(w, http.StatusForbidden, "Forbidden",
					"Access denied. User has no roles assigned.", nil)
				return
			}
			held := make(map[string]bool, len(p.Roles))
			for _, role := range p.Roles {
				held[role] = true
			}
			for _, role := range required {
				if held[role] {
					next.ServeHTTP(w, r)
					return
				}
			}
			// называем оба набора — так оператору видно, чего не хватило
			models.WriteProblem(w, http.StatusForbidden, "Forbidden",
				"Access denied. Required role(s): "+strings.Join(required, ", ")+
					". Your roles: "+strings.Join(p.Roles, ", "), nil)
		})
	}
}
