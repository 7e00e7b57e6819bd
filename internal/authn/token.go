package authn

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims — снимок личности на момент логина. Роли в claims
// не обновляются до повторного входа (ревокации нет).
type SessionClaims struct {
	UserID string
	Email  string
	Roles  []string
}

// TokenService подписывает и проверяет сессионные HS256-токены.
// Состояние на сервере не хранится: logout — забыть токен на клиенте.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// IssueSession выпускает подписанный токен с sub/email/roles/iat/exp.
func (t *TokenService) IssueSession(userID, email string, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

// VerifySession отклоняет токены с битой подписью, чужим алгоритмом
// или истёкшим сроком. Любая причина схлопывается в ErrInvalidToken.
func (t *TokenService) VerifySession(raw string) (*SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	email, _ := mc["email"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	return &SessionClaims{
		UserID: sub,
		Email:  email,
		Roles:  normalizeRoleClaims(mc["roles"]),
	}, nil
}

// normalizeRoleClaims приводит claim к плоскому списку имён.
// Ожидаем строки, но на всякий случай принимаем и объекты роли
// с полем name (так читал claims исходный guard).
func normalizeRoleClaims(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		switch r := it.(type) {
		case string:
			names = append(names, r)
		case map[string]any:
			if name, ok := r["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// NewResetToken — криптослучайный 32-байтовый токен в hex.
// Срок действия хранится рядом с пользователем, не в токене.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
