package models

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

// Problem представляет ответ об ошибке в стиле RFC 7807.
type Problem struct {
	Type     string      `json:"type,omitempty"`   // URL с описанием типа проблемы (можно оставить пустым)
	Title    string      `json:"title"`            // краткое название
	Status   int         `json:"status"`           // HTTP код
	Detail   string      `json:"detail,omitempty"` // подробности
	Instance string      `json:"instance,omitempty"`
	Extra    interface{} `json:"extra,omitempty"` // произвольные поля (map/struct)
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string, extra any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
		Extra:  extra,
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeStrict разбирает JSON-тело с whitelist-семантикой:
// неизвестное поле — это ошибка, а не мусор, который молча глотаем.
func DecodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// FieldErrors — сообщения валидации: поле → причина.
type FieldErrors map[string]string

func (fe FieldErrors) Add(field, msg string) { fe[field] = msg }

// WriteValidation отдаёт 400 с перечнем ошибок по полям.
func WriteValidation(w http.ResponseWriter, fe FieldErrors) {
	WriteProblem(w, http.StatusBadRequest, "Validation Failed",
		"request body failed validation", map[string]any{"fields": fe})
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail — минимальная проверка формы адреса; канонизации нет,
// email сравнивается как хранится.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}
