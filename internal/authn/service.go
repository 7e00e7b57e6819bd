package authn

import (
	"context"
	"errors"
	"time"

	"otec/internal/logs"
	"otec/internal/models"
	"otec/internal/repo"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("user with this email already exists")
)

const resetRequestMessage = "If an account with that email exists, a password reset link has been sent."

// Service — оркестрация логина, регистрации и сброса пароля.
// Без состояния между запросами; единственный общий ресурс — БД.
type Service struct {
	users            *repo.UserStore
	tokens           *TokenService
	resetTTL         time.Duration
	exposeResetToken bool // dev-режим: токен в теле ответа
}

func NewService(users *repo.UserStore, tokens *TokenService, resetTTL time.Duration, exposeResetToken bool) *Service {
	return &Service{
		users:            users,
		tokens:           tokens,
		resetTTL:         resetTTL,
		exposeResetToken: exposeResetToken,
	}
}

// LoginResult — access-токен плюс сводка пользователя с ролями.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	User        UserSummary `json:"user"`
}

type UserSummary struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}

// ValidateUser сверяет пароль с хешем. На неизвестный email и на
// неверный пароль ответ одинаковый (nil, nil) — наружу не утекает,
// существует ли учётка.
func (s *Service) ValidateUser(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !VerifyPassword(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}

// Login перечитывает пользователя с ролями и выпускает токен:
// roles в claims — снимок на момент входа.
func (s *Service) Login(ctx context.Context, user *models.User) (*LoginResult, error) {
	full, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	roles := full.RoleNames()
	token, err := s.tokens.IssueSession(full.ID, full.Email, roles)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		User: UserSummary{
			ID:        full.ID,
			Email:     full.Email,
			FirstName: full.FirstName,
			LastName:  full.LastName,
			Roles:     roles,
		},
	}, nil
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleIDs   []string
}

// Register создаёт пользователя и сразу логинит его.
// Публичного маршрута на этот метод нет — только админский.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	u := models.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsActive:  true,
	}
	if len(in.RoleIDs) > 0 {
		err = s.users.CreateWithRoles(ctx, &u, in.Password, in.RoleIDs)
	} else {
		err = s.users.Create(ctx, &u, in.Password, models.RoleUser)
	}
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, &u)
}

// ResetRequestResult — униформный ответ на запрос сброса.
// Token заполняется только в dev-режиме.
type ResetRequestResult struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// RequestPasswordReset выпускает reset-токен с окном в resetTTL.
// Ответ одинаков вне зависимости от существования учётки.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return &ResetRequestResult{Message: resetRequestMessage}, nil
	}

	token, err := NewResetToken()
	if err != nil {
		return nil, err
	}
	expiry := time.Now().UTC().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, email, token, expiry); err != nil {
		return nil, err
	}

	// в проде токен уходит только по внешнему каналу (почта),
	// в лог — debug-уровнем, как ссылка для ручной проверки
	logs.Logger.Debugf("password reset token issued for %s", email)

	out := &ResetRequestResult{Message: resetRequestMessage}
	if s.exposeResetToken {
		out.Token = token
	}
	return out, nil
}

// ResetPassword схлопывает все причины отказа (нет токена, просрочен,
// уже использован) в одну ошибку repo.ErrBadResetToken.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.users.ResetPassword(ctx, token, newPassword)
}
