package authn

import (
	"net/http"

	"otec/internal/logs"
	"otec/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	fe := models.FieldErrors{}
	if !models.ValidEmail(req.Email) {
		fe.Add("email", "must be a valid email address")
	}
	if req.Password == "" {
		fe.Add("password", "must not be empty")
	}
	if len(fe) > 0 {
		models.WriteValidation(w, fe)
		return
	}

	user, err := h.svc.ValidateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		logs.Logger.Errorf("login: validate user: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
		return
	}
	if user == nil {
		// один и тот же ответ на незнакомый email и на неверный пароль
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password", nil)
		return
	}

	res, err := h.svc.Login(r.Context(), user)
	if err != nil {
		logs.Logger.Errorf("login: issue token: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

type resetRequestBody struct {
	Email string `json:"email"`
}

// POST /auth/request-password-reset
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequestBody
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	if !models.ValidEmail(req.Email) {
		fe := models.FieldErrors{}
		fe.Add("email", "must be a valid email address")
		models.WriteValidation(w, fe)
		return
	}

	res, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		logs.Logger.Errorf("password reset request: %v", err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

type resetConfirmBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// POST /auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmBody
	if err := models.DecodeStrict(r, &req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "malformed json body", nil)
		return
	}
	fe := models.FieldErrors{}
	if req.Token == "" {
		fe.Add("token", "must not be empty")
	}
	if len(req.NewPassword) < 6 {
		fe.Add("newPassword", "must be at least 6 characters")
	}
	if len(fe) > 0 {
		models.WriteValidation(w, fe)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		// «просрочен» и «не существовал» наружу неотличимы
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "Invalid or expired reset token", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully"})
}
