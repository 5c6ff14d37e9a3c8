package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/internal/domain/entity"
	repo "github.com/oksasatya/pks-portal/internal/domain/repository"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
	"github.com/oksasatya/pks-portal/pkg/apperror"
	"github.com/oksasatya/pks-portal/pkg/helpers"
	"github.com/oksasatya/pks-portal/pkg/response"
)

const minTokenLength = 10

// AuthHandler serves the account lifecycle under /api/users.
type AuthHandler struct {
	Svc     *application.Service
	Audit   repo.AuditRepository
	Cookies *helpers.Manager
	Logger  *logrus.Logger
	Expose  bool
}

func NewAuthHandler(svc *application.Service, audit repo.AuditRepository, cookies *helpers.Manager, logger *logrus.Logger, expose bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Audit: audit, Cookies: cookies, Logger: logger, Expose: expose}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,personname"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

// Register POST /api/users/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.audit(c, nil, req.Email, "register_failed", map[string]any{"reason": err.Error()})
		response.Fail(c, err, h.Expose)
		return
	}
	h.audit(c, &u.ID, u.Email, "register", nil)
	response.Success[any](c, http.StatusCreated, nil, "registration successful, please check your email to verify your account", nil)
}

// Login POST /api/users/login
// The session token is only delivered through the httpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit(c, nil, req.Email, "login_failed", map[string]any{"reason": err.Error()})
		response.Fail(c, err, h.Expose)
		return
	}
	h.Cookies.SetSession(c, res.Token, res.ExpiresAt)
	h.audit(c, &res.User.ID, res.User.Email, "login", nil)
	response.Success(c, http.StatusOK, gin.H{"user": res.User.Public()}, "login successful", map[string]any{"expires_at": res.ExpiresAt})
}

// Logout POST /api/users/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logout successful", nil)
}

// Me GET /api/users/me (auth)
func (h *AuthHandler) Me(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		response.Fail(c, application.ErrTokenRequired, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": id}, "active user", nil)
}

// VerifyEmail POST /api/users/verify-email?token=...
// The token may also be sent in a JSON or form body.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		var body struct {
			Token string `json:"token" form:"token"`
		}
		_ = c.ShouldBind(&body)
		token = body.Token
	}
	if token == "" {
		response.Fail(c, apperror.BadRequest("verification token is required"), h.Expose)
		return
	}
	if len(token) < minTokenLength {
		response.Fail(c, apperror.BadRequest("invalid token format"), h.Expose)
		return
	}
	u, err := h.Svc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	h.audit(c, &u.ID, u.Email, "verify_email", nil)
	response.Success[any](c, http.StatusOK, nil, "email verified, please log in", nil)
}

// ChangePassword PUT /api/users/change-password (auth)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	id := middleware.CurrentIdentity(c)
	if id == nil {
		response.Fail(c, application.ErrTokenRequired, h.Expose)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), id.ID, req.NewPassword); err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	h.audit(c, &id.ID, id.Email, "change_password", nil)
	response.Success[any](c, http.StatusOK, nil, "password changed", nil)
}

// RequestResetPassword POST /api/users/request-reset-password
func (h *AuthHandler) RequestResetPassword(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	u, err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		h.audit(c, nil, req.Email, "reset_request_unknown", nil)
		response.Fail(c, err, h.Expose)
		return
	}
	h.audit(c, &u.ID, u.Email, "reset_request", nil)
	response.Success[any](c, http.StatusOK, nil, "password reset instructions have been sent to your email", nil)
}

// ResetPassword POST /api/users/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	// links may deliver the token percent-encoded
	token, err := url.QueryUnescape(req.Token)
	if err != nil {
		response.Fail(c, apperror.BadRequest("invalid token format"), h.Expose)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), token, req.NewPassword); err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	h.audit(c, nil, "", "reset_password", map[string]any{"token": "redacted"})
	response.Success[any](c, http.StatusOK, nil, "password has been reset, please log in with the new password", nil)
}

// audit is best effort; failures are logged and never reach the client.
func (h *AuthHandler) audit(c *gin.Context, userID *int64, email, action string, md map[string]any) {
	if h.Audit == nil {
		return
	}
	entry := &entity.AuditEntry{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        middleware.ClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Metadata:  md,
	}
	if err := h.Audit.Insert(c.Request.Context(), entry); err != nil {
		helpers.LogWarn(h.Logger, "audit insert failed", err, logrus.Fields{"action": action})
	}
}
