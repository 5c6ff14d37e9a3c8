package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
	"github.com/oksasatya/pks-portal/pkg/response"
)

// UserHandler is the admin user management surface.
type UserHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
	Expose bool
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger, expose bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Expose: expose}
}

type updateUserRequest struct {
	Name       *string `json:"name" binding:"omitempty,personname"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Password   *string `json:"password" binding:"omitempty,pwd"`
	Role       *string `json:"role" binding:"omitempty,role"`
	IsVerified *bool   `json:"isVerified"`
}

func publicUsers(users []*entity.User) []entity.PublicUser {
	out := make([]entity.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, publicUsers(users), "users retrieved", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	u, err := h.Svc.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, u.Public(), "user retrieved", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	in := application.UpdateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		IsVerified: req.IsVerified,
	}
	if req.Role != nil {
		r := entity.Role(*req.Role)
		in.Role = &r
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), id, in)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{"user_id": id, "by": c.GetInt64(middleware.CtxUserIDKey)}).Info("user updated by admin")
	}
	response.Success(c, http.StatusOK, u.Public(), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	actor := c.GetInt64(middleware.CtxUserIDKey)
	if err := h.Svc.DeleteUser(c.Request.Context(), id, actor); err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{"user_id": id, "by": actor}).Info("user deleted by admin")
	}
	response.Success[any](c, http.StatusOK, nil, "user deleted", nil)
}
