package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/pks-portal/internal/application"
	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
)

// UsersModule mounts the account lifecycle and admin user management under /api/users.
// Public: register, login, logout, verify-email, request-reset-password, reset-password
// Auth: me, change-password
// Admin: list, get, update, delete
type UsersModule struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	Gate   *application.Gate
	RDB    *redis.Client
	Expose bool
}

func NewUsersModule(auth *handlers.AuthHandler, users *handlers.UserHandler, gate *application.Gate, rdb *redis.Client, expose bool) *UsersModule {
	return &UsersModule{Auth: auth, Users: users, Gate: gate, RDB: rdb, Expose: expose}
}

func (m *UsersModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users")

	registerLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	verifyLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetInitLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	g.POST("/register", registerLimiter, m.Auth.Register)
	g.POST("/login", loginLimiter, m.Auth.Login)
	g.POST("/logout", m.Auth.Logout)
	g.POST("/verify-email", verifyLimiter, m.Auth.VerifyEmail)
	g.POST("/request-reset-password", resetInitLimiter, m.Auth.RequestResetPassword)
	g.POST("/reset-password", resetLimiter, m.Auth.ResetPassword)

	auth := middleware.Auth(m.Gate, m.Expose)
	g.GET("/me", auth, m.Auth.Me)
	g.PUT("/change-password", auth, middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByUserID(), nil), m.Auth.ChangePassword)

	adminOnly := middleware.AdminOnly(m.Gate, m.Expose)
	g.GET("", auth, adminOnly, m.Users.List)
	g.GET("/:id", auth, adminOnly, m.Users.Get)
	g.PUT("/:id", auth, adminOnly, m.Users.Update)
	g.DELETE("/:id", auth, adminOnly, m.Users.Delete)
}
