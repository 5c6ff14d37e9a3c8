package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/container"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
	"github.com/oksasatya/pks-portal/pkg/response"
)

// NewEngine builds the gin engine with global middleware and every module mounted.
func NewEngine(c *container.Container) (*gin.Engine, error) {
	cfg := c.Config
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	switch cfg.TrustedPlatform {
	case "":
	case "cloudflare":
		r.TrustedPlatform = gin.PlatformCloudflare
	case "google":
		r.TrustedPlatform = gin.PlatformGoogleAppEngine
	default:
		return nil, fmt.Errorf("unknown TRUSTED_PLATFORM %q", cfg.TrustedPlatform)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if (cfg.HTTPLogEnabled || cfg.Env == "development") && c.Logger != nil {
		r.Use(middleware.RequestLogger(c.Logger))
	}
	r.NoRoute(func(ctx *gin.Context) {
		response.Error[any](ctx, http.StatusNotFound, "endpoint not found", nil)
	})

	reg := NewRegistry(r)
	if err := InitModules(reg, c); err != nil {
		return nil, err
	}
	reg.RegisterAll()
	return r, nil
}
