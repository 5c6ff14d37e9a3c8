package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/pkg/response"
)

// Module mounts one feature's routes. The registry decides whether rg is /api or the engine root.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// ModuleFunc lets a single route be registered without a dedicated module type.
type ModuleFunc func(rg *gin.RouterGroup)

func (f ModuleFunc) Register(rg *gin.RouterGroup) { f(rg) }

// healthModule answers GET /api/health for load balancer checks. It touches no backing service.
var healthModule = ModuleFunc(func(rg *gin.RouterGroup) {
	rg.GET("/health", func(ctx *gin.Context) {
		response.Success(ctx, http.StatusOK, gin.H{"status": "ok"}, "healthy", nil)
	})
})
