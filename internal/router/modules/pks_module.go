package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/application"
	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
)

// PKSModule mounts submission routes for authenticated users under /api/pks.
type PKSModule struct {
	Handler   *handlers.PKSHandler
	Gate      *application.Gate
	MaxUpload int64
	Expose    bool
}

func NewPKSModule(h *handlers.PKSHandler, gate *application.Gate, maxUpload int64, expose bool) *PKSModule {
	return &PKSModule{Handler: h, Gate: gate, MaxUpload: maxUpload, Expose: expose}
}

func (m *PKSModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/pks", middleware.Auth(m.Gate, m.Expose))
	{
		g.GET("", m.Handler.List)
		g.POST("", middleware.SingleDocument(m.MaxUpload, m.Expose), m.Handler.Create)
		g.GET("/:id", m.Handler.Get)
	}
}
