package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/application"
	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
)

// RealtimeModule mounts GET /ws on the engine root.
type RealtimeModule struct {
	Handler *handlers.RealtimeHandler
	Gate    *application.Gate
	Expose  bool
}

func NewRealtimeModule(h *handlers.RealtimeHandler, gate *application.Gate, expose bool) *RealtimeModule {
	return &RealtimeModule{Handler: h, Gate: gate, Expose: expose}
}

func (m *RealtimeModule) Register(rg *gin.RouterGroup) {
	rg.GET("/ws", middleware.Auth(m.Gate, m.Expose), m.Handler.Serve)
}
