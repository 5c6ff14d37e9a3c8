package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/application"
	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
)

// AdminModule mounts the reviewer surface under /api/admin; every route needs an ADMIN session.
type AdminModule struct {
	Dashboard *handlers.DashboardHandler
	Users     *handlers.UserHandler
	PKS       *handlers.PKSHandler
	Gate      *application.Gate
	Expose    bool
}

func NewAdminModule(dash *handlers.DashboardHandler, users *handlers.UserHandler, pks *handlers.PKSHandler, gate *application.Gate, expose bool) *AdminModule {
	return &AdminModule{Dashboard: dash, Users: users, PKS: pks, Gate: gate, Expose: expose}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/admin", middleware.Auth(m.Gate, m.Expose), middleware.AdminOnly(m.Gate, m.Expose))
	{
		g.GET("/dashboard", m.Dashboard.Stats)

		g.GET("/users", m.Users.List)
		g.GET("/users/:id", m.Users.Get)
		g.PUT("/users/:id", m.Users.Update)
		g.DELETE("/users/:id", m.Users.Delete)

		g.GET("/pks", m.PKS.ListAll)
		g.GET("/pks/statistics", m.PKS.Statistics)
		g.GET("/pks/search", m.PKS.Search)
		g.PATCH("/pks/:id/status", m.PKS.UpdateStatus)
	}
}
