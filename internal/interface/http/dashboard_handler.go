package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/pkg/response"
)

type DashboardHandler struct {
	Svc    *application.DashboardService
	Expose bool
}

func NewDashboardHandler(svc *application.DashboardService, expose bool) *DashboardHandler {
	return &DashboardHandler{Svc: svc, Expose: expose}
}

// Stats GET /api/admin/dashboard
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, stats, "dashboard statistics retrieved", nil)
}
