package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
)

// UploadsModule serves locally stored documents at /uploads.
type UploadsModule struct {
	Handler *handlers.UploadsHandler
}

func NewUploadsModule(h *handlers.UploadsHandler) *UploadsModule { return &UploadsModule{Handler: h} }

func (m *UploadsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/uploads/*filepath", m.Handler.Serve)
	rg.HEAD("/uploads/*filepath", m.Handler.Serve)
}
