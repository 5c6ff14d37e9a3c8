package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
)

// BPJSModule passes /api/bpjs/* through to the upstream API unchanged.
type BPJSModule struct {
	Proxy *handlers.BPJSProxy
}

func NewBPJSModule(p *handlers.BPJSProxy) *BPJSModule { return &BPJSModule{Proxy: p} }

func (m *BPJSModule) Register(rg *gin.RouterGroup) {
	rg.Any("/bpjs/*path", m.Proxy.Serve)
}
