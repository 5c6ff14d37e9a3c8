package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
	"github.com/oksasatya/pks-portal/internal/realtime"
	"github.com/oksasatya/pks-portal/pkg/response"
)

// RealtimeHandler upgrades authenticated requests to websocket clients of the hub.
type RealtimeHandler struct {
	Hub      *realtime.Hub
	Upgrader *websocket.Upgrader
	Logger   *logrus.Logger
	Expose   bool
}

func NewRealtimeHandler(hub *realtime.Hub, allowedOrigins []string, logger *logrus.Logger, expose bool) *RealtimeHandler {
	return &RealtimeHandler{Hub: hub, Upgrader: realtime.NewUpgrader(allowedOrigins), Logger: logger, Expose: expose}
}

// Serve GET /ws (auth)
func (h *RealtimeHandler) Serve(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		response.Fail(c, application.ErrTokenRequired, h.Expose)
		return
	}
	peer := realtime.Peer{UserID: id.ID, Admin: id.IsAdmin()}
	if err := realtime.ServeWS(h.Hub, h.Upgrader, c.Writer, c.Request, peer, h.Logger); err != nil && h.Logger != nil {
		// the upgrader has already written the HTTP error
		h.Logger.WithError(err).WithField("user_id", id.ID).Debug("websocket upgrade failed")
	}
}
