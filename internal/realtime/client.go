package realtime

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Peer is the authenticated identity behind a websocket connection.
type Peer struct {
	UserID int64
	Admin  bool
}

// CanJoin reports whether the peer may subscribe to userID's private room.
func (p Peer) CanJoin(userID int64) bool {
	return p.Admin || p.UserID == userID
}

// Client is one websocket connection registered with a Hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	peer   Peer
	send   chan []byte
	done   chan struct{}
	logger *logrus.Logger
}

func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// NewUpgrader accepts same-origin requests and the listed origins; an empty list accepts any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 {
				return true
			}
			_, ok := allowed[strings.TrimRight(origin, "/")]
			return ok
		},
	}
}

// ServeWS upgrades the request and runs the client until the connection closes.
// Admin peers join the admin room immediately; private rooms are joined with a join frame.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, peer Peer, logger *logrus.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		hub:    hub,
		conn:   conn,
		peer:   peer,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	metricClients.Add(1)
	if peer.Admin {
		hub.Join(AdminRoom, c)
	}
	go c.writePump()
	c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.LeaveAll(c)
		close(c.done)
		_ = c.conn.Close()
		metricClients.Add(-1)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.logger != nil {
				c.logger.WithError(err).WithField("user_id", c.peer.UserID).Debug("websocket closed")
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg []byte) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		c.reply("error", map[string]string{"message": "invalid frame"})
		return
	}
	switch f.Event {
	case "join", "leave":
		userID, ok := parseRoomUserID(f.Data)
		if !ok {
			c.reply("error", map[string]string{"message": "userId is required"})
			return
		}
		if !c.peer.CanJoin(userID) {
			c.reply("error", map[string]string{"message": "forbidden room"})
			return
		}
		room := UserRoom(userID)
		if f.Event == "join" {
			c.hub.Join(room, c)
			c.reply("joined", map[string]string{"room": room})
			return
		}
		c.hub.Leave(room, c)
	default:
		c.reply("error", map[string]string{"message": "unknown event"})
	}
}

// parseRoomUserID accepts {"userId": 42}, {"userId": "42"}, 42 or "42".
func parseRoomUserID(data json.RawMessage) (int64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	var obj struct {
		UserID json.RawMessage `json:"userId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.UserID) > 0 {
		data = obj.UserID
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		id, err := strconv.ParseInt(n.String(), 10, 64)
		return id, err == nil && id > 0
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

func (c *Client) reply(event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return
	}
	c.Deliver(frame)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
