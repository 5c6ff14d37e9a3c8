// Package realtime pushes JSON events to connected websocket clients grouped in rooms.
// Delivery is best-effort: nothing is queued for offline clients and nothing is replayed.
package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

const AdminRoom = "admins"

const (
	EventNewSubmission = "new_pks_submission"
	EventStatusUpdate  = "status_pks_update"
	EventNotification  = "notification"
)

var (
	metricEmitted   = expvar.NewInt("realtime_events_emitted")
	metricDelivered = expvar.NewInt("realtime_frames_delivered")
	metricDropped   = expvar.NewInt("realtime_frames_dropped")
	metricClients   = expvar.NewInt("realtime_clients")
)

// UserRoom is the private room of one user.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Frame is the wire shape of every server and client message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals an event into a ready-to-send frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// Subscriber receives encoded frames. Deliver must not block; it reports false when the frame was dropped.
type Subscriber interface {
	Deliver(frame []byte) bool
}

// Emitter publishes an event to every subscriber of a room.
type Emitter interface {
	Emit(ctx context.Context, room, event string, payload any) error
}

type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[Subscriber]struct{}
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{rooms: map[string]map[Subscriber]struct{}{}, logger: logger}
}

func (h *Hub) Join(room string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = map[Subscriber]struct{}{}
		h.rooms[room] = members
	}
	members[s] = struct{}{}
}

func (h *Hub) Leave(room string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, s)
}

// LeaveAll removes s from every room it joined.
func (h *Hub) LeaveAll(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.leaveLocked(room, s)
	}
}

func (h *Hub) leaveLocked(room string, s Subscriber) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// RoomSize returns the number of subscribers currently in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit encodes the event once and hands it to every member of room.
func (h *Hub) Emit(_ context.Context, room, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	metricEmitted.Add(1)
	h.Deliver(room, frame)
	return nil
}

// Deliver fans a pre-encoded frame out to room and returns how many subscribers accepted it.
func (h *Hub) Deliver(room string, frame []byte) int {
	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if s.Deliver(frame) {
			delivered++
			continue
		}
		metricDropped.Add(1)
		if h.logger != nil {
			h.logger.WithField("room", room).Debug("realtime frame dropped for slow subscriber")
		}
	}
	metricDelivered.Add(int64(delivered))
	return delivered
}

var _ Emitter = (*Hub)(nil)
