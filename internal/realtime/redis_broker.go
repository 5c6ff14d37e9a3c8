package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// envelope is what travels over the Redis channel between instances.
type envelope struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// RedisBroker publishes events through Redis pub/sub so every instance delivers them to its local hub.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	logger  *logrus.Logger
}

func NewRedisBroker(rdb *redis.Client, channel string, hub *Hub, logger *logrus.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: channel, hub: hub, logger: logger}
}

func (b *RedisBroker) Emit(ctx context.Context, room, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{Room: room, Frame: frame})
	if err != nil {
		return err
	}
	metricEmitted.Add(1)
	return b.rdb.Publish(ctx, b.channel, msg).Err()
}

// Run forwards messages from the Redis channel to the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("realtime: redis subscription closed")
			}
			room, frame, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				if b.logger != nil {
					b.logger.WithError(err).Warn("realtime: bad broker message")
				}
				continue
			}
			b.hub.Deliver(room, frame)
		}
	}
}

func decodeEnvelope(raw []byte) (string, []byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	if env.Room == "" || len(env.Frame) == 0 {
		return "", nil, errors.New("realtime: envelope missing room or frame")
	}
	return env.Room, env.Frame, nil
}

var _ Emitter = (*RedisBroker)(nil)
