package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/oksasatya/pks-portal/pkg/mailer"
)

// MailQueue records published email jobs instead of sending them to RabbitMQ.
type MailQueue struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (q *MailQueue) PublishJSON(_ context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	var job mailer.EmailJob
	if err := json.Unmarshal(b, &job); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// Jobs returns the recorded jobs in publish order.
func (q *MailQueue) Jobs() []mailer.EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]mailer.EmailJob(nil), q.jobs...)
}

// Frame is one realtime frame captured by a Subscriber.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Subscriber records every frame delivered to it by a realtime hub.
type Subscriber struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *Subscriber) Deliver(frame []byte) bool {
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return true
}

func (s *Subscriber) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

// Events returns the event names received so far.
func (s *Subscriber) Events() []string {
	out := []string{}
	for _, f := range s.Frames() {
		out = append(out, f.Event)
	}
	return out
}
