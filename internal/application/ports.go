package application

import (
	"context"
	"time"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
)

// EventPublisher delivers realtime events to a room.
type EventPublisher interface {
	Emit(ctx context.Context, room, event string, payload any) error
}

// MailQueue enqueues email jobs for the worker.
type MailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// SubmissionIndex is an optional full-text index over submissions.
type SubmissionIndex interface {
	IndexSubmission(ctx context.Context, s *entity.Submission) error
	SearchSubmissions(ctx context.Context, q string, size int) ([]int64, error)
}

// Clock returns the current time; services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
