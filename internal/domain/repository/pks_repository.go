package repository

import (
	"context"
	"time"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
)

// SubmissionFilter narrows List. A nil OwnerID lists every submission.
type SubmissionFilter struct {
	OwnerID *int64
}

// DateField selects which timestamp a SubmissionCount range applies to.
type DateField string

const (
	DateSubmitted DateField = "submitted_at"
	DateApproved  DateField = "approved_at"
	DateRejected  DateField = "rejected_at"
)

// SubmissionCount counts submissions with Status (empty for any) whose Field lies in [From, To].
type SubmissionCount struct {
	Status entity.SubmissionStatus
	Field  DateField
	From   *time.Time
	To     *time.Time
}

type PKSRepository interface {
	Create(ctx context.Context, s *entity.Submission) error
	GetByID(ctx context.Context, id int64) (*entity.Submission, error)
	List(ctx context.Context, f SubmissionFilter) ([]*entity.Submission, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*entity.Submission, error)
	// UpdateStatus applies the change and returns the stored row.
	UpdateStatus(ctx context.Context, id int64, ch entity.StatusChange) (*entity.Submission, error)
	Stats(ctx context.Context) (entity.SubmissionStats, error)
	Count(ctx context.Context, q SubmissionCount) (int64, error)
	// RecentDecisions returns approved or rejected submissions, latest decision first.
	RecentDecisions(ctx context.Context, limit int) ([]*entity.Submission, error)
}
