package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	repo "github.com/oksasatya/pks-portal/internal/domain/repository"
	"github.com/oksasatya/pks-portal/internal/realtime"
	"github.com/oksasatya/pks-portal/pkg/apperror"
)

const (
	approvedMessage = "PKS Anda telah di-approve!"
	rejectedMessage = "PKS Anda ditolak"
)

var ErrSubmissionNotFound = apperror.NotFound("PKS submission not found")

// PKSService runs the submission workflow.
type PKSService struct {
	Repo   repo.PKSRepository
	Users  repo.UserRepository
	Events EventPublisher
	Index  SubmissionIndex
	Logger *logrus.Logger
	Clock  Clock
}

func NewPKSService(pks repo.PKSRepository, users repo.UserRepository, events EventPublisher, index SubmissionIndex, logger *logrus.Logger) *PKSService {
	return &PKSService{Repo: pks, Users: users, Events: events, Index: index, Logger: logger}
}

type SubmitInput struct {
	Company      string
	OwnerID      int64
	OriginalName string
	Filename     string
	Path         string
}

// StatusUpdatePayload is the body of the status_pks_update event.
type StatusUpdatePayload struct {
	PKSID     int64                   `json:"pksId"`
	Status    entity.SubmissionStatus `json:"status"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// NotificationPayload is the body of the notification event.
type NotificationPayload struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Submit stores a new PENDING submission for a file that is already persisted.
func (s *PKSService) Submit(ctx context.Context, in SubmitInput) (*entity.Submission, error) {
	in.Company = strings.TrimSpace(in.Company)
	if in.Company == "" || in.OwnerID <= 0 || in.Filename == "" {
		return nil, apperror.BadRequest("company, owner and file are required")
	}
	owner, err := s.Users.GetByID(ctx, in.OwnerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal("failed to load user", err)
	}

	sub := &entity.Submission{
		Company:      in.Company,
		UserID:       in.OwnerID,
		OriginalName: in.OriginalName,
		Filename:     in.Filename,
		Path:         in.Path,
		Status:       entity.StatusPending,
		SubmittedAt:  s.Clock.now().UTC(),
		Owner:        &entity.SubmissionOwner{ID: owner.ID, Name: owner.Name, Email: owner.Email},
	}
	if err := s.Repo.Create(ctx, sub); err != nil {
		return nil, apperror.Internal("failed to save submission", err)
	}

	s.publish(ctx, realtime.AdminRoom, realtime.EventNewSubmission, map[string]any{"pks": sub})
	s.index(ctx, sub)
	return sub, nil
}

// SetStatus overwrites the status of a submission. Approving stamps approvedAt and rejecting
// stamps rejectedAt; earlier stamps and reasons are kept. The owner is notified after the write.
func (s *PKSService) SetStatus(ctx context.Context, id int64, target entity.SubmissionStatus, reason *string) (*entity.Submission, error) {
	if !target.Valid() {
		return nil, apperror.BadRequest("status must be one of PENDING, APPROVED, REJECTED")
	}
	now := s.Clock.now().UTC()
	ch := entity.StatusChange{Status: target}
	switch target {
	case entity.StatusApproved:
		ch.ApprovedAt = &now
	case entity.StatusRejected:
		ch.RejectedAt = &now
	}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		r := strings.TrimSpace(*reason)
		ch.Reason = &r
	}

	updated, err := s.Repo.UpdateStatus(ctx, id, ch)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, apperror.Internal("failed to update submission status", err)
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"pks_id": id, "status": target, "owner_id": updated.UserID}).Info("pks status updated")
	}

	room := realtime.UserRoom(updated.UserID)
	s.publish(ctx, room, realtime.EventStatusUpdate, StatusUpdatePayload{
		PKSID:     updated.ID,
		Status:    updated.Status,
		UpdatedAt: now,
	})
	if target.Terminal() {
		s.publish(ctx, room, realtime.EventNotification, NotificationPayload{
			Type:      "info",
			Message:   notificationMessage(target, ch.Reason),
			CreatedAt: now,
		})
	}
	s.reindex(ctx, updated)
	return updated, nil
}

func notificationMessage(status entity.SubmissionStatus, reason *string) string {
	if status == entity.StatusApproved {
		return approvedMessage
	}
	if reason != nil && *reason != "" {
		return rejectedMessage + ": " + *reason
	}
	return rejectedMessage
}

// List returns submissions newest first, optionally only those owned by ownerID.
func (s *PKSService) List(ctx context.Context, ownerID *int64) ([]*entity.Submission, error) {
	items, err := s.Repo.List(ctx, repo.SubmissionFilter{OwnerID: ownerID})
	if err != nil {
		return nil, apperror.Internal("failed to list submissions", err)
	}
	return items, nil
}

func (s *PKSService) Get(ctx context.Context, id int64) (*entity.Submission, error) {
	sub, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, apperror.Internal("failed to load submission", err)
	}
	return sub, nil
}

func (s *PKSService) Statistics(ctx context.Context) (entity.SubmissionStats, error) {
	st, err := s.Repo.Stats(ctx)
	if err != nil {
		return entity.SubmissionStats{}, apperror.Internal("failed to load statistics", err)
	}
	return st, nil
}

// Search queries the full-text index; without an index it returns no results.
func (s *PKSService) Search(ctx context.Context, q string, size int) ([]*entity.Submission, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.BadRequest("search query is required")
	}
	if s.Index == nil {
		return []*entity.Submission{}, nil
	}
	ids, err := s.Index.SearchSubmissions(ctx, q, size)
	if err != nil {
		return nil, apperror.Internal("search failed", err)
	}
	items, err := s.Repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal("failed to load submissions", err)
	}
	return items, nil
}

func (s *PKSService) publish(ctx context.Context, room, event string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, room, event, payload); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"room": room, "event": event}).Warn("realtime publish failed")
	}
}

// reindex replaces the search document with the stored row joined to its owner,
// since documents are written whole.
func (s *PKSService) reindex(ctx context.Context, sub *entity.Submission) {
	if s.Index == nil {
		return
	}
	if sub.Owner == nil {
		full, err := s.Repo.GetByID(ctx, sub.ID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("pks_id", sub.ID).Warn("pks reindex skipped")
			}
			return
		}
		sub = full
	}
	s.index(ctx, sub)
}

func (s *PKSService) index(ctx context.Context, sub *entity.Submission) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexSubmission(ctx, sub); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("pks_id", sub.ID).Warn("pks index failed")
	}
}
