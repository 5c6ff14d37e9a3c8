package entity

import "time"

// SubmissionStatus is the review state of a PKS submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "PENDING"
	StatusApproved SubmissionStatus = "APPROVED"
	StatusRejected SubmissionStatus = "REJECTED"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s ends the review.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission is one uploaded partnership agreement (PKS).
type Submission struct {
	ID           int64            `json:"id"`
	Company      string           `json:"company"`
	UserID       int64            `json:"userId"`
	OriginalName string           `json:"originalName"`
	Filename     string           `json:"filename"`
	Path         string           `json:"path"`
	Status       SubmissionStatus `json:"status"`
	Reason       *string          `json:"reason"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	ApprovedAt   *time.Time       `json:"approvedAt"`
	RejectedAt   *time.Time       `json:"rejectedAt"`

	// Owner is filled by list/get queries that join users.
	Owner *SubmissionOwner `json:"user,omitempty"`
}

type SubmissionOwner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StatusChange describes one status write. Nil fields leave the stored column as is.
type StatusChange struct {
	Status     SubmissionStatus
	ApprovedAt *time.Time
	RejectedAt *time.Time
	Reason     *string
}

// SubmissionStats are counts grouped by status.
type SubmissionStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}
