// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/domain/repository"
)

// Store is an in-memory implementation of the user, submission and audit repositories.
// It mirrors the SQL semantics of the postgres package closely enough for service tests.
type Store struct {
	mu      sync.Mutex
	users   map[int64]*entity.User
	pks     map[int64]*entity.Submission
	audits  []*entity.AuditEntry
	userSeq int64
	pksSeq  int64
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: map[int64]*entity.User{},
		pks:   map[int64]*entity.Submission{},
		now:   time.Now,
	}
}

// WithClock sets the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func copyUser(u *entity.User) *entity.User {
	cp := *u
	return &cp
}

func copySubmission(p *entity.Submission) *entity.Submission {
	cp := *p
	return &cp
}

// Users exposes the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Submissions exposes the submission repository view of the store.
func (s *Store) Submissions() repository.PKSRepository { return (*pksRepo)(s) }

// Audits exposes the audit repository view of the store.
func (s *Store) Audits() repository.AuditRepository { return (*auditRepo)(s) }

// AuditActions returns recorded audit actions in insertion order.
func (s *Store) AuditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		out = append(out, a.Action)
	}
	return out
}

// PutUser stores u as is, assigning an id when it has none. Used to seed fixtures.
func (s *Store) PutUser(u *entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.userSeq++
		u.ID = s.userSeq
	} else if u.ID > s.userSeq {
		s.userSeq = u.ID
	}
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = copyUser(u)
	return u
}

// PutSubmission stores p as is, assigning an id when it has none.
func (s *Store) PutSubmission(p *entity.Submission) *entity.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.pksSeq++
		p.ID = s.pksSeq
	} else if p.ID > s.pksSeq {
		s.pksSeq = p.ID
	}
	s.pks[p.ID] = copySubmission(p)
	return p
}

type userRepo Store

func (r *userRepo) emailTaken(email string, except int64) bool {
	for _, u := range r.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, 0) {
		return repository.ErrDuplicateEmail
	}
	r.userSeq++
	u.ID = r.userSeq
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	u.CreatedAt = r.now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *userRepo) VerifyByToken(_ context.Context, token string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if !u.IsVerified && u.VerificationToken != nil && *u.VerificationToken == token {
			u.IsVerified = true
			u.VerificationToken = nil
			u.UpdatedAt = r.now()
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByResetToken(_ context.Context, token string, now time.Time) (*entity.User, error) {
	return r.find(func(u *entity.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordTokenExpiry != nil && u.ResetPasswordTokenExpiry.After(now)
	})
}

func (r *userRepo) ResetPassword(_ context.Context, id int64, token, hash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.ResetPasswordToken == nil || *u.ResetPasswordToken != token ||
		u.ResetPasswordTokenExpiry == nil || !u.ResetPasswordTokenExpiry.After(now) {
		return repository.ErrNotFound
	}
	u.Password = hash
	u.ResetPasswordToken = nil
	u.ResetPasswordTokenExpiry = nil
	u.UpdatedAt = r.now()
	return nil
}

func (r *userRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return repository.ErrDuplicateEmail
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.now()
	r.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) TouchLastVisited(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastVisited = &at
	return nil
}

func (r *userRepo) List(_ context.Context) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *userRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	for pid, p := range r.pks {
		if p.UserID == id {
			delete(r.pks, pid)
		}
	}
	return nil
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func (r *userRepo) CountCreated(_ context.Context, from, to *time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if inRange(u.CreatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (r *userRepo) ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*entity.User, error) {
	all, _ := r.List(ctx)
	out := make([]*entity.User, 0, limit)
	for _, u := range all {
		if !u.CreatedAt.Before(since) && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

type pksRepo Store

func (r *pksRepo) withOwner(p *entity.Submission) *entity.Submission {
	cp := copySubmission(p)
	if u, ok := r.users[p.UserID]; ok {
		cp.Owner = &entity.SubmissionOwner{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return cp
}

func (r *pksRepo) Create(_ context.Context, p *entity.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pksSeq++
	p.ID = r.pksSeq
	r.pks[p.ID] = copySubmission(p)
	return nil
}

func (r *pksRepo) GetByID(_ context.Context, id int64) (*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withOwner(p), nil
}

func (r *pksRepo) sorted(match func(*entity.Submission) bool) []*entity.Submission {
	out := make([]*entity.Submission, 0, len(r.pks))
	for _, p := range r.pks {
		if match(p) {
			out = append(out, r.withOwner(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func (r *pksRepo) List(_ context.Context, f repository.SubmissionFilter) ([]*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(p *entity.Submission) bool {
		return f.OwnerID == nil || p.UserID == *f.OwnerID
	}), nil
}

func (r *pksRepo) ListByIDs(_ context.Context, ids []int64) ([]*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Submission, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.pks[id]; ok {
			out = append(out, r.withOwner(p))
		}
	}
	return out, nil
}

func (r *pksRepo) UpdateStatus(_ context.Context, id int64, ch entity.StatusChange) (*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Status = ch.Status
	if ch.ApprovedAt != nil {
		t := *ch.ApprovedAt
		p.ApprovedAt = &t
	}
	if ch.RejectedAt != nil {
		t := *ch.RejectedAt
		p.RejectedAt = &t
	}
	if ch.Reason != nil {
		reason := *ch.Reason
		p.Reason = &reason
	}
	return copySubmission(p), nil
}

func (r *pksRepo) Stats(_ context.Context) (entity.SubmissionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var st entity.SubmissionStats
	for _, p := range r.pks {
		st.Total++
		switch p.Status {
		case entity.StatusPending:
			st.Pending++
		case entity.StatusApproved:
			st.Approved++
		case entity.StatusRejected:
			st.Rejected++
		}
	}
	return st, nil
}

func (r *pksRepo) Count(_ context.Context, q repository.SubmissionCount) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.pks {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		var at *time.Time
		switch q.Field {
		case repository.DateApproved:
			at = p.ApprovedAt
		case repository.DateRejected:
			at = p.RejectedAt
		default:
			t := p.SubmittedAt
			at = &t
		}
		if (q.From != nil || q.To != nil) && at == nil {
			continue
		}
		if at != nil && !inRange(*at, q.From, q.To) {
			continue
		}
		n++
	}
	return n, nil
}

func decisionTime(p *entity.Submission) time.Time {
	if p.Status == entity.StatusApproved && p.ApprovedAt != nil {
		return *p.ApprovedAt
	}
	if p.RejectedAt != nil {
		return *p.RejectedAt
	}
	return p.SubmittedAt
}

func (r *pksRepo) RecentDecisions(_ context.Context, limit int) ([]*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(p *entity.Submission) bool {
		return (p.Status == entity.StatusApproved && p.ApprovedAt != nil) ||
			(p.Status == entity.StatusRejected && p.RejectedAt != nil)
	})
	sort.SliceStable(out, func(i, j int) bool { return decisionTime(out[i]).After(decisionTime(out[j])) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type auditRepo Store

func (r *auditRepo) Insert(_ context.Context, e *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.audits) + 1)
	e.CreatedAt = r.now()
	cp := *e
	r.audits = append(r.audits, &cp)
	return nil
}
