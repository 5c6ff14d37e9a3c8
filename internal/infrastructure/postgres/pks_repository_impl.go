package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/domain/repository"
)

const pksColumns = `p.id, p.company, p.user_id, p.original_name, p.filename, p.path, p.status,
	p.reason, p.submitted_at, p.approved_at, p.rejected_at`

const pksWithOwner = `SELECT ` + pksColumns + `, u.id, u.name, u.email
	FROM pks p
	LEFT JOIN users u ON u.id = p.user_id`

type PKSRepository struct {
	pool *pgxpool.Pool
}

func NewPKSRepository(pool *pgxpool.Pool) *PKSRepository {
	return &PKSRepository{pool: pool}
}

func scanSubmission(row pgx.Row, withOwner bool) (*entity.Submission, error) {
	s := &entity.Submission{}
	var status string
	dest := []any{&s.ID, &s.Company, &s.UserID, &s.OriginalName, &s.Filename, &s.Path, &status,
		&s.Reason, &s.SubmittedAt, &s.ApprovedAt, &s.RejectedAt}

	var ownerID *int64
	var ownerName, ownerEmail *string
	if withOwner {
		dest = append(dest, &ownerID, &ownerName, &ownerEmail)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	s.Status = entity.SubmissionStatus(status)
	if ownerID != nil {
		s.Owner = &entity.SubmissionOwner{ID: *ownerID, Name: deref(ownerName), Email: deref(ownerEmail)}
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *PKSRepository) Create(ctx context.Context, s *entity.Submission) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pks (company, user_id, original_name, filename, path, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, s.Company, s.UserID, s.OriginalName, s.Filename, s.Path, string(s.Status), s.SubmittedAt)
	return row.Scan(&s.ID)
}

func (r *PKSRepository) GetByID(ctx context.Context, id int64) (*entity.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, pksWithOwner+` WHERE p.id = $1`, id), true)
}

func (r *PKSRepository) List(ctx context.Context, f repository.SubmissionFilter) ([]*entity.Submission, error) {
	return r.query(ctx, pksWithOwner+`
		WHERE ($1::bigint IS NULL OR p.user_id = $1)
		ORDER BY p.submitted_at DESC, p.id DESC
	`, f.OwnerID)
}

func (r *PKSRepository) ListByIDs(ctx context.Context, ids []int64) ([]*entity.Submission, error) {
	if len(ids) == 0 {
		return []*entity.Submission{}, nil
	}
	return r.query(ctx, pksWithOwner+`
		WHERE p.id = ANY($1)
		ORDER BY array_position($1, p.id)
	`, ids)
}

// UpdateStatus never clears approved_at, rejected_at or reason: nil values keep the stored column.
func (r *PKSRepository) UpdateStatus(ctx context.Context, id int64, ch entity.StatusChange) (*entity.Submission, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE pks p
		SET status      = $2,
		    approved_at = COALESCE($3, p.approved_at),
		    rejected_at = COALESCE($4, p.rejected_at),
		    reason      = COALESCE($5, p.reason)
		WHERE p.id = $1
		RETURNING `+pksColumns,
		id, string(ch.Status), ch.ApprovedAt, ch.RejectedAt, ch.Reason)
	return scanSubmission(row, false)
}

func (r *PKSRepository) Stats(ctx context.Context) (entity.SubmissionStats, error) {
	var st entity.SubmissionStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'PENDING'),
		       count(*) FILTER (WHERE status = 'APPROVED'),
		       count(*) FILTER (WHERE status = 'REJECTED')
		FROM pks
	`).Scan(&st.Total, &st.Pending, &st.Approved, &st.Rejected)
	return st, err
}

func (r *PKSRepository) Count(ctx context.Context, q repository.SubmissionCount) (int64, error) {
	field := q.Field
	switch field {
	case repository.DateSubmitted, repository.DateApproved, repository.DateRejected:
	case "":
		field = repository.DateSubmitted
	default:
		return 0, fmt.Errorf("unsupported date field %q", field)
	}
	var status *string
	if q.Status != "" {
		s := string(q.Status)
		status = &s
	}
	var n int64
	// field is one of the constants above, never user input
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM pks
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::timestamptz IS NULL OR `+string(field)+` >= $2)
		  AND ($3::timestamptz IS NULL OR `+string(field)+` <= $3)
	`, status, q.From, q.To).Scan(&n)
	return n, err
}

func (r *PKSRepository) RecentDecisions(ctx context.Context, limit int) ([]*entity.Submission, error) {
	return r.query(ctx, pksWithOwner+`
		WHERE (p.status = 'APPROVED' AND p.approved_at IS NOT NULL)
		   OR (p.status = 'REJECTED' AND p.rejected_at IS NOT NULL)
		ORDER BY CASE WHEN p.status = 'APPROVED' THEN p.approved_at ELSE p.rejected_at END DESC
		LIMIT $1
	`, limit)
}

func (r *PKSRepository) query(ctx context.Context, sql string, args ...any) ([]*entity.Submission, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ repository.PKSRepository = (*PKSRepository)(nil)
