package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/domain/repository"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *AuditRepository) Insert(ctx context.Context, e *entity.AuditEntry) error {
	md := e.Metadata
	if md == nil {
		md = map[string]any{}
	}
	b, err := json.Marshal(md)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, email, action, ip, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.UserID, nullIfEmpty(e.Email), e.Action, nullIfEmpty(e.IP), nullIfEmpty(e.UserAgent), b).Scan(&e.ID, &e.CreatedAt)
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
