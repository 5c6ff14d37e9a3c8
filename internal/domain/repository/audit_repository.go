package repository

import (
	"context"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
)

type AuditRepository interface {
	Insert(ctx context.Context, e *entity.AuditEntry) error
}
