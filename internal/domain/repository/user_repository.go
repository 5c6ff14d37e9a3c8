package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// VerifyByToken marks the unverified holder of token as verified and clears the token
	// in one conditional write, so a token succeeds at most once. ErrNotFound otherwise.
	VerifyByToken(ctx context.Context, token string) (*entity.User, error)
	// GetByResetToken only matches tokens whose expiry is after now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error)
	// ResetPassword stores hash and clears the reset token only while token is still held
	// by the user and unexpired. ErrNotFound when another request consumed it first.
	ResetPassword(ctx context.Context, id int64, token, hash string, now time.Time) error
	Update(ctx context.Context, u *entity.User) error
	TouchLastVisited(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context) ([]*entity.User, error)
	Delete(ctx context.Context, id int64) error

	// CountCreated counts users created in [from, to]; nil bounds are open.
	CountCreated(ctx context.Context, from, to *time.Time) (int64, error)
	ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*entity.User, error)
}
