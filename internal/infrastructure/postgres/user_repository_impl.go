package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password, role, is_verified, verification_token,
	reset_password_token, reset_password_token_expiry, last_visited, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &role, &u.IsVerified, &u.VerificationToken,
		&u.ResetPasswordToken, &u.ResetPasswordTokenExpiry, &u.LastVisited, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	return u, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_email_key" {
		return repository.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password, role, is_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.Password, string(u.Role), u.IsVerified, u.VerificationToken)

	return mapWriteErr(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) VerifyByToken(ctx context.Context, token string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, updated_at = now()
		WHERE verification_token = $1 AND is_verified = FALSE
		RETURNING `+userColumns, token))
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_password_token = $1 AND reset_password_token_expiry > $2
	`, token, now))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, email = $2, password = $3, role = $4, is_verified = $5,
		    verification_token = $6, reset_password_token = $7, reset_password_token_expiry = $8,
		    last_visited = $9, updated_at = now()
		WHERE id = $10
		RETURNING updated_at
	`, u.Name, u.Email, u.Password, string(u.Role), u.IsVerified, u.VerificationToken,
		u.ResetPasswordToken, u.ResetPasswordTokenExpiry, u.LastVisited, u.ID)

	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return mapWriteErr(err)
	}
	return nil
}

func (r *UserRepository) ResetPassword(ctx context.Context, id int64, token, hash string, now time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password = $1, reset_password_token = NULL, reset_password_token_expiry = NULL, updated_at = now()
		WHERE id = $2 AND reset_password_token = $3 AND reset_password_token_expiry > $4
	`, hash, id, token, now)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastVisited(ctx context.Context, id int64, at time.Time) error {
	res, err := r.pool.Exec(ctx, `UPDATE users SET last_visited = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountCreated(ctx context.Context, from, to *time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM users
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
	`, from, to).Scan(&n)
	return n, err
}

func (r *UserRepository) ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*entity.User, error) {
	return r.query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2
	`, since, limit)
}

func (r *UserRepository) query(ctx context.Context, sql string, args ...any) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var _ repository.UserRepository = (*UserRepository)(nil)
