//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/domain/repository"
	pginfra "github.com/oksasatya/pks-portal/internal/infrastructure/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "pks_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/pks_test?sslmode=disable", host, port.Port())

	dir, err := filepath.Abs("../../../db/migrations")
	if err != nil {
		panic(err)
	}
	if err := pginfra.RunMigrations(dsn, dir, nil); err != nil {
		panic(err)
	}
	// a second run is a no-op
	if err := pginfra.RunMigrations(dsn, dir, nil); err != nil {
		panic(err)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pginfra.NewPool(context.Background(), dsn, 4, 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(context.Background(), `TRUNCATE users, pks, audit_logs RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func ptr[T any](v T) *T { return &v }

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := pginfra.NewUserRepository(newPool(t))

	u := &entity.User{Name: "Ani", Email: "ani@example.com", Password: "hash", VerificationToken: ptr("verify-token-1")}
	require.NoError(t, users.Create(ctx, u))
	assert.Positive(t, u.ID)
	assert.Equal(t, entity.RoleUser, u.Role)

	dup := &entity.User{Name: "Ani 2", Email: "ani@example.com", Password: "hash"}
	assert.ErrorIs(t, users.Create(ctx, dup), repository.ErrDuplicateEmail)

	got, err := users.VerifyByToken(ctx, "verify-token-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsVerified)
	assert.Nil(t, got.VerificationToken)

	_, err = users.VerifyByToken(ctx, "verify-token-1")
	assert.ErrorIs(t, err, repository.ErrNotFound, "single use")

	now := time.Now().UTC()
	got.ResetPasswordToken = ptr("reset-token-1")
	got.ResetPasswordTokenExpiry = ptr(now.Add(time.Hour))
	require.NoError(t, users.Update(ctx, got))

	_, err = users.GetByResetToken(ctx, "reset-token-1", now)
	assert.NoError(t, err)
	_, err = users.GetByResetToken(ctx, "reset-token-1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, repository.ErrNotFound, "expired")

	assert.ErrorIs(t, users.ResetPassword(ctx, u.ID, "reset-token-1", "new-hash", now.Add(2*time.Hour)), repository.ErrNotFound, "expired")
	require.NoError(t, users.ResetPassword(ctx, u.ID, "reset-token-1", "new-hash", now))
	assert.ErrorIs(t, users.ResetPassword(ctx, u.ID, "reset-token-1", "other-hash", now), repository.ErrNotFound, "single use")
	reset, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reset.Password)
	assert.Nil(t, reset.ResetPasswordToken)

	require.NoError(t, users.TouchLastVisited(ctx, u.ID, now))
	assert.ErrorIs(t, users.TouchLastVisited(ctx, 9999, now), repository.ErrNotFound)

	other := &entity.User{Name: "Budi", Email: "budi@example.com", Password: "hash"}
	require.NoError(t, users.Create(ctx, other))
	other.Email = "ani@example.com"
	assert.ErrorIs(t, users.Update(ctx, other), repository.ErrDuplicateEmail)

	n, err := users.CountCreated(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID, "newest first")

	require.NoError(t, users.Delete(ctx, other.ID))
	assert.ErrorIs(t, users.Delete(ctx, other.ID), repository.ErrNotFound)
}

func TestPKSRepository(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t)
	users := pginfra.NewUserRepository(pool)
	pks := pginfra.NewPKSRepository(pool)

	owner := &entity.User{Name: "Citra", Email: "citra@example.com", Password: "hash"}
	require.NoError(t, users.Create(ctx, owner))

	base := time.Now().UTC().Truncate(time.Second)
	first := &entity.Submission{Company: "PT A", UserID: owner.ID, OriginalName: "a.pdf", Filename: "1-a.pdf", Path: "/uploads/1-a.pdf", Status: entity.StatusPending, SubmittedAt: base}
	second := &entity.Submission{Company: "PT B", UserID: owner.ID, OriginalName: "b.pdf", Filename: "2-b.pdf", Path: "/uploads/2-b.pdf", Status: entity.StatusPending, SubmittedAt: base.Add(time.Minute)}
	require.NoError(t, pks.Create(ctx, first))
	require.NoError(t, pks.Create(ctx, second))

	got, err := pks.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "citra@example.com", got.Owner.Email)

	list, err := pks.List(ctx, repository.SubmissionFilter{OwnerID: &owner.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	byIDs, err := pks.ListByIDs(ctx, []int64{second.ID, first.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, second.ID, byIDs[0].ID, "keeps the requested order")

	decided := base.Add(time.Hour)
	updated, err := pks.UpdateStatus(ctx, first.ID, entity.StatusChange{Status: entity.StatusRejected, RejectedAt: &decided, Reason: ptr("incomplete")})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, updated.Status)
	require.NotNil(t, updated.Reason)

	// a later approval keeps the earlier rejection timestamp and reason
	updated, err = pks.UpdateStatus(ctx, first.ID, entity.StatusChange{Status: entity.StatusApproved, ApprovedAt: &decided})
	require.NoError(t, err)
	assert.NotNil(t, updated.RejectedAt)
	assert.Equal(t, "incomplete", *updated.Reason)

	_, err = pks.UpdateStatus(ctx, 9999, entity.StatusChange{Status: entity.StatusApproved})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	st, err := pks.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionStats{Total: 2, Pending: 1, Approved: 1}, st)

	n, err := pks.Count(ctx, repository.SubmissionCount{Status: entity.StatusApproved, Field: repository.DateApproved, From: &base})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recent, err := pks.RecentDecisions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, first.ID, recent[0].ID)

	// submissions go with their owner
	require.NoError(t, users.Delete(ctx, owner.ID))
	_, err = pks.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	audits := pginfra.NewAuditRepository(newPool(t))

	e := &entity.AuditEntry{Email: "ghost@example.com", Action: "login_failed", IP: "10.0.0.1", UserAgent: "test", Metadata: map[string]any{"reason": "invalid"}}
	require.NoError(t, audits.Insert(ctx, e))
	assert.Positive(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}
