package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/testutil"
)

func TestGrowth(t *testing.T) {
	tests := []struct {
		cur, prev int64
		want      int
	}{
		{3, 2, 50},
		{0, 4, -100},
		{1, 3, -67},
		{5, 0, 100},
		{0, 0, 0},
		{2, 2, 0},
		{7, 8, -12},
		{9, 8, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Growth(tt.cur, tt.prev), "cur=%d prev=%d", tt.cur, tt.prev)
	}
	assert.Equal(t, "+50%", formatChange(50))
	assert.Equal(t, "-100%", formatChange(-100))
	assert.Equal(t, "+0%", formatChange(0))
}

func TestMonthBounds(t *testing.T) {
	cur, prevStart, prevEnd := monthBounds(time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), cur)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), prevStart)
	assert.True(t, prevEnd.Before(cur))
	assert.Equal(t, 28, prevEnd.Day())
}

func day(m time.Month, d, h int) time.Time { return time.Date(2026, m, d, h, 0, 0, 0, time.UTC) }

func seedDashboard(store *testutil.Store) {
	store.PutUser(&entity.User{ID: 1, Name: "Budi", Email: "budi@example.com", CreatedAt: day(time.April, 10, 9)})
	store.PutUser(&entity.User{ID: 2, Name: "Sari", Email: "sari@example.com", CreatedAt: day(time.April, 25, 9)})
	store.PutUser(&entity.User{ID: 3, Name: "Andi", Email: "andi@example.com", CreatedAt: day(time.May, 2, 9)})
	store.PutUser(&entity.User{ID: 4, Name: "Rina", Email: "rina@example.com", CreatedAt: day(time.May, 18, 9)})
	store.PutUser(&entity.User{ID: 5, Name: "Dewi", Email: "dewi@example.com", CreatedAt: day(time.May, 19, 9)})

	approved, rejected := day(time.May, 19, 10), day(time.May, 20, 8)
	store.PutSubmission(&entity.Submission{ID: 1, Company: "A", UserID: 1, Filename: "a.pdf", Status: entity.StatusPending, SubmittedAt: day(time.April, 12, 9)})
	store.PutSubmission(&entity.Submission{ID: 2, Company: "B", UserID: 2, Filename: "b.pdf", Status: entity.StatusApproved, SubmittedAt: day(time.May, 3, 9), ApprovedAt: &approved})
	store.PutSubmission(&entity.Submission{ID: 3, Company: "C", UserID: 1, Filename: "c.pdf", Status: entity.StatusRejected, SubmittedAt: day(time.May, 4, 9), RejectedAt: &rejected})
}

func TestDashboardService_Stats(t *testing.T) {
	store := testutil.NewStore().WithClock(fixedClock)
	seedDashboard(store)
	svc := NewDashboardService(store.Users(), store.Submissions(), nil, 0, nil)
	svc.Clock = fixedClock

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DashboardSummary{TotalUsers: 5, TotalPKS: 3, PendingPKS: 1, ApprovedPKS: 1, RejectedPKS: 1}, got.Summary)

	require.Len(t, got.Stats, 3)
	assert.Equal(t, "Total User", got.Stats[0].Title)
	assert.Equal(t, "5", got.Stats[0].Value)
	assert.Equal(t, "+50%", got.Stats[0].Change)
	assert.Equal(t, "-100%", got.Stats[1].Change)
	assert.Equal(t, "+100%", got.Stats[2].Change)

	require.Len(t, got.Activities, 4)
	assert.Equal(t, "Admin", got.Activities[0].User)
	assert.Equal(t, "menolak dokumen PKS dari Budi", got.Activities[0].Action)
	assert.Equal(t, "menyetujui dokumen PKS dari Sari", got.Activities[1].Action)
	assert.Equal(t, "Dewi", got.Activities[2].User)
	assert.Equal(t, "mendaftar ke sistem", got.Activities[2].Action)
	assert.Equal(t, "Rina", got.Activities[3].User)
	assert.Contains(t, got.Activities[0].Time, "yang lalu")
}

func TestRelTime(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "beberapa detik yang lalu"},
		{time.Minute, "semenit yang lalu"},
		{5 * time.Minute, "5 menit yang lalu"},
		{time.Hour, "sejam yang lalu"},
		{3 * time.Hour, "3 jam yang lalu"},
		{30 * time.Hour, "sehari yang lalu"},
		{4 * 24 * time.Hour, "4 hari yang lalu"},
		{40 * 24 * time.Hour, "sebulan yang lalu"},
		{90 * 24 * time.Hour, "3 bulan yang lalu"},
		{400 * 24 * time.Hour, "setahun yang lalu"},
		{3 * 365 * 24 * time.Hour, "3 tahun yang lalu"},
		{-5 * time.Minute, "5 menit lagi"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, relTime(fixedNow.Add(-tt.ago), fixedNow))
		})
	}
}

func TestBuildActivities_CapsAtFive(t *testing.T) {
	var decisions []*entity.Submission
	for i := 0; i < 5; i++ {
		at := fixedNow.Add(-time.Duration(i) * time.Hour)
		decisions = append(decisions, &entity.Submission{ID: int64(i + 1), Status: entity.StatusApproved, ApprovedAt: &at})
	}
	signups := []*entity.User{{Name: "Baru", CreatedAt: fixedNow}}

	out := buildActivities(decisions, signups, fixedNow)
	require.Len(t, out, 5)
	assert.Equal(t, "menyetujui dokumen PKS dari Tidak Diketahui", out[0].Action)
	for _, a := range out {
		assert.Equal(t, "Admin", a.User)
	}
}

type mapCache struct {
	data map[string][]byte
	sets int
}

func (m *mapCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *mapCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.sets++
	return nil
}

func TestDashboardService_UsesCache(t *testing.T) {
	store := testutil.NewStore().WithClock(fixedClock)
	seedDashboard(store)
	cache := &mapCache{data: map[string][]byte{}}
	svc := NewDashboardService(store.Users(), store.Submissions(), cache, time.Minute, nil)
	svc.Clock = fixedClock
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	store.PutUser(&entity.User{Name: "Late", Email: "late@example.com"})

	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, cache.sets)
}
