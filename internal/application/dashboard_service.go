package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	repo "github.com/oksasatya/pks-portal/internal/domain/repository"
	"github.com/oksasatya/pks-portal/pkg/apperror"
)

const (
	dashboardCacheKey  = "dashboard:stats"
	activityLimit      = 5
	recentSignupWindow = 7 * 24 * time.Hour
	recentSignupLimit  = 3
)

// StatsCache is an optional short-lived cache for the dashboard.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type StatCard struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Change      string `json:"change"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type Activity struct {
	User   string    `json:"user"`
	Action string    `json:"action"`
	Time   string    `json:"time"`
	At     time.Time `json:"at"`
}

type DashboardSummary struct {
	TotalUsers  int64 `json:"totalUsers"`
	TotalPKS    int64 `json:"totalPks"`
	PendingPKS  int64 `json:"pendingPks"`
	ApprovedPKS int64 `json:"approvedPks"`
	RejectedPKS int64 `json:"rejectedPks"`
}

type DashboardStats struct {
	Stats      []StatCard       `json:"stats"`
	Activities []Activity       `json:"activities"`
	Summary    DashboardSummary `json:"summary"`
}

type DashboardService struct {
	Users    repo.UserRepository
	PKS      repo.PKSRepository
	Cache    StatsCache
	CacheTTL time.Duration
	Logger   *logrus.Logger
	Clock    Clock
}

func NewDashboardService(users repo.UserRepository, pks repo.PKSRepository, cache StatsCache, ttl time.Duration, logger *logrus.Logger) *DashboardService {
	return &DashboardService{Users: users, PKS: pks, Cache: cache, CacheTTL: ttl, Logger: logger}
}

// Growth is the month-over-month change in percent, rounded half up (-12.5 becomes -12).
// Without a previous value it is 100 when there is any current activity and 0 otherwise.
func Growth(cur, prev int64) int {
	if prev > 0 {
		return int(math.Floor(float64(cur-prev)/float64(prev)*100 + 0.5))
	}
	if cur > 0 {
		return 100
	}
	return 0
}

var relTimeID = []humanize.RelTimeMagnitude{
	{D: 45 * time.Second, Format: "beberapa detik %s", DivBy: time.Second},
	{D: 90 * time.Second, Format: "semenit %s", DivBy: time.Second},
	{D: 45 * time.Minute, Format: "%d menit %s", DivBy: time.Minute},
	{D: 90 * time.Minute, Format: "sejam %s", DivBy: time.Minute},
	{D: 22 * time.Hour, Format: "%d jam %s", DivBy: time.Hour},
	{D: 36 * time.Hour, Format: "sehari %s", DivBy: time.Hour},
	{D: 26 * humanize.Day, Format: "%d hari %s", DivBy: humanize.Day},
	{D: 46 * humanize.Day, Format: "sebulan %s", DivBy: humanize.Day},
	{D: 320 * humanize.Day, Format: "%d bulan %s", DivBy: humanize.Month},
	{D: 548 * humanize.Day, Format: "setahun %s", DivBy: humanize.Day},
	{D: math.MaxInt64, Format: "%d tahun %s", DivBy: 365 * humanize.Day},
}

// relTime renders at relative to now in Indonesian, e.g. "3 jam yang lalu".
func relTime(at, now time.Time) string {
	return humanize.CustomRelTime(at, now, "yang lalu", "lagi", relTimeID)
}

func formatChange(g int) string {
	if g >= 0 {
		return fmt.Sprintf("+%d%%", g)
	}
	return fmt.Sprintf("%d%%", g)
}

// monthBounds returns the start of the current month and the first and last instant of the previous one.
func monthBounds(now time.Time) (curStart, prevStart, prevEnd time.Time) {
	curStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart = curStart.AddDate(0, -1, 0)
	prevEnd = curStart.Add(-time.Nanosecond)
	return
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if s.Cache != nil && s.CacheTTL > 0 {
		var cached DashboardStats
		if ok, err := s.Cache.GetJSON(ctx, dashboardCacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	now := s.Clock.now().UTC()
	curStart, prevStart, prevEnd := monthBounds(now)

	var (
		totalUsers, usersPrev, usersCur int64
		pendingPrev, pendingCur         int64
		approvedPrev, approvedCur       int64
		summary                         entity.SubmissionStats
		decisions                       []*entity.Submission
		signups                         []*entity.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { totalUsers, err = s.Users.CountCreated(gctx, nil, nil); return })
	g.Go(func() (err error) { usersPrev, err = s.Users.CountCreated(gctx, &prevStart, &prevEnd); return })
	g.Go(func() (err error) { usersCur, err = s.Users.CountCreated(gctx, &curStart, nil); return })
	g.Go(func() (err error) {
		pendingPrev, err = s.PKS.Count(gctx, repo.SubmissionCount{Status: entity.StatusPending, Field: repo.DateSubmitted, From: &prevStart, To: &prevEnd})
		return
	})
	g.Go(func() (err error) {
		pendingCur, err = s.PKS.Count(gctx, repo.SubmissionCount{Status: entity.StatusPending, Field: repo.DateSubmitted, From: &curStart})
		return
	})
	g.Go(func() (err error) {
		approvedPrev, err = s.PKS.Count(gctx, repo.SubmissionCount{Status: entity.StatusApproved, Field: repo.DateApproved, From: &prevStart, To: &prevEnd})
		return
	})
	g.Go(func() (err error) {
		approvedCur, err = s.PKS.Count(gctx, repo.SubmissionCount{Status: entity.StatusApproved, Field: repo.DateApproved, From: &curStart})
		return
	})
	g.Go(func() (err error) { summary, err = s.PKS.Stats(gctx); return })
	g.Go(func() (err error) { decisions, err = s.PKS.RecentDecisions(gctx, activityLimit); return })
	g.Go(func() (err error) {
		signups, err = s.Users.ListCreatedSince(gctx, now.Add(-recentSignupWindow), recentSignupLimit)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("failed to load dashboard statistics", err)
	}

	userGrowth := Growth(usersCur, usersPrev)
	pendingGrowth := Growth(pendingCur, pendingPrev)
	approvedGrowth := Growth(approvedCur, approvedPrev)

	out := &DashboardStats{
		Stats: []StatCard{
			{Title: "Total User", Value: fmt.Sprint(totalUsers), Change: formatChange(userGrowth), Description: "Dibandingkan bulan lalu", Link: "/admin/users"},
			{Title: "PKS Menunggu", Value: fmt.Sprint(summary.Pending), Change: formatChange(pendingGrowth), Description: "Dibandingkan bulan lalu", Link: "/admin/pks"},
			{Title: "PKS Disetujui", Value: fmt.Sprint(summary.Approved), Change: formatChange(approvedGrowth), Description: "Dibandingkan bulan lalu", Link: "/admin/pks"},
		},
		Activities: buildActivities(decisions, signups, now),
		Summary: DashboardSummary{
			TotalUsers:  totalUsers,
			TotalPKS:    summary.Total,
			PendingPKS:  summary.Pending,
			ApprovedPKS: summary.Approved,
			RejectedPKS: summary.Rejected,
		},
	}

	if s.Cache != nil && s.CacheTTL > 0 {
		if err := s.Cache.SetJSON(ctx, dashboardCacheKey, out, s.CacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("dashboard cache write failed")
		}
	}
	return out, nil
}

func decisionVerb(status entity.SubmissionStatus) string {
	switch status {
	case entity.StatusApproved:
		return "menyetujui"
	case entity.StatusRejected:
		return "menolak"
	default:
		return "memproses"
	}
}

func decidedAt(p *entity.Submission) time.Time {
	switch {
	case p.Status == entity.StatusApproved && p.ApprovedAt != nil:
		return *p.ApprovedAt
	case p.Status == entity.StatusRejected && p.RejectedAt != nil:
		return *p.RejectedAt
	}
	return p.SubmittedAt
}

// buildActivities lists decisions first, then registrations, capped at five entries.
func buildActivities(decisions []*entity.Submission, signups []*entity.User, now time.Time) []Activity {
	out := make([]Activity, 0, len(decisions)+len(signups))
	for _, p := range decisions {
		owner := "Tidak Diketahui"
		if p.Owner != nil && p.Owner.Name != "" {
			owner = p.Owner.Name
		}
		at := decidedAt(p)
		out = append(out, Activity{
			User:   "Admin",
			Action: fmt.Sprintf("%s dokumen PKS dari %s", decisionVerb(p.Status), owner),
			Time:   relTime(at, now),
			At:     at,
		})
	}
	sort.SliceStable(signups, func(i, j int) bool { return signups[i].CreatedAt.After(signups[j].CreatedAt) })
	for _, u := range signups {
		out = append(out, Activity{
			User:   u.Name,
			Action: "mendaftar ke sistem",
			Time:   relTime(u.CreatedAt, now),
			At:     u.CreatedAt,
		})
	}
	if len(out) > activityLimit {
		out = out[:activityLimit]
	}
	return out
}
