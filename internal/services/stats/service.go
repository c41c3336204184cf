package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
)

const (
	defaultDailyDays = 7
	maxDailyDays     = 90
)

type UserStore interface {
	Counts(ctx context.Context) (pgrepo.UserCounts, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	FollowUpDistribution(ctx context.Context) (map[int]int64, error)
}

type VerificationStore interface {
	CountPending(ctx context.Context) (int64, error)
}

type InteractionStore interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type MetricsStore interface {
	ListRange(ctx context.Context, from, to time.Time) ([]model.DailyMetrics, error)
}

type CacheStats interface {
	Stats() (hits, misses int64)
}

// Snapshot is the funnel health picture at a point in time: totals, the
// review backlog, and where users sit in the drip cadence.
type Snapshot struct {
	TotalUsers          int64            `json:"total_users"`
	ActiveUsers         int64            `json:"active_users"`
	ConvertedUsers      int64            `json:"converted_users"`
	ConversionRate      float64          `json:"conversion_rate"`
	PendingReviews      int64            `json:"pending_reviews"`
	InteractionsLastDay int64            `json:"interactions_last_day"`
	UsersByStatus       map[string]int64 `json:"users_by_status"`
	FollowUpDays        map[int]int64    `json:"follow_up_days"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

type Service struct {
	users         UserStore
	verifications VerificationStore
	interactions  InteractionStore
	metrics       MetricsStore
	cacheStats    CacheStats
	now           func() time.Time
}

func NewService(users UserStore, verifications VerificationStore, interactions InteractionStore, metrics MetricsStore) *Service {
	return &Service{
		users:         users,
		verifications: verifications,
		interactions:  interactions,
		metrics:       metrics,
		now:           time.Now,
	}
}

func (s *Service) AttachCacheStats(cs CacheStats) {
	s.cacheStats = cs
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if s.users == nil {
		return Snapshot{}, fmt.Errorf("stats user store is nil")
	}

	now := s.now().UTC()

	counts, err := s.users.Counts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count users: %w", err)
	}

	byStatus, err := s.users.CountByStatus(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count users by status: %w", err)
	}

	distribution, err := s.users.FollowUpDistribution(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read follow-up distribution: %w", err)
	}

	snapshot := Snapshot{
		TotalUsers:     counts.Total,
		ActiveUsers:    counts.Active,
		ConvertedUsers: counts.Converted,
		UsersByStatus:  byStatus,
		FollowUpDays:   distribution,
		GeneratedAt:    now,
	}
	if counts.Total > 0 {
		snapshot.ConversionRate = float64(counts.Converted) / float64(counts.Total) * 100
	}

	if s.verifications != nil {
		pending, err := s.verifications.CountPending(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("count pending verifications: %w", err)
		}
		snapshot.PendingReviews = pending
	}

	if s.interactions != nil {
		recent, err := s.interactions.CountSince(ctx, now.Add(-24*time.Hour))
		if err != nil {
			return Snapshot{}, fmt.Errorf("count recent interactions: %w", err)
		}
		snapshot.InteractionsLastDay = recent
	}

	if s.cacheStats != nil {
		snapshot.CacheHits, snapshot.CacheMisses = s.cacheStats.Stats()
	}

	return snapshot, nil
}

// Daily returns per-day funnel counters for the trailing window, oldest day
// first. Days without activity are absent.
func (s *Service) Daily(ctx context.Context, days int) ([]model.DailyMetrics, error) {
	if s.metrics == nil {
		return []model.DailyMetrics{}, nil
	}
	if days <= 0 {
		days = defaultDailyDays
	}
	if days > maxDailyDays {
		days = maxDailyDays
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -(days - 1))
	return s.metrics.ListRange(ctx, from, to)
}
