package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

type DailyMetricsRepo struct {
	pool *pgxpool.Pool
}

type DailyMetricsDelta struct {
	Starts        int
	Submissions   int
	Approvals     int
	Rejections    int
	FollowUpsSent int
	Conversions   int
	Broadcasts    int
}

func NewDailyMetricsRepo(pool *pgxpool.Pool) *DailyMetricsRepo {
	return &DailyMetricsRepo{pool: pool}
}

func (r *DailyMetricsRepo) Increment(ctx context.Context, at time.Time, delta DailyMetricsDelta) error {
	if r.pool == nil {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if delta.isZero() {
		return nil
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO daily_metrics (
	day_key,
	starts,
	submissions,
	approvals,
	rejections,
	follow_ups_sent,
	conversions,
	broadcasts,
	updated_at
) VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (day_key) DO UPDATE SET
	starts = daily_metrics.starts + EXCLUDED.starts,
	submissions = daily_metrics.submissions + EXCLUDED.submissions,
	approvals = daily_metrics.approvals + EXCLUDED.approvals,
	rejections = daily_metrics.rejections + EXCLUDED.rejections,
	follow_ups_sent = daily_metrics.follow_ups_sent + EXCLUDED.follow_ups_sent,
	conversions = daily_metrics.conversions + EXCLUDED.conversions,
	broadcasts = daily_metrics.broadcasts + EXCLUDED.broadcasts,
	updated_at = NOW()
`,
		at.UTC().Format("2006-01-02"),
		delta.Starts,
		delta.Submissions,
		delta.Approvals,
		delta.Rejections,
		delta.FollowUpsSent,
		delta.Conversions,
		delta.Broadcasts,
	)
	if err != nil {
		return fmt.Errorf("increment daily metrics: %w", err)
	}

	return nil
}

func (r *DailyMetricsRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.DailyMetrics, error) {
	if r.pool == nil {
		return []model.DailyMetrics{}, nil
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("from/to are required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT day_key, starts, submissions, approvals, rejections, follow_ups_sent, conversions, broadcasts
FROM daily_metrics
WHERE day_key BETWEEN $1::date AND $2::date
ORDER BY day_key ASC
`, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	defer rows.Close()

	items := make([]model.DailyMetrics, 0)
	for rows.Next() {
		var item model.DailyMetrics
		if err := rows.Scan(
			&item.Day,
			&item.Starts,
			&item.Submissions,
			&item.Approvals,
			&item.Rejections,
			&item.FollowUpsSent,
			&item.Conversions,
			&item.Broadcasts,
		); err != nil {
			return nil, fmt.Errorf("scan daily metrics row: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate daily metrics rows: %w", rows.Err())
	}

	return items, nil
}

func (d DailyMetricsDelta) isZero() bool {
	return d.Starts == 0 && d.Submissions == 0 && d.Approvals == 0 && d.Rejections == 0 &&
		d.FollowUpsSent == 0 && d.Conversions == 0 && d.Broadcasts == 0
}
