package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

type BroadcastRepo struct {
	pool *pgxpool.Pool
}

func NewBroadcastRepo(pool *pgxpool.Pool) *BroadcastRepo {
	return &BroadcastRepo{pool: pool}
}

func (r *BroadcastRepo) Create(ctx context.Context, messageText string, totalUsers int) (model.Broadcast, error) {
	if r.pool == nil {
		return model.Broadcast{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(messageText) == "" {
		return model.Broadcast{}, fmt.Errorf("broadcast text is required")
	}

	var b model.Broadcast
	err := r.pool.QueryRow(ctx, `
INSERT INTO broadcasts (message_text, total_users, sent_count, failed_count, created_at)
VALUES ($1, $2, 0, 0, NOW())
RETURNING id, message_text, total_users, sent_count, failed_count, created_at
`, messageText, totalUsers).Scan(&b.ID, &b.MessageText, &b.TotalUsers, &b.SentCount, &b.FailedCount, &b.CreatedAt)
	if err != nil {
		return model.Broadcast{}, fmt.Errorf("create broadcast: %w", err)
	}

	return b, nil
}

func (r *BroadcastRepo) Finish(ctx context.Context, id int64, sent, failed int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 {
		return fmt.Errorf("invalid broadcast id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE broadcasts
SET sent_count = $2, failed_count = $3
WHERE id = $1
`, id, sent, failed); err != nil {
		return fmt.Errorf("finish broadcast: %w", err)
	}

	return nil
}

func (r *BroadcastRepo) List(ctx context.Context, limit int) ([]model.Broadcast, error) {
	if r.pool == nil {
		return []model.Broadcast{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, message_text, total_users, sent_count, failed_count, created_at
FROM broadcasts
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	defer rows.Close()

	items := make([]model.Broadcast, 0)
	for rows.Next() {
		var b model.Broadcast
		if err := rows.Scan(&b.ID, &b.MessageText, &b.TotalUsers, &b.SentCount, &b.FailedCount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan broadcast: %w", err)
		}
		items = append(items, b)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate broadcasts: %w", rows.Err())
	}

	return items, nil
}
