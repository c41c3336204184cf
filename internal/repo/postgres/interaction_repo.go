package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

type InteractionRepo struct {
	pool *pgxpool.Pool
}

func NewInteractionRepo(pool *pgxpool.Pool) *InteractionRepo {
	return &InteractionRepo{pool: pool}
}

func (r *InteractionRepo) Insert(ctx context.Context, userID int64, interactionType, data string) error {
	if r.pool == nil {
		return nil
	}
	if userID <= 0 || strings.TrimSpace(interactionType) == "" {
		return fmt.Errorf("user id and interaction type are required")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO interactions (user_id, interaction_type, interaction_data, created_at)
VALUES ($1, $2, $3, NOW())
`, userID, interactionType, data); err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}

	return nil
}

// InsertBatch appends one cycle's worth of interaction entries in a single
// round trip.
func (r *InteractionRepo) InsertBatch(ctx context.Context, items []model.Interaction) error {
	if len(items) == 0 {
		return nil
	}
	if r.pool == nil {
		return nil
	}

	const query = `
INSERT INTO interactions (user_id, interaction_type, interaction_data, created_at)
VALUES ($1, $2, $3, $4)
`

	batch := &pgx.Batch{}
	for _, item := range items {
		createdAt := item.CreatedAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		batch.Queue(query, item.UserID, item.Type, item.Data, createdAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert interaction batch item #%d: %w", i, err)
		}
	}

	return nil
}

func (r *InteractionRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	var count int64
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM interactions
WHERE created_at >= $1
`, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count interactions since: %w", err)
	}

	return count, nil
}

func (r *InteractionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	if cutoff.IsZero() {
		return 0, fmt.Errorf("cutoff is required")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM interactions
WHERE created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old interactions: %w", err)
	}

	return tag.RowsAffected(), nil
}
