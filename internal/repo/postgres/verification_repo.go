package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

var (
	ErrVerificationNotFound = errors.New("verification request not found")

	// ErrVerificationDecided means an approve/reject raced an earlier decision
	// on the same request.
	ErrVerificationDecided = errors.New("verification request already decided")
)

const verificationColumns = `id, user_id, uid, screenshot_file_id, screenshot_object_key, reference, tier, status, admin_response, created_at, updated_at`

type VerificationRepo struct {
	pool *pgxpool.Pool
}

func NewVerificationRepo(pool *pgxpool.Pool) *VerificationRepo {
	return &VerificationRepo{pool: pool}
}

func (r *VerificationRepo) Create(ctx context.Context, tx pgx.Tx, req model.VerificationRequest) (model.VerificationRequest, error) {
	if tx == nil {
		return model.VerificationRequest{}, fmt.Errorf("tx is nil")
	}
	if req.UserID <= 0 || strings.TrimSpace(req.UID) == "" {
		return model.VerificationRequest{}, fmt.Errorf("user id and uid are required")
	}

	row := tx.QueryRow(ctx, `
INSERT INTO verification_requests (user_id, uid, screenshot_file_id, screenshot_object_key, reference, tier, status, admin_response, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', '', NOW(), NOW())
RETURNING `+verificationColumns+`
`, req.UserID, strings.TrimSpace(req.UID), req.ScreenshotFileID, req.ScreenshotObjectKey, req.Reference, string(req.Tier))

	created, err := scanVerification(row)
	if err != nil {
		return model.VerificationRequest{}, fmt.Errorf("create verification request: %w", err)
	}

	return created, nil
}

func (r *VerificationRepo) Get(ctx context.Context, id int64) (model.VerificationRequest, error) {
	if r.pool == nil {
		return model.VerificationRequest{}, fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 {
		return model.VerificationRequest{}, fmt.Errorf("invalid verification request id")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+verificationColumns+`
FROM verification_requests
WHERE id = $1
`, id)

	req, err := scanVerification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VerificationRequest{}, ErrVerificationNotFound
		}
		return model.VerificationRequest{}, fmt.Errorf("get verification request: %w", err)
	}

	return req, nil
}

func (r *VerificationRepo) LatestByUser(ctx context.Context, userID int64) (model.VerificationRequest, error) {
	if r.pool == nil {
		return model.VerificationRequest{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.VerificationRequest{}, fmt.Errorf("invalid user id")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+verificationColumns+`
FROM verification_requests
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`, userID)

	req, err := scanVerification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VerificationRequest{}, ErrVerificationNotFound
		}
		return model.VerificationRequest{}, fmt.Errorf("latest verification request by user: %w", err)
	}

	return req, nil
}

func (r *VerificationRepo) ListPending(ctx context.Context, limit int) ([]model.VerificationRequest, error) {
	if r.pool == nil {
		return []model.VerificationRequest{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+verificationColumns+`
FROM verification_requests
WHERE status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending verification requests: %w", err)
	}
	defer rows.Close()

	items := make([]model.VerificationRequest, 0)
	for rows.Next() {
		req, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending verification request: %w", err)
		}
		items = append(items, req)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate pending verification requests: %w", rows.Err())
	}

	return items, nil
}

func (r *VerificationRepo) CountPending(ctx context.Context) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	var count int64
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM verification_requests
WHERE status = 'pending'
`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending verification requests: %w", err)
	}

	return count, nil
}

// Decide settles a pending request. The status guard makes double taps on the
// admin buttons harmless.
func (r *VerificationRepo) Decide(ctx context.Context, tx pgx.Tx, id int64, status enums.VerificationStatus, adminResponse string) (model.VerificationRequest, error) {
	if tx == nil {
		return model.VerificationRequest{}, fmt.Errorf("tx is nil")
	}
	if id <= 0 {
		return model.VerificationRequest{}, fmt.Errorf("invalid verification request id")
	}

	row := tx.QueryRow(ctx, `
UPDATE verification_requests
SET status = $2, admin_response = $3, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING `+verificationColumns+`
`, id, string(status), adminResponse)

	req, err := scanVerification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM verification_requests WHERE id = $1)
`, id).Scan(&exists); checkErr != nil {
				return model.VerificationRequest{}, fmt.Errorf("check verification request: %w", checkErr)
			}
			if exists {
				return model.VerificationRequest{}, ErrVerificationDecided
			}
			return model.VerificationRequest{}, ErrVerificationNotFound
		}
		return model.VerificationRequest{}, fmt.Errorf("decide verification request: %w", err)
	}

	return req, nil
}

// ListDecidedBefore returns settled requests whose screenshots are older than
// the cutoff and still sitting in object storage.
func (r *VerificationRepo) ListDecidedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.VerificationRequest, error) {
	if r.pool == nil {
		return []model.VerificationRequest{}, nil
	}
	if cutoff.IsZero() {
		return nil, fmt.Errorf("cutoff is required")
	}
	if limit <= 0 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+verificationColumns+`
FROM verification_requests
WHERE status <> 'pending'
  AND screenshot_object_key <> ''
  AND updated_at < $1
ORDER BY updated_at ASC
LIMIT $2
`, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list decided verification requests: %w", err)
	}
	defer rows.Close()

	items := make([]model.VerificationRequest, 0)
	for rows.Next() {
		req, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decided verification request: %w", err)
		}
		items = append(items, req)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate decided verification requests: %w", rows.Err())
	}

	return items, nil
}

func (r *VerificationRepo) ClearScreenshot(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 {
		return fmt.Errorf("invalid verification request id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE verification_requests
SET screenshot_object_key = '', updated_at = NOW()
WHERE id = $1
`, id); err != nil {
		return fmt.Errorf("clear verification screenshot: %w", err)
	}

	return nil
}

func scanVerification(row pgx.Row) (model.VerificationRequest, error) {
	var req model.VerificationRequest
	var tier, status string
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.UID,
		&req.ScreenshotFileID,
		&req.ScreenshotObjectKey,
		&req.Reference,
		&tier,
		&status,
		&req.AdminResponse,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return model.VerificationRequest{}, err
	}
	req.Tier = enums.AccessTier(tier)
	req.Status = enums.VerificationStatus(status)
	return req, nil
}
