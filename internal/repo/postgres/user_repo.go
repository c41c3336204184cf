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
	ErrUserNotFound = errors.New("user not found")

	// ErrFollowUpStale means the guarded follow-up advance matched no row:
	// the user converted, opted out, or was advanced by a concurrent cycle.
	ErrFollowUpStale = errors.New("follow-up state changed concurrently")
)

const userColumns = `user_id, first_name, username, registration_status, deposit_confirmed, uid, follow_up_day, last_interaction, is_active, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserCounts struct {
	Total     int64
	Active    int64
	Converted int64
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE user_id = $1
`, userID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// Upsert registers first contact or refreshes an existing row. Every call
// resets last_interaction, so any inbound message pushes the next follow-up
// out by the full threshold.
func (r *UserRepo) Upsert(ctx context.Context, userID int64, firstName, username string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO users (user_id, first_name, username, registration_status, deposit_confirmed, uid, follow_up_day, last_interaction, is_active, created_at, updated_at)
VALUES ($1, $2, $3, 'not_started', FALSE, '', 0, NOW(), TRUE, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	username = EXCLUDED.username,
	last_interaction = NOW(),
	updated_at = NOW()
RETURNING `+userColumns+`
`, userID, strings.TrimSpace(firstName), strings.TrimSpace(username))

	user, err := scanUser(row)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) SetUID(ctx context.Context, userID int64, uid string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || strings.TrimSpace(uid) == "" {
		return fmt.Errorf("user id and uid are required")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET uid = $2, last_interaction = NOW(), updated_at = NOW()
WHERE user_id = $1
`, userID, strings.TrimSpace(uid)); err != nil {
		return fmt.Errorf("set user uid: %w", err)
	}

	return nil
}

func (r *UserRepo) SetRegistrationStatus(ctx context.Context, tx pgx.Tx, userID int64, status enums.RegistrationStatus) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := tx.Exec(ctx, `
UPDATE users
SET registration_status = $2, updated_at = NOW()
WHERE user_id = $1
`, userID, string(status)); err != nil {
		return fmt.Errorf("set registration status: %w", err)
	}

	return nil
}

// ConfirmDeposit marks the conversion. A converted user never re-enters the
// follow-up selection, whatever follow_up_day holds.
func (r *UserRepo) ConfirmDeposit(ctx context.Context, tx pgx.Tx, userID int64) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := tx.Exec(ctx, `
UPDATE users
SET deposit_confirmed = TRUE, registration_status = 'verified', updated_at = NOW()
WHERE user_id = $1
`, userID); err != nil {
		return fmt.Errorf("confirm deposit: %w", err)
	}

	return nil
}

func (r *UserRepo) Deactivate(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET is_active = FALSE, updated_at = NOW()
WHERE user_id = $1
`, userID); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	return nil
}

func (r *UserRepo) Touch(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET last_interaction = NOW(), updated_at = NOW()
WHERE user_id = $1
`, userID); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}

	return nil
}

// ListDueForFollowUp selects the bucket for one follow-up day: users sitting
// on the previous day, unconverted, active, and silent since before the
// cutoff.
func (r *UserRepo) ListDueForFollowUp(ctx context.Context, day int, before time.Time) ([]model.User, error) {
	if r.pool == nil {
		return []model.User{}, nil
	}
	if day < 0 {
		return nil, fmt.Errorf("invalid follow-up day")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE follow_up_day = $1
  AND deposit_confirmed = FALSE
  AND is_active = TRUE
  AND last_interaction < $2
ORDER BY last_interaction ASC
`, day, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("list users due for follow-up: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan follow-up user: %w", err)
		}
		users = append(users, user)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate follow-up users: %w", rows.Err())
	}

	return users, nil
}

// AdvanceFollowUp moves a user from one follow-up day to the next. The guard
// on the previous day keeps the counter monotonic under concurrent cycles.
func (r *UserRepo) AdvanceFollowUp(ctx context.Context, userID int64, fromDay, toDay int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || toDay <= fromDay {
		return fmt.Errorf("invalid follow-up advance %d -> %d", fromDay, toDay)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET follow_up_day = $3, last_interaction = NOW(), updated_at = NOW()
WHERE user_id = $1
  AND follow_up_day = $2
  AND deposit_confirmed = FALSE
  AND is_active = TRUE
`, userID, fromDay, toDay)
	if err != nil {
		return fmt.Errorf("advance follow-up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFollowUpStale
	}

	return nil
}

func (r *UserRepo) ListActiveIDs(ctx context.Context) ([]int64, error) {
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id
FROM users
WHERE is_active = TRUE
ORDER BY user_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list active user ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active user id: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate active user ids: %w", rows.Err())
	}

	return ids, nil
}

func (r *UserRepo) Counts(ctx context.Context) (UserCounts, error) {
	if r.pool == nil {
		return UserCounts{}, nil
	}

	var counts UserCounts
	err := r.pool.QueryRow(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE is_active),
	COUNT(*) FILTER (WHERE deposit_confirmed)
FROM users
`).Scan(&counts.Total, &counts.Active, &counts.Converted)
	if err != nil {
		return UserCounts{}, fmt.Errorf("count users: %w", err)
	}

	return counts, nil
}

func (r *UserRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	if r.pool == nil {
		return map[string]int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT registration_status, COUNT(*)
FROM users
GROUP BY registration_status
`)
	if err != nil {
		return nil, fmt.Errorf("count users by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate status counts: %w", rows.Err())
	}

	return counts, nil
}

// FollowUpDistribution reports how many still-eligible users sit on each
// follow-up day.
func (r *UserRepo) FollowUpDistribution(ctx context.Context) (map[int]int64, error) {
	if r.pool == nil {
		return map[int]int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT follow_up_day, COUNT(*)
FROM users
WHERE is_active = TRUE AND deposit_confirmed = FALSE
GROUP BY follow_up_day
ORDER BY follow_up_day ASC
`)
	if err != nil {
		return nil, fmt.Errorf("follow-up distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[int]int64)
	for rows.Next() {
		var day int
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan follow-up distribution row: %w", err)
		}
		dist[day] = count
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate follow-up distribution: %w", rows.Err())
	}

	return dist, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	var status string
	err := row.Scan(
		&user.UserID,
		&user.FirstName,
		&user.Username,
		&status,
		&user.DepositConfirmed,
		&user.UID,
		&user.FollowUpDay,
		&user.LastInteraction,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	user.RegistrationStatus = enums.RegistrationStatus(status)
	return user, nil
}
