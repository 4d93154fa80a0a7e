package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, attendee_id, event_id, seat_ids, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.AttendeeID,
		hold.EventID,
		hold.SeatIDs,
		hold.Status,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	const query = `
SELECT id, attendee_id, event_id, seat_ids, status, created_at, expires_at
FROM holds
WHERE id = $1`

	var h domain.Hold
	err := r.queryRow(ctx, query, id).
		Scan(&h.ID, &h.AttendeeID, &h.EventID, &h.SeatIDs, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

// MarkReleased moves an ACTIVE hold to RELEASED. The status predicate keeps
// a second release of an already-terminal hold from touching the row; the
// returned flag reports whether this call performed the transition.
func (r *HoldRepository) MarkReleased(ctx context.Context, id string) (bool, error) {
	return r.markFromActive(ctx, id, domain.HoldStatusReleased)
}

// MarkExpired moves an ACTIVE hold to EXPIRED (system-initiated reclaim).
func (r *HoldRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	return r.markFromActive(ctx, id, domain.HoldStatusExpired)
}

func (r *HoldRepository) markFromActive(ctx context.Context, id string, to domain.HoldStatus) (bool, error) {
	const stmt = `UPDATE holds SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := r.exec(ctx, stmt, to, id, domain.HoldStatusActive)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark hold %s: %w", to, err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindExpiredActive returns ACTIVE holds whose expiry has passed, oldest
// first, for the sweeper.
func (r *HoldRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	const query = `
SELECT id, attendee_id, event_id, seat_ids, status, created_at, expires_at
FROM holds
WHERE status = $1 AND expires_at < $2
ORDER BY expires_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.HoldStatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("find expired holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.AttendeeID, &h.EventID, &h.SeatIDs, &h.Status, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate holds: %w", rows.Err())
	}
	return holds, nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
