package postgres

import (
	"context"
	"fmt"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeatLedger owns the seats table. Status changes go through Transition
// only: the predicate and the write are one statement, so the database
// linearizes racing writers and at most one of them sees fromStatus.
type SeatLedger struct {
	pool *pgxpool.Pool
}

func NewSeatLedger(pool *pgxpool.Pool) *SeatLedger {
	return &SeatLedger{pool: pool}
}

func (l *SeatLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, l.pool, fn)
}

// Transition moves every listed seat of the event from fromStatus to
// toStatus and returns how many rows actually changed. Callers must treat
// a count below len(seatIDs) as a conflict, never as partial success.
func (l *SeatLedger) Transition(ctx context.Context, eventID string, seatIDs []string, from, to domain.SeatStatus) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	const stmt = `UPDATE seats SET status = $1 WHERE event_id = $2 AND id = ANY($3) AND status = $4`

	tag, err := l.exec(ctx, stmt, to, eventID, seatIDs, from)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("transition seats %s->%s: %w", from, to, err)
	}
	return int(tag.RowsAffected()), nil
}

// StatusesForEvent returns seatID -> status for the requested seats of the
// event. Requested ids missing from the result either do not exist or
// belong to another event.
func (l *SeatLedger) StatusesForEvent(ctx context.Context, eventID string, seatIDs []string) (map[string]domain.SeatStatus, error) {
	if len(seatIDs) == 0 {
		return map[string]domain.SeatStatus{}, nil
	}
	const query = `SELECT id, status FROM seats WHERE event_id = $1 AND id = ANY($2)`

	rows, err := l.query(ctx, query, eventID, seatIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("seat statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.SeatStatus, len(seatIDs))
	for rows.Next() {
		var id string
		var status domain.SeatStatus
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan seat status: %w", err)
		}
		out[id] = status
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate seat statuses: %w", rows.Err())
	}
	return out, nil
}

// HeldSeatPrices returns seatID -> base price in cents for seats of the
// event that are currently HELD. Seats in any other status are absent from
// the result; callers compare sizes to detect seats another actor moved.
func (l *SeatLedger) HeldSeatPrices(ctx context.Context, eventID string, seatIDs []string) (map[string]int64, error) {
	if len(seatIDs) == 0 {
		return map[string]int64{}, nil
	}
	const query = `SELECT id, base_price_cents FROM seats WHERE event_id = $1 AND id = ANY($2) AND status = 'HELD'`

	rows, err := l.query(ctx, query, eventID, seatIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("held seat prices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, len(seatIDs))
	for rows.Next() {
		var id string
		var cents int64
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, fmt.Errorf("scan seat price: %w", err)
		}
		out[id] = cents
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate seat prices: %w", rows.Err())
	}
	return out, nil
}

// SoldSeatCountsByEvent reports how many seats each event has in SOLD,
// used by the reconciliation job.
func (l *SeatLedger) SoldSeatCountsByEvent(ctx context.Context) (map[string]int, error) {
	const query = `SELECT event_id, COUNT(*) FROM seats WHERE status = 'SOLD' GROUP BY event_id`

	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sold seat counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var eventID string
		var n int
		if err := rows.Scan(&eventID, &n); err != nil {
			return nil, fmt.Errorf("scan sold count: %w", err)
		}
		out[eventID] = n
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate sold counts: %w", rows.Err())
	}
	return out, nil
}

func (l *SeatLedger) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return l.pool.Exec(ctx, sql, args...)
}

func (l *SeatLedger) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return l.pool.Query(ctx, sql, args...)
}
