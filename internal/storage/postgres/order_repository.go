package postgres

import (
	"context"
	"fmt"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, attendee_id, event_id, seat_ids, amount_cents, currency, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		order.ID,
		order.AttendeeID,
		order.EventID,
		order.SeatIDs,
		order.AmountCents,
		order.Currency,
		order.State,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	const query = `
SELECT id, attendee_id, event_id, seat_ids, amount_cents, currency, state, created_at, updated_at
FROM orders
WHERE id = $1`

	var o domain.Order
	err := r.queryRow(ctx, query, id).
		Scan(&o.ID, &o.AttendeeID, &o.EventID, &o.SeatIDs, &o.AmountCents, &o.Currency, &o.State, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) UpdateState(ctx context.Context, id string, state domain.OrderState) error {
	const stmt = `UPDATE orders SET state = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.exec(ctx, stmt, state, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// OrderedSeatCountsByEvent sums the seats referenced by CONFIRMED and
// COMPLETED orders per event, for reconciliation against the seat ledger.
func (r *OrderRepository) OrderedSeatCountsByEvent(ctx context.Context) (map[string]int, error) {
	const query = `
SELECT event_id, COALESCE(SUM(cardinality(seat_ids)), 0)
FROM orders
WHERE state IN ('CONFIRMED', 'COMPLETED')
GROUP BY event_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ordered seat counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var eventID string
		var n int
		if err := rows.Scan(&eventID, &n); err != nil {
			return nil, fmt.Errorf("scan ordered count: %w", err)
		}
		out[eventID] = n
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate ordered counts: %w", rows.Err())
	}
	return out, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
