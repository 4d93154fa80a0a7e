package postgres

import (
	"context"
	"fmt"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository appends to the payment_attempts audit trail. Rows are
// never updated or deleted.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) InsertAttempt(ctx context.Context, attempt domain.PaymentAttempt) error {
	const stmt = `
INSERT INTO payment_attempts (id, order_id, type, status, reason, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`

	_, err := r.exec(ctx, stmt,
		attempt.ID,
		attempt.OrderID,
		attempt.Type,
		attempt.Status,
		attempt.Reason,
		attempt.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert payment attempt: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListAttemptsByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	const query = `
SELECT id, order_id, type, status, COALESCE(reason, ''), created_at
FROM payment_attempts
WHERE order_id = $1
ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.PaymentAttempt
	for rows.Next() {
		var a domain.PaymentAttempt
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Type, &a.Status, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate payment attempts: %w", rows.Err())
	}
	return attempts, nil
}

func (r *PaymentRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}
