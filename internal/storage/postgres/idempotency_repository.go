package postgres

import (
	"context"
	"fmt"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository stores idempotency keys for a single command type;
// the table name is fixed at construction so the order and import commands
// dedupe independently.
type IdempotencyRepository struct {
	pool  *pgxpool.Pool
	table string
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool, table: "idempotency_keys"}
}

func NewImportIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool, table: "import_idempotency_keys"}
}

// TryInsert registers the key with the request fingerprint. The primary-key
// constraint is the serialization point: the first writer wins, every later
// writer gets false. ON CONFLICT keeps a losing insert from aborting the
// surrounding transaction; a concurrent duplicate blocks here until the
// first writer's transaction resolves.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, key, requestHash string) (bool, error) {
	stmt := fmt.Sprintf(`
INSERT INTO %s (key, request_hash, created_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO NOTHING`, r.table)

	tag, err := r.exec(ctx, stmt, key, requestHash)
	if err != nil {
		return false, fmt.Errorf("insert idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// StoreResponse caches the command's response for replays.
func (r *IdempotencyRepository) StoreResponse(ctx context.Context, key, resourceID, responseJSON string) error {
	stmt := fmt.Sprintf(`UPDATE %s SET resource_id = NULLIF($1, ''), response_json = $2 WHERE key = $3`, r.table)

	if _, err := r.exec(ctx, stmt, resourceID, responseJSON, key); err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) FindByKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := fmt.Sprintf(`
SELECT key, request_hash, COALESCE(response_json, ''), COALESCE(resource_id, ''), created_at
FROM %s
WHERE key = $1`, r.table)

	var rec domain.IdempotencyRecord
	err := r.queryRow(ctx, query, key).
		Scan(&rec.Key, &rec.RequestHash, &rec.ResponseJSON, &rec.ResourceID, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find idempotency key: %w", err)
	}
	return &rec, nil
}

func (r *IdempotencyRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *IdempotencyRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
