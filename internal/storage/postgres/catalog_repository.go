package postgres

import (
	"context"
	"fmt"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository covers the admin-facing event and seat CRUD plus the
// natural-key upsert used by inventory import.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, starts_at)
VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, stmt, event.ID, event.Name, event.StartsAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `
SELECT id, name, starts_at
FROM events
ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(&event.ID, &event.Name, &event.StartsAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *CatalogRepository) EventExists(ctx context.Context, eventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check event: %w", err)
	}
	return exists, nil
}

func (r *CatalogRepository) CreateSeat(ctx context.Context, seat domain.Seat) error {
	const stmt = `
INSERT INTO seats (id, event_id, section, row_label, seat_number, base_price_cents, currency, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, stmt,
		seat.ID,
		seat.EventID,
		seat.Section,
		seat.RowLabel,
		seat.SeatNumber,
		seat.BasePriceCents,
		seat.Currency,
		seat.Status,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrSeatAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create seat: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListSeatsByEvent(ctx context.Context, eventID string) ([]domain.Seat, error) {
	exists, err := r.EventExists(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrEventNotFound
	}

	const query = `
SELECT id, event_id, section, row_label, seat_number, base_price_cents, currency, status
FROM seats
WHERE event_id = $1
ORDER BY section, row_label, seat_number`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.Section, &s.RowLabel, &s.SeatNumber, &s.BasePriceCents, &s.Currency, &s.Status); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate seats: %w", rows.Err())
	}
	return seats, nil
}

// UpsertSeatByNaturalKey inserts or refreshes a seat identified by
// (event, section, row, number). New seats start AVAILABLE; existing seats
// keep their status so imports never disturb the ledger.
func (r *CatalogRepository) UpsertSeatByNaturalKey(ctx context.Context, seat domain.Seat) (string, error) {
	const query = `SELECT id FROM seats WHERE event_id = $1 AND section = $2 AND row_label = $3 AND seat_number = $4`

	var id string
	err := r.pool.QueryRow(ctx, query, seat.EventID, seat.Section, seat.RowLabel, seat.SeatNumber).Scan(&id)
	switch {
	case err == pgx.ErrNoRows:
		seat.ID = ""
		const insert = `
INSERT INTO seats (event_id, section, row_label, seat_number, base_price_cents, currency, status)
VALUES ($1, $2, $3, $4, $5, $6, 'AVAILABLE')
RETURNING id`
		if err := r.pool.QueryRow(ctx, insert,
			seat.EventID, seat.Section, seat.RowLabel, seat.SeatNumber, seat.BasePriceCents, seat.Currency,
		).Scan(&id); err != nil {
			if isForeignKeyViolation(err) {
				return "", domain.ErrEventNotFound
			}
			return "", fmt.Errorf("insert seat: %w", err)
		}
		return id, nil
	case err != nil:
		if isInvalidUUID(err) {
			return "", domain.ErrInvalidID
		}
		return "", fmt.Errorf("find seat by natural key: %w", err)
	}

	const update = `UPDATE seats SET base_price_cents = $1, currency = $2 WHERE id = $3`
	if _, err := r.pool.Exec(ctx, update, seat.BasePriceCents, seat.Currency, id); err != nil {
		return "", fmt.Errorf("update seat: %w", err)
	}
	return id, nil
}
