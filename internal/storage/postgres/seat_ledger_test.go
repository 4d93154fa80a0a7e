package postgres

import (
	"context"
	"testing"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/eventseat/ticketing/internal/testutil"
)

func TestSeatLedger(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ledger := NewSeatLedger(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("Transition moves only matching seats", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, seatIDs := testutil.InsertEventWithSeats(t, ctx, pool, "Concert", 3, 1000)

		testutil.SetSeatStatus(t, ctx, pool, seatIDs[2], domain.SeatStatusSold)

		n, err := ledger.Transition(ctx, eventID, seatIDs, domain.SeatStatusAvailable, domain.SeatStatusHeld)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 transitions, got %d", n)
		}

		statuses, err := ledger.StatusesForEvent(ctx, eventID, seatIDs)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if statuses[seatIDs[0]] != domain.SeatStatusHeld || statuses[seatIDs[1]] != domain.SeatStatusHeld {
			t.Fatalf("expected first two seats HELD, got %+v", statuses)
		}
		if statuses[seatIDs[2]] != domain.SeatStatusSold {
			t.Fatalf("expected sold seat untouched, got %s", statuses[seatIDs[2]])
		}
	})

	t.Run("Transition ignores seats of other events", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, seatIDs := testutil.InsertEventWithSeats(t, ctx, pool, "Concert", 1, 1000)
		otherEventID, _ := testutil.InsertEventWithSeats(t, ctx, pool, "Other", 1, 1000)

		n, err := ledger.Transition(ctx, otherEventID, seatIDs, domain.SeatStatusAvailable, domain.SeatStatusHeld)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 0 {
			t.Fatalf("expected 0 transitions, got %d", n)
		}
	})

	t.Run("Transition with empty set is a no-op", func(t *testing.T) {
		ctx := context.Background()
		n, err := ledger.Transition(ctx, "00000000-0000-0000-0000-000000000001", nil, domain.SeatStatusAvailable, domain.SeatStatusHeld)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 0 {
			t.Fatalf("expected 0, got %d", n)
		}
	})

	t.Run("Transition rejects malformed event id", func(t *testing.T) {
		ctx := context.Background()
		_, err := ledger.Transition(ctx, "not-a-uuid", []string{"00000000-0000-0000-0000-000000000001"}, domain.SeatStatusAvailable, domain.SeatStatusHeld)
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("HeldSeatPrices only prices HELD seats", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, seatIDs := testutil.InsertEventWithSeats(t, ctx, pool, "Concert", 2, 2500)

		testutil.SetSeatStatus(t, ctx, pool, seatIDs[0], domain.SeatStatusHeld)

		prices, err := ledger.HeldSeatPrices(ctx, eventID, seatIDs)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(prices) != 1 {
			t.Fatalf("expected 1 priced seat, got %d", len(prices))
		}
		if prices[seatIDs[0]] != 2500 {
			t.Fatalf("expected price 2500, got %d", prices[seatIDs[0]])
		}
	})

	t.Run("SoldSeatCountsByEvent groups by event", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, seatIDs := testutil.InsertEventWithSeats(t, ctx, pool, "Concert", 3, 1000)

		testutil.SetSeatStatus(t, ctx, pool, seatIDs[0], domain.SeatStatusSold)
		testutil.SetSeatStatus(t, ctx, pool, seatIDs[1], domain.SeatStatusSold)

		counts, err := ledger.SoldSeatCountsByEvent(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if counts[eventID] != 2 {
			t.Fatalf("expected 2 sold seats, got %d", counts[eventID])
		}
	})

	t.Run("rollback reverts a transition", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, seatIDs := testutil.InsertEventWithSeats(t, ctx, pool, "Concert", 1, 1000)

		sentinel := domain.ErrSeatsNotHeld
		err := ledger.WithTx(ctx, func(txCtx context.Context) error {
			if _, err := ledger.Transition(txCtx, eventID, seatIDs, domain.SeatStatusAvailable, domain.SeatStatusHeld); err != nil {
				return err
			}
			return sentinel
		})
		if err != sentinel {
			t.Fatalf("expected sentinel error, got %v", err)
		}

		statuses, err := ledger.StatusesForEvent(ctx, eventID, seatIDs)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if statuses[seatIDs[0]] != domain.SeatStatusAvailable {
			t.Fatalf("expected seat back to AVAILABLE, got %s", statuses[seatIDs[0]])
		}
	})
}
