package app

import (
	"context"
	"testing"
	"time"

	"github.com/eventseat/ticketing/internal/clock"
	"github.com/eventseat/ticketing/internal/domain"
)

func TestOrderService_CreateOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seatIDs := []string{"seat-1", "seat-2"}

	makeSvc := func() (*OrderService, *fakeOrderStore) {
		seats := newFakeSeatStore(
			[]domain.Seat{
				{ID: "seat-1", EventID: "event-1", BasePriceCents: 1000, Status: domain.SeatStatusHeld},
				{ID: "seat-2", EventID: "event-1", BasePriceCents: 1500, Status: domain.SeatStatusHeld},
			},
			[]domain.Hold{{
				ID:         "hold-1",
				AttendeeID: "att-1",
				EventID:    "event-1",
				SeatIDs:    seatIDs,
				Status:     domain.HoldStatusActive,
				ExpiresAt:  now.Add(10 * time.Minute),
			}},
		)
		store := newFakeOrderStore(seats)
		svc := NewOrderService(store, store, store, seats, seats, clock.NewFixed(now))
		return svc, store
	}

	input := func() CreateOrderInput {
		return CreateOrderInput{
			Key:        "key-1",
			AttendeeID: "att-1",
			EventID:    "event-1",
			SeatIDs:    []string{"seat-2", "seat-1"},
			Currency:   "EUR",
			HoldID:     "hold-1",
		}
	}

	t.Run("settles hold into confirmed order", func(t *testing.T) {
		svc, store := makeSvc()

		res, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Replayed {
			t.Fatalf("expected fresh execution, got replay")
		}
		if res.Order.State != string(domain.OrderStateConfirmed) {
			t.Fatalf("expected CONFIRMED, got %s", res.Order.State)
		}
		if res.Order.AmountCents != 2500 {
			t.Fatalf("expected amount 2500, got %d", res.Order.AmountCents)
		}

		order := store.orders[res.Order.ID]
		if order.State != domain.OrderStateConfirmed {
			t.Fatalf("expected persisted order CONFIRMED, got %s", order.State)
		}
		for _, id := range seatIDs {
			if got := store.seats.seats[id].Status; got != domain.SeatStatusSold {
				t.Fatalf("expected seat %s SOLD, got %s", id, got)
			}
		}
		if len(store.attempts) != 2 {
			t.Fatalf("expected 2 payment attempts, got %d", len(store.attempts))
		}
		if store.attempts[0].Type != domain.PaymentAttemptAuthorize || store.attempts[0].Status != domain.PaymentAttemptSuccess {
			t.Fatalf("expected successful AUTHORIZE first, got %s/%s", store.attempts[0].Type, store.attempts[0].Status)
		}
		if store.attempts[1].Type != domain.PaymentAttemptCapture || store.attempts[1].Status != domain.PaymentAttemptSuccess {
			t.Fatalf("expected successful CAPTURE second, got %s/%s", store.attempts[1].Type, store.attempts[1].Status)
		}
		if rec := store.keys["key-1"]; rec == nil || rec.ResponseJSON == "" {
			t.Fatalf("expected cached response for key-1")
		}
	})

	t.Run("same key and payload replays cached order", func(t *testing.T) {
		svc, store := makeSvc()

		first, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		// Seat order differs; the fingerprint must not care.
		in := input()
		in.SeatIDs = []string{"seat-1", "seat-2"}
		second, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != nil {
			t.Fatalf("expected no error on replay, got %v", err)
		}
		if !second.Replayed {
			t.Fatalf("expected replay")
		}
		if second.Order.ID != first.Order.ID {
			t.Fatalf("expected same order ID, got %s and %s", first.Order.ID, second.Order.ID)
		}
		if len(store.orders) != 1 {
			t.Fatalf("expected a single order, got %d", len(store.orders))
		}
	})

	t.Run("key reuse with different payload conflicts", func(t *testing.T) {
		svc, _ := makeSvc()

		if _, err := svc.CreateOrder(context.Background(), attendee("att-1"), input()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		in := input()
		in.SeatIDs = []string{"seat-1"}
		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != domain.ErrIdempotencyReused {
			t.Fatalf("expected ErrIdempotencyReused, got %v", err)
		}
	})

	t.Run("key without cached response is in flight", func(t *testing.T) {
		svc, store := makeSvc()

		in := input()
		hash := orderFingerprint(in.AttendeeID, in.EventID, in.SeatIDs, in.Currency, in.HoldID, in.Simulate)
		store.keys["key-1"] = &domain.IdempotencyRecord{Key: "key-1", RequestHash: hash, CreatedAt: now}

		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != domain.ErrIdempotencyInFlight {
			t.Fatalf("expected ErrIdempotencyInFlight, got %v", err)
		}
	})

	t.Run("missing idempotency key", func(t *testing.T) {
		svc, _ := makeSvc()

		in := input()
		in.Key = "  "
		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != domain.ErrIdempotencyKeyRequired {
			t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
		}
	})

	t.Run("forbidden for another attendee", func(t *testing.T) {
		svc, _ := makeSvc()

		_, err := svc.CreateOrder(context.Background(), attendee("att-2"), input())
		if err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("inactive hold conflicts", func(t *testing.T) {
		svc, store := makeSvc()
		hold := store.seats.holds["hold-1"]
		hold.Status = domain.HoldStatusExpired
		store.seats.holds["hold-1"] = hold

		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != domain.ErrHoldNotActive {
			t.Fatalf("expected ErrHoldNotActive, got %v", err)
		}
	})

	t.Run("hold owned by someone else mismatches", func(t *testing.T) {
		svc, store := makeSvc()
		hold := store.seats.holds["hold-1"]
		hold.AttendeeID = "att-2"
		store.seats.holds["hold-1"] = hold

		_, err := svc.CreateOrder(context.Background(), admin(), input())
		if err != domain.ErrHoldMismatch {
			t.Fatalf("expected ErrHoldMismatch, got %v", err)
		}
	})

	t.Run("seat set must match hold exactly", func(t *testing.T) {
		svc, _ := makeSvc()

		in := input()
		in.SeatIDs = []string{"seat-1"}
		in.Key = "key-other"
		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != domain.ErrSeatSetMismatch {
			t.Fatalf("expected ErrSeatSetMismatch, got %v", err)
		}
	})

	t.Run("seat no longer held rolls back", func(t *testing.T) {
		svc, store := makeSvc()
		store.seats.seats["seat-2"].Status = domain.SeatStatusAvailable

		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != domain.ErrSeatsNotHeld {
			t.Fatalf("expected ErrSeatsNotHeld, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Fatalf("expected no order persisted, got %d", len(store.orders))
		}
		if rec := store.keys["key-1"]; rec != nil {
			t.Fatalf("expected key insert to roll back, got %+v", rec)
		}
	})

	t.Run("same key retries after a validation failure", func(t *testing.T) {
		svc, store := makeSvc()
		store.seats.seats["seat-2"].Status = domain.SeatStatusAvailable

		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != domain.ErrSeatsNotHeld {
			t.Fatalf("expected ErrSeatsNotHeld, got %v", err)
		}

		// Seat back under the hold; the identical retry must execute,
		// not stall on the key from the failed attempt.
		store.seats.seats["seat-2"].Status = domain.SeatStatusHeld
		res, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != nil {
			t.Fatalf("expected retry to settle, got %v", err)
		}
		if res.Replayed {
			t.Fatalf("expected fresh execution on retry, got replay")
		}
		if res.Order.State != string(domain.OrderStateConfirmed) {
			t.Fatalf("expected CONFIRMED, got %s", res.Order.State)
		}
	})

	t.Run("inactive hold leaves no key behind", func(t *testing.T) {
		svc, store := makeSvc()
		hold := store.seats.holds["hold-1"]
		hold.Status = domain.HoldStatusExpired
		store.seats.holds["hold-1"] = hold

		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), input())
		if err != domain.ErrHoldNotActive {
			t.Fatalf("expected ErrHoldNotActive, got %v", err)
		}
		if rec := store.keys["key-1"]; rec != nil {
			t.Fatalf("expected key insert to roll back, got %+v", rec)
		}
	})

	t.Run("declined payment keeps order pending and seats held", func(t *testing.T) {
		svc, store := makeSvc()

		in := input()
		in.Simulate = "decline"
		res, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != domain.ErrPaymentDeclined {
			t.Fatalf("expected ErrPaymentDeclined, got %v", err)
		}
		if res.Order.State != string(domain.OrderStatePending) {
			t.Fatalf("expected PENDING result, got %s", res.Order.State)
		}

		order := store.orders[res.Order.ID]
		if order.State != domain.OrderStatePending {
			t.Fatalf("expected persisted order PENDING, got %s", order.State)
		}
		for _, id := range seatIDs {
			if got := store.seats.seats[id].Status; got != domain.SeatStatusHeld {
				t.Fatalf("expected seat %s to stay HELD, got %s", id, got)
			}
		}
		if len(store.attempts) != 1 {
			t.Fatalf("expected 1 payment attempt, got %d", len(store.attempts))
		}
		if store.attempts[0].Status != domain.PaymentAttemptDeclined {
			t.Fatalf("expected DECLINED attempt, got %s", store.attempts[0].Status)
		}

		// The decline outcome is cached: the retry replays it.
		second, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != nil {
			t.Fatalf("expected replay without error, got %v", err)
		}
		if !second.Replayed || second.Order.State != string(domain.OrderStatePending) {
			t.Fatalf("expected replayed PENDING order, got replayed=%v state=%s", second.Replayed, second.Order.State)
		}
	})

	t.Run("gateway timeout keeps order pending", func(t *testing.T) {
		svc, store := makeSvc()

		in := input()
		in.Simulate = " Timeout "
		_, err := svc.CreateOrder(context.Background(), attendee("att-1"), in)
		if err != domain.ErrPaymentTimeout {
			t.Fatalf("expected ErrPaymentTimeout, got %v", err)
		}
		if len(store.attempts) != 1 || store.attempts[0].Status != domain.PaymentAttemptTimeout {
			t.Fatalf("expected single TIMEOUT attempt")
		}
	})
}

func TestOrderService_GetOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeOrderStore(newFakeSeatStore(nil, nil))
	store.orders["order-1"] = domain.Order{
		ID:         "order-1",
		AttendeeID: "att-1",
		EventID:    "event-1",
		State:      domain.OrderStateConfirmed,
	}
	svc := NewOrderService(store, store, store, store.seats, store.seats, clock.NewFixed(now))

	t.Run("owner sees the order", func(t *testing.T) {
		order, err := svc.GetOrder(context.Background(), attendee("att-1"), "order-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID != "order-1" {
			t.Fatalf("expected order-1, got %s", order.ID)
		}
	})

	t.Run("other attendee is forbidden", func(t *testing.T) {
		_, err := svc.GetOrder(context.Background(), attendee("att-2"), "order-1")
		if err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		_, err := svc.GetOrder(context.Background(), attendee("att-1"), "missing")
		if err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})
}

func TestOrderService_UpdateOrderState(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	makeSvc := func(state domain.OrderState) (*OrderService, *fakeOrderStore) {
		store := newFakeOrderStore(newFakeSeatStore(nil, nil))
		store.orders["order-1"] = domain.Order{ID: "order-1", AttendeeID: "att-1", State: state}
		return NewOrderService(store, store, store, store.seats, store.seats, clock.NewFixed(now)), store
	}

	t.Run("admin checks in a confirmed order", func(t *testing.T) {
		svc, store := makeSvc(domain.OrderStateConfirmed)

		order, err := svc.UpdateOrderState(context.Background(), admin(), "order-1", domain.OrderStateCheckedIn)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.State != domain.OrderStateCheckedIn {
			t.Fatalf("expected CHECKED_IN, got %s", order.State)
		}
		if got := store.orders["order-1"].State; got != domain.OrderStateCheckedIn {
			t.Fatalf("expected persisted CHECKED_IN, got %s", got)
		}
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _ := makeSvc(domain.OrderStateConfirmed)

		_, err := svc.UpdateOrderState(context.Background(), attendee("att-1"), "order-1", domain.OrderStateCheckedIn)
		if err != domain.ErrForbidden {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("pending order cannot complete", func(t *testing.T) {
		svc, _ := makeSvc(domain.OrderStatePending)

		_, err := svc.UpdateOrderState(context.Background(), admin(), "order-1", domain.OrderStateCompleted)
		if err != domain.ErrInvalidOrderState {
			t.Fatalf("expected ErrInvalidOrderState, got %v", err)
		}
	})

	t.Run("confirmed is not a valid target", func(t *testing.T) {
		svc, _ := makeSvc(domain.OrderStatePending)

		_, err := svc.UpdateOrderState(context.Background(), admin(), "order-1", domain.OrderStateConfirmed)
		if err != domain.ErrInvalidOrderState {
			t.Fatalf("expected ErrInvalidOrderState, got %v", err)
		}
	})
}

// fakeOrderStore is the in-memory order side of the saga: orders, payment
// attempts and idempotency keys, sharing a fakeSeatStore so that a
// rollback reverts seat transitions made inside the same callback.
type fakeOrderStore struct {
	seats    *fakeSeatStore
	orders   map[string]domain.Order
	attempts []domain.PaymentAttempt
	keys     map[string]*domain.IdempotencyRecord
}

func newFakeOrderStore(seats *fakeSeatStore) *fakeOrderStore {
	return &fakeOrderStore{
		seats:  seats,
		orders: make(map[string]domain.Order),
		keys:   make(map[string]*domain.IdempotencyRecord),
	}
}

func (f *fakeOrderStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	orderSnap := make(map[string]domain.Order, len(f.orders))
	for id, order := range f.orders {
		orderSnap[id] = order
	}
	attemptSnap := append([]domain.PaymentAttempt(nil), f.attempts...)
	keySnap := make(map[string]*domain.IdempotencyRecord, len(f.keys))
	for k, rec := range f.keys {
		cp := *rec
		keySnap[k] = &cp
	}

	return f.seats.WithTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			f.orders = orderSnap
			f.attempts = attemptSnap
			f.keys = keySnap
			return err
		}
		return nil
	})
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, order domain.Order) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) UpdateState(_ context.Context, id string, state domain.OrderState) error {
	order, ok := f.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.State = state
	f.orders[id] = order
	return nil
}

func (f *fakeOrderStore) InsertAttempt(_ context.Context, attempt domain.PaymentAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeOrderStore) TryInsert(_ context.Context, key, requestHash string) (bool, error) {
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = &domain.IdempotencyRecord{Key: key, RequestHash: requestHash}
	return true, nil
}

func (f *fakeOrderStore) StoreResponse(_ context.Context, key, resourceID, responseJSON string) error {
	if rec, ok := f.keys[key]; ok {
		rec.ResourceID = resourceID
		rec.ResponseJSON = responseJSON
	}
	return nil
}

func (f *fakeOrderStore) FindByKey(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	rec, ok := f.keys[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
