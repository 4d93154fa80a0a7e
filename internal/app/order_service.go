package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/clock"
	"github.com/eventseat/ticketing/internal/domain"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	UpdateState(ctx context.Context, id string, state domain.OrderState) error
}

type PaymentRecorder interface {
	InsertAttempt(ctx context.Context, attempt domain.PaymentAttempt) error
}

type IdempotencyStore interface {
	TryInsert(ctx context.Context, key, requestHash string) (bool, error)
	StoreResponse(ctx context.Context, key, resourceID, responseJSON string) error
	FindByKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// HoldViewer is the slice of the hold store the settlement saga needs.
type HoldViewer interface {
	GetHold(ctx context.Context, id string) (domain.Hold, error)
}

// SeatSeller prices held seats and moves them to SOLD.
type SeatSeller interface {
	Transition(ctx context.Context, eventID string, seatIDs []string, from, to domain.SeatStatus) (int, error)
	HeldSeatPrices(ctx context.Context, eventID string, seatIDs []string) (map[string]int64, error)
}

// OrderService runs the settlement saga: validate the hold, price the
// seats, record the order and its payment attempts, and flip the seats to
// SOLD. The idempotency store makes the whole command replay-safe.
type OrderService struct {
	orders   OrderRepository
	payments PaymentRecorder
	keys     IdempotencyStore
	holds    HoldViewer
	seats    SeatSeller
	clock    clock.Clock
}

func NewOrderService(orders OrderRepository, payments PaymentRecorder, keys IdempotencyStore, holds HoldViewer, seats SeatSeller, clk clock.Clock) *OrderService {
	return &OrderService{
		orders:   orders,
		payments: payments,
		keys:     keys,
		holds:    holds,
		seats:    seats,
		clock:    clk,
	}
}

type CreateOrderInput struct {
	Key        string
	AttendeeID string
	EventID    string
	SeatIDs    []string
	Currency   string
	HoldID     string
	Simulate   string
}

// OrderResult is the stable wire shape of an order. It is what gets cached
// in the idempotency store, so replays return the same bytes the first
// execution produced.
type OrderResult struct {
	ID          string    `json:"id"`
	AttendeeID  string    `json:"attendee_id"`
	EventID     string    `json:"event_id"`
	SeatIDs     []string  `json:"seat_ids"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateOrderResult struct {
	Order    OrderResult
	Replayed bool
}

const (
	simulateDecline = "decline"
	simulateTimeout = "timeout"
)

// CreateOrder settles a hold into an order.
//
// The whole saga, idempotency insert included, runs in one transaction.
// Whoever lands the key executes, everyone else replays or conflicts; a
// validation failure rolls the key insert back too, so retrying the same
// key after the condition clears executes normally instead of reading a
// half-registered key. A concurrent duplicate blocks on the uncommitted
// key row until the first writer commits or rolls back. A simulated
// payment decline or timeout COMMITS the PENDING order, the failed
// attempt and the cached response, then surfaces the payment error; only
// infrastructure and validation failures roll back.
func (s *OrderService) CreateOrder(ctx context.Context, p auth.Principal, in CreateOrderInput) (CreateOrderResult, error) {
	if !p.CanActFor(in.AttendeeID) {
		return CreateOrderResult{}, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Key) == "" {
		return CreateOrderResult{}, domain.ErrIdempotencyKeyRequired
	}
	if len(in.SeatIDs) == 0 {
		return CreateOrderResult{}, domain.ErrSeatIDsRequired
	}
	if strings.TrimSpace(in.Currency) == "" {
		return CreateOrderResult{}, domain.ErrCurrencyRequired
	}

	hash := orderFingerprint(in.AttendeeID, in.EventID, in.SeatIDs, in.Currency, in.HoldID, in.Simulate)

	var (
		result     OrderResult
		cached     CreateOrderResult
		replayed   bool
		paymentErr error
	)
	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		inserted, err := s.keys.TryInsert(txCtx, in.Key, hash)
		if err != nil {
			return err
		}
		if !inserted {
			cached, err = s.replay(txCtx, in.Key, hash)
			if err != nil {
				return err
			}
			replayed = true
			return nil
		}

		hold, err := s.holds.GetHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if hold.Status != domain.HoldStatusActive {
			return domain.ErrHoldNotActive
		}
		if hold.AttendeeID != in.AttendeeID || hold.EventID != in.EventID {
			return domain.ErrHoldMismatch
		}
		if !sameSeatSet(hold.SeatIDs, in.SeatIDs) {
			return domain.ErrSeatSetMismatch
		}

		prices, err := s.seats.HeldSeatPrices(txCtx, in.EventID, in.SeatIDs)
		if err != nil {
			return err
		}
		if len(prices) != len(in.SeatIDs) {
			return domain.ErrSeatsNotHeld
		}
		var amount int64
		for _, cents := range prices {
			amount += cents
		}

		now := s.clock.Now()
		order := domain.Order{
			ID:          newID(),
			AttendeeID:  in.AttendeeID,
			EventID:     in.EventID,
			SeatIDs:     append([]string(nil), in.SeatIDs...),
			AmountCents: amount,
			Currency:    in.Currency,
			State:       domain.OrderStatePending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.orders.CreateOrder(txCtx, order); err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(in.Simulate)) {
		case simulateDecline:
			if err := s.recordAttempt(txCtx, order.ID, domain.PaymentAttemptAuthorize, domain.PaymentAttemptDeclined, "card declined (simulated)"); err != nil {
				return err
			}
			paymentErr = domain.ErrPaymentDeclined
			result = toOrderResult(order)
			return s.cacheResult(txCtx, in.Key, result)
		case simulateTimeout:
			if err := s.recordAttempt(txCtx, order.ID, domain.PaymentAttemptAuthorize, domain.PaymentAttemptTimeout, "gateway timeout (simulated)"); err != nil {
				return err
			}
			paymentErr = domain.ErrPaymentTimeout
			result = toOrderResult(order)
			return s.cacheResult(txCtx, in.Key, result)
		}

		if err := s.recordAttempt(txCtx, order.ID, domain.PaymentAttemptAuthorize, domain.PaymentAttemptSuccess, ""); err != nil {
			return err
		}
		if err := s.recordAttempt(txCtx, order.ID, domain.PaymentAttemptCapture, domain.PaymentAttemptSuccess, ""); err != nil {
			return err
		}

		sold, err := s.seats.Transition(txCtx, in.EventID, in.SeatIDs, domain.SeatStatusHeld, domain.SeatStatusSold)
		if err != nil {
			return err
		}
		if sold != len(in.SeatIDs) {
			return domain.ErrSoldTransitionRace
		}

		if err := s.orders.UpdateState(txCtx, order.ID, domain.OrderStateConfirmed); err != nil {
			return err
		}
		order.State = domain.OrderStateConfirmed
		result = toOrderResult(order)
		return s.cacheResult(txCtx, in.Key, result)
	})
	if err != nil {
		return CreateOrderResult{}, err
	}
	if replayed {
		return cached, nil
	}
	if paymentErr != nil {
		return CreateOrderResult{Order: result}, paymentErr
	}
	return CreateOrderResult{Order: result}, nil
}

// replay resolves a key the first writer already owns. A diverging
// fingerprint is key reuse; a matching fingerprint with no cached response
// means the original execution is still in flight.
func (s *OrderService) replay(ctx context.Context, key, hash string) (CreateOrderResult, error) {
	rec, err := s.keys.FindByKey(ctx, key)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if rec == nil {
		return CreateOrderResult{}, domain.ErrIdempotencyInFlight
	}
	if rec.RequestHash != hash {
		return CreateOrderResult{}, domain.ErrIdempotencyReused
	}
	if rec.ResponseJSON == "" {
		return CreateOrderResult{}, domain.ErrIdempotencyInFlight
	}

	var result OrderResult
	if err := json.Unmarshal([]byte(rec.ResponseJSON), &result); err != nil {
		return CreateOrderResult{}, fmt.Errorf("decode cached order response: %w", err)
	}
	return CreateOrderResult{Order: result, Replayed: true}, nil
}

func (s *OrderService) recordAttempt(ctx context.Context, orderID string, typ domain.PaymentAttemptType, status domain.PaymentAttemptStatus, reason string) error {
	return s.payments.InsertAttempt(ctx, domain.PaymentAttempt{
		ID:        newID(),
		OrderID:   orderID,
		Type:      typ,
		Status:    status,
		Reason:    reason,
		CreatedAt: s.clock.Now(),
	})
}

func (s *OrderService) cacheResult(ctx context.Context, key string, result OrderResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode order response: %w", err)
	}
	return s.keys.StoreResponse(ctx, key, result.ID, string(body))
}

func (s *OrderService) GetOrder(ctx context.Context, p auth.Principal, id string) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !p.CanActFor(order.AttendeeID) {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// UpdateOrderState applies an administrative transition such as check-in
// or cancellation. The settlement saga owns PENDING -> CONFIRMED.
func (s *OrderService) UpdateOrderState(ctx context.Context, p auth.Principal, id string, to domain.OrderState) (domain.Order, error) {
	if !p.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}
	switch to {
	case domain.OrderStateCheckedIn, domain.OrderStateCompleted, domain.OrderStateCancelled:
	default:
		return domain.Order{}, domain.ErrInvalidOrderState
	}

	var updated domain.Order
	err := s.orders.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.GetOrder(txCtx, id)
		if err != nil {
			return err
		}
		if !domain.ValidOrderTransition(order.State, to) {
			return domain.ErrInvalidOrderState
		}
		if err := s.orders.UpdateState(txCtx, id, to); err != nil {
			return err
		}
		order.State = to
		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

func toOrderResult(order domain.Order) OrderResult {
	return OrderResult{
		ID:          order.ID,
		AttendeeID:  order.AttendeeID,
		EventID:     order.EventID,
		SeatIDs:     order.SeatIDs,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		State:       string(order.State),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func sameSeatSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
