package domain

import "time"

type OrderState string

const (
	OrderStatePending   OrderState = "PENDING"
	OrderStateConfirmed OrderState = "CONFIRMED"
	OrderStateCheckedIn OrderState = "CHECKED_IN"
	OrderStateCompleted OrderState = "COMPLETED"
	OrderStateCancelled OrderState = "CANCELLED"
)

// Order is a purchase derived from a hold. AmountCents is captured once at
// settlement from the seats' prices and never recomputed. An order becomes
// CONFIRMED only after its seats complete HELD -> SOLD; the later states are
// reached through the admin state endpoint, not the settlement saga.
type Order struct {
	ID          string
	AttendeeID  string
	EventID     string
	SeatIDs     []string
	AmountCents int64
	Currency    string
	State       OrderState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidOrderTransition reports whether an admin state change is allowed.
// The settlement saga owns PENDING -> CONFIRMED; everything downstream of
// CONFIRMED is an explicit administrative step.
func ValidOrderTransition(from, to OrderState) bool {
	switch from {
	case OrderStateConfirmed:
		return to == OrderStateCheckedIn || to == OrderStateCompleted || to == OrderStateCancelled
	case OrderStateCheckedIn:
		return to == OrderStateCompleted || to == OrderStateCancelled
	case OrderStatePending:
		return to == OrderStateCancelled
	default:
		return false
	}
}
