package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrForbidden              = errors.New("not owner or admin")
	ErrSeatIDsRequired        = errors.New("seat ids required")
	ErrInvalidID              = errors.New("invalid id")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyReused      = errors.New("idempotency key reused with different payload")
	ErrIdempotencyInFlight    = errors.New("request with same idempotency key is in flight")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrHoldNotActive          = errors.New("hold is not active")
	ErrHoldMismatch           = errors.New("hold does not belong to attendee or event")
	ErrSeatSetMismatch        = errors.New("requested seats do not match hold")
	ErrSeatsNotHeld           = errors.New("one or more seats are not held")
	ErrSoldTransitionRace     = errors.New("could not mark all seats as sold")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidOrderState      = errors.New("invalid order state transition")
	ErrEventNotFound          = errors.New("event not found")
	ErrEventNameRequired      = errors.New("event name required")
	ErrCurrencyRequired       = errors.New("currency required")
	ErrSeatAlreadyExists      = errors.New("seat already exists")
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrPaymentTimeout         = errors.New("payment timeout")
)

// Per-seat reasons reported when a hold cannot be created.
const (
	SeatReasonNotFound     = "not_found_or_wrong_event"
	SeatReasonNotAvailable = "not_available"
	SeatReasonRace         = "race_condition_or_retried"
)

// SeatDiagnostic explains why one requested seat blocked a hold.
type SeatDiagnostic struct {
	Reason string     `json:"reason"`
	Status SeatStatus `json:"status,omitempty"`
}

// SeatConflictError reports, per requested seat, why the AVAILABLE -> HELD
// transition covered fewer rows than requested. Clients use the reasons to
// decide between picking different seats and retrying.
type SeatConflictError struct {
	Diagnostics map[string]SeatDiagnostic
}

func (e *SeatConflictError) Error() string {
	ids := make([]string, 0, len(e.Diagnostics))
	for id := range e.Diagnostics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("seats not available: %s", strings.Join(ids, ","))
}
