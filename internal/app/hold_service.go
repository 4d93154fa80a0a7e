package app

import (
	"context"
	"time"

	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/clock"
	"github.com/eventseat/ticketing/internal/domain"
)

// SeatTransitioner is the conditional-update primitive over the seat
// ledger. Transition must execute the predicate and the write as a single
// atomic statement; it is the only synchronization mechanism the hold path
// relies on.
type SeatTransitioner interface {
	Transition(ctx context.Context, eventID string, seatIDs []string, from, to domain.SeatStatus) (int, error)
	StatusesForEvent(ctx context.Context, eventID string, seatIDs []string) (map[string]domain.SeatStatus, error)
}

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, id string) (domain.Hold, error)
	MarkReleased(ctx context.Context, id string) (bool, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
}

type HoldService struct {
	holds   HoldRepository
	seats   SeatTransitioner
	clock   clock.Clock
	holdTTL time.Duration
}

const defaultHoldTTL = 15 * time.Minute

func NewHoldService(holds HoldRepository, seats SeatTransitioner, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		holds:   holds,
		seats:   seats,
		clock:   clk,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type CreateHoldInput struct {
	AttendeeID string
	EventID    string
	SeatIDs    []string
	TTL        time.Duration
}

// CreateHold reserves the requested seats for the attendee. The seat
// transition and the hold insert run in one transaction: when fewer seats
// transition than requested the whole unit rolls back, so no partial hold
// and no stray HELD seats survive, and the caller gets per-seat
// diagnostics instead.
func (s *HoldService) CreateHold(ctx context.Context, p auth.Principal, in CreateHoldInput) (domain.Hold, error) {
	if !p.CanActFor(in.AttendeeID) {
		return domain.Hold{}, domain.ErrForbidden
	}
	if len(in.SeatIDs) == 0 {
		return domain.Hold{}, domain.ErrSeatIDsRequired
	}

	ttl := in.TTL
	if ttl < time.Minute {
		ttl = s.holdTTL
	}

	now := s.clock.Now()
	hold := domain.Hold{
		ID:         newID(),
		AttendeeID: in.AttendeeID,
		EventID:    in.EventID,
		SeatIDs:    append([]string(nil), in.SeatIDs...),
		Status:     domain.HoldStatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	err := s.holds.WithTx(ctx, func(txCtx context.Context) error {
		held, err := s.seats.Transition(txCtx, in.EventID, in.SeatIDs, domain.SeatStatusAvailable, domain.SeatStatusHeld)
		if err != nil {
			return err
		}
		if held != len(in.SeatIDs) {
			return s.seatConflict(txCtx, in.EventID, in.SeatIDs)
		}
		return s.holds.CreateHold(txCtx, hold)
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// seatConflict classifies every requested seat after a short transition
// count. Returning the error rolls the surrounding transaction back,
// reverting any seats the batch did move.
func (s *HoldService) seatConflict(ctx context.Context, eventID string, seatIDs []string) error {
	statuses, err := s.seats.StatusesForEvent(ctx, eventID, seatIDs)
	if err != nil {
		return err
	}

	diags := make(map[string]domain.SeatDiagnostic, len(seatIDs))
	for _, id := range seatIDs {
		status, ok := statuses[id]
		switch {
		case !ok:
			diags[id] = domain.SeatDiagnostic{Reason: domain.SeatReasonNotFound}
		case status != domain.SeatStatusAvailable:
			diags[id] = domain.SeatDiagnostic{Reason: domain.SeatReasonNotAvailable, Status: status}
		default:
			// Still AVAILABLE inside our own transaction: the update lost a
			// race with a writer that has since released the seat.
			diags[id] = domain.SeatDiagnostic{Reason: domain.SeatReasonRace, Status: status}
		}
	}
	return &domain.SeatConflictError{Diagnostics: diags}
}

func (s *HoldService) GetHold(ctx context.Context, p auth.Principal, id string) (domain.Hold, error) {
	hold, err := s.holds.GetHold(ctx, id)
	if err != nil {
		return domain.Hold{}, err
	}
	if !p.CanActFor(hold.AttendeeID) {
		return domain.Hold{}, domain.ErrForbidden
	}
	return hold, nil
}

// ReleaseHold returns the hold's seats to AVAILABLE and marks the hold
// RELEASED. The seat transition is unconditional and the hold mark is
// guarded on ACTIVE, so releasing a terminal hold is a no-op that still
// reports success.
func (s *HoldService) ReleaseHold(ctx context.Context, p auth.Principal, id string) error {
	return s.holds.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetHold(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanActFor(hold.AttendeeID) {
			return domain.ErrForbidden
		}

		if _, err := s.seats.Transition(txCtx, hold.EventID, hold.SeatIDs, domain.SeatStatusHeld, domain.SeatStatusAvailable); err != nil {
			return err
		}
		_, err = s.holds.MarkReleased(txCtx, id)
		return err
	})
}

// ExpireAndRelease is the sweeper's variant of release: it marks the hold
// EXPIRED rather than RELEASED so audits can tell system reclaim from
// attendee action. Safe to call repeatedly; non-ACTIVE holds are skipped.
func (s *HoldService) ExpireAndRelease(ctx context.Context, hold domain.Hold) error {
	if hold.Status != domain.HoldStatusActive {
		return nil
	}
	return s.holds.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.seats.Transition(txCtx, hold.EventID, hold.SeatIDs, domain.SeatStatusHeld, domain.SeatStatusAvailable); err != nil {
			return err
		}
		_, err := s.holds.MarkExpired(txCtx, hold.ID)
		return err
	})
}
