package app

import (
	"context"
	"strings"
	"time"

	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/domain"
)

type CatalogRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateSeat(ctx context.Context, seat domain.Seat) error
	ListSeatsByEvent(ctx context.Context, eventID string) ([]domain.Seat, error)
}

// CatalogService is the admin surface for events and seat inventory.
type CatalogService struct {
	catalog CatalogRepository
}

func NewCatalogService(catalog CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

type CreateEventInput struct {
	Name     string
	StartsAt time.Time
}

func (s *CatalogService) CreateEvent(ctx context.Context, p auth.Principal, in CreateEventInput) (domain.Event, error) {
	if !p.IsAdmin() {
		return domain.Event{}, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}

	event := domain.Event{
		ID:       newID(),
		Name:     strings.TrimSpace(in.Name),
		StartsAt: in.StartsAt,
	}
	if err := s.catalog.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *CatalogService) ListEvents(ctx context.Context, p auth.Principal) ([]domain.Event, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.catalog.ListEvents(ctx)
}

type CreateSeatInput struct {
	EventID        string
	Section        string
	RowLabel       string
	SeatNumber     string
	BasePriceCents int64
	Currency       string
}

// CreateSeat adds one seat to an event's inventory. New seats always start
// AVAILABLE; the ledger owns every later status change.
func (s *CatalogService) CreateSeat(ctx context.Context, p auth.Principal, in CreateSeatInput) (domain.Seat, error) {
	if !p.IsAdmin() {
		return domain.Seat{}, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Currency) == "" {
		return domain.Seat{}, domain.ErrCurrencyRequired
	}

	seat := domain.Seat{
		ID:             newID(),
		EventID:        in.EventID,
		Section:        strings.TrimSpace(in.Section),
		RowLabel:       strings.TrimSpace(in.RowLabel),
		SeatNumber:     strings.TrimSpace(in.SeatNumber),
		BasePriceCents: in.BasePriceCents,
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		Status:         domain.SeatStatusAvailable,
	}
	if err := s.catalog.CreateSeat(ctx, seat); err != nil {
		return domain.Seat{}, err
	}
	return seat, nil
}

func (s *CatalogService) ListSeats(ctx context.Context, p auth.Principal, eventID string) ([]domain.Seat, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.catalog.ListSeatsByEvent(ctx, eventID)
}
