package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eventseat/ticketing/internal/app"
	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/domain"
)

// CatalogService is the admin event and seat surface.
type CatalogService interface {
	CreateEvent(ctx context.Context, p auth.Principal, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context, p auth.Principal) ([]domain.Event, error)
	CreateSeat(ctx context.Context, p auth.Principal, in app.CreateSeatInput) (domain.Seat, error)
	ListSeats(ctx context.Context, p auth.Principal, eventID string) ([]domain.Seat, error)
}

// ImportService ingests CSV seat inventory for one event.
type ImportService interface {
	Import(ctx context.Context, p auth.Principal, in app.ImportInput) (app.ImportReport, error)
}

// Uploads larger than this are rejected before parsing.
const maxImportBytes = 4 << 20

// HandleAdminEvents returns an HTTP handler for event creation/listing.
func HandleAdminEvents(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context(), principal)
			if err != nil {
				writeAdminError(w, err)
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, toEventResponse(event))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var startsAt time.Time
			if req.StartsAt != "" {
				parsed, err := time.Parse(time.RFC3339, req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				startsAt = parsed
			}

			event, err := svc.CreateEvent(r.Context(), principal, app.CreateEventInput{
				Name:     req.Name,
				StartsAt: startsAt,
			})
			if err != nil {
				writeAdminError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toEventResponse(event))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminEventResources routes /admin/events/{id}/seats and
// /admin/events/{id}/import.
func HandleAdminEventResources(catalog CatalogService, importer ImportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, resource, ok := parseAdminEventPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		switch resource {
		case "seats":
			handleSeats(w, r, catalog, principal, eventID)
		case "import":
			handleImport(w, r, importer, principal, eventID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleSeats(w http.ResponseWriter, r *http.Request, svc CatalogService, principal auth.Principal, eventID string) {
	switch r.Method {
	case http.MethodGet:
		seats, err := svc.ListSeats(r.Context(), principal, eventID)
		if err != nil {
			writeAdminError(w, err)
			return
		}
		resp := make([]seatResponse, 0, len(seats))
		for _, seat := range seats {
			resp = append(resp, toSeatResponse(seat))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	case http.MethodPost:
		var req createSeatRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.BasePriceCents < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidPrice, "base_price_cents must not be negative")
			return
		}

		seat, err := svc.CreateSeat(r.Context(), principal, app.CreateSeatInput{
			EventID:        eventID,
			Section:        req.Section,
			RowLabel:       req.RowLabel,
			SeatNumber:     req.SeatNumber,
			BasePriceCents: req.BasePriceCents,
			Currency:       req.Currency,
		})
		if err != nil {
			writeAdminError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toSeatResponse(seat))
	default:
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	}
}

func handleImport(w http.ResponseWriter, r *http.Request, svc ImportService, principal auth.Principal, eventID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "could not read upload")
		return
	}

	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = "upload.csv"
	}

	report, err := svc.Import(r.Context(), principal, app.ImportInput{
		Key:      r.Header.Get(idempotencyHeader),
		EventID:  eventID,
		Filename: filename,
		Body:     body,
	})
	if err != nil {
		switch err {
		case domain.ErrIdempotencyKeyRequired:
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
		case domain.ErrIdempotencyReused:
			writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
		case domain.ErrIdempotencyInFlight:
			writeError(w, http.StatusConflict, codeIdempotencyInFlight, err.Error())
		default:
			writeAdminError(w, err)
		}
		return
	}

	status := http.StatusCreated
	if report.Replayed {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrForbidden:
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case domain.ErrEventNameRequired:
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case domain.ErrCurrencyRequired:
		writeError(w, http.StatusBadRequest, codeCurrencyRequired, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusNotFound, codeInvalidID, err.Error())
	case domain.ErrEventNotFound:
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case domain.ErrSeatAlreadyExists:
		writeError(w, http.StatusConflict, codeSeatAlreadyExists, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createEventRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at,omitempty"`
}

type eventResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

func toEventResponse(event domain.Event) eventResponse {
	return eventResponse{ID: event.ID, Name: event.Name, StartsAt: event.StartsAt}
}

type createSeatRequest struct {
	Section        string `json:"section"`
	RowLabel       string `json:"row_label"`
	SeatNumber     string `json:"seat_number"`
	BasePriceCents int64  `json:"base_price_cents"`
	Currency       string `json:"currency"`
}

type seatResponse struct {
	ID             string `json:"id"`
	EventID        string `json:"event_id"`
	Section        string `json:"section"`
	RowLabel       string `json:"row_label"`
	SeatNumber     string `json:"seat_number"`
	BasePriceCents int64  `json:"base_price_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}

func toSeatResponse(seat domain.Seat) seatResponse {
	return seatResponse{
		ID:             seat.ID,
		EventID:        seat.EventID,
		Section:        seat.Section,
		RowLabel:       seat.RowLabel,
		SeatNumber:     seat.SeatNumber,
		BasePriceCents: seat.BasePriceCents,
		Currency:       seat.Currency,
		Status:         string(seat.Status),
	}
}

func parseAdminEventPath(path string) (eventID, resource string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "events" || parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
