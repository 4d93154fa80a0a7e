package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eventseat/ticketing/internal/app"
	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/domain"
)

// HoldService is the slice of the hold manager the handlers need.
type HoldService interface {
	CreateHold(ctx context.Context, p auth.Principal, in app.CreateHoldInput) (domain.Hold, error)
	GetHold(ctx context.Context, p auth.Principal, id string) (domain.Hold, error)
	ReleaseHold(ctx context.Context, p auth.Principal, id string) error
}

// HandleCreateHold returns an HTTP handler for POST /holds.
func HandleCreateHold(svc HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		attendeeID := req.AttendeeID
		if attendeeID == "" {
			attendeeID = principal.Subject
		}

		hold, err := svc.CreateHold(r.Context(), principal, app.CreateHoldInput{
			AttendeeID: attendeeID,
			EventID:    req.EventID,
			SeatIDs:    req.SeatIDs,
			TTL:        time.Duration(req.TTLSeconds) * time.Second,
		})
		if err != nil {
			var conflict *domain.SeatConflictError
			switch {
			case errors.As(err, &conflict):
				writeSeatConflict(w, conflict)
			case err == domain.ErrForbidden:
				writeError(w, http.StatusForbidden, codeForbidden, err.Error())
			case err == domain.ErrSeatIDsRequired:
				writeError(w, http.StatusBadRequest, codeSeatIDsRequired, err.Error())
			case err == domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toHoldResponse(hold))
	}
}

// HandleHoldByID returns an HTTP handler for GET and DELETE /holds/{id}.
func HandleHoldByID(svc HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseHoldPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			hold, err := svc.GetHold(r.Context(), principal, id)
			if err != nil {
				writeHoldError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toHoldResponse(hold))
		case http.MethodDelete:
			if err := svc.ReleaseHold(r.Context(), principal, id); err != nil {
				writeHoldError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func writeHoldError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrHoldNotFound, domain.ErrInvalidID:
		writeError(w, http.StatusNotFound, codeHoldNotFound, domain.ErrHoldNotFound.Error())
	case domain.ErrForbidden:
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createHoldRequest struct {
	AttendeeID string   `json:"attendee_id,omitempty"`
	EventID    string   `json:"event_id"`
	SeatIDs    []string `json:"seat_ids"`
	TTLSeconds int      `json:"ttl_seconds,omitempty"`
}

type holdResponse struct {
	ID         string    `json:"id"`
	AttendeeID string    `json:"attendee_id"`
	EventID    string    `json:"event_id"`
	SeatIDs    []string  `json:"seat_ids"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func toHoldResponse(hold domain.Hold) holdResponse {
	return holdResponse{
		ID:         hold.ID,
		AttendeeID: hold.AttendeeID,
		EventID:    hold.EventID,
		SeatIDs:    hold.SeatIDs,
		Status:     string(hold.Status),
		CreatedAt:  hold.CreatedAt,
		ExpiresAt:  hold.ExpiresAt,
	}
}

func parseHoldPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "holds" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
