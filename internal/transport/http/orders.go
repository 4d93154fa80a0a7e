package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/eventseat/ticketing/internal/app"
	"github.com/eventseat/ticketing/internal/auth"
	"github.com/eventseat/ticketing/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// OrderService is the slice of the settlement saga the handlers need.
type OrderService interface {
	CreateOrder(ctx context.Context, p auth.Principal, in app.CreateOrderInput) (app.CreateOrderResult, error)
	GetOrder(ctx context.Context, p auth.Principal, id string) (domain.Order, error)
	UpdateOrderState(ctx context.Context, p auth.Principal, id string, to domain.OrderState) (domain.Order, error)
}

// HandleCreateOrder returns an HTTP handler for POST /orders. The
// idempotency key travels in the Idempotency-Key header; a replayed key
// answers 200 with the cached order instead of 201.
func HandleCreateOrder(svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		var req createOrderRequest
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

		res, err := svc.CreateOrder(r.Context(), principal, app.CreateOrderInput{
			Key:        r.Header.Get(idempotencyHeader),
			AttendeeID: attendeeID,
			EventID:    req.EventID,
			SeatIDs:    req.SeatIDs,
			Currency:   req.Currency,
			HoldID:     req.HoldID,
			Simulate:   req.Simulate,
		})
		if err != nil {
			switch err {
			case domain.ErrPaymentDeclined:
				writeError(w, http.StatusPaymentRequired, codePaymentDeclined, err.Error())
			case domain.ErrPaymentTimeout:
				writeError(w, http.StatusGatewayTimeout, codePaymentTimeout, err.Error())
			case domain.ErrForbidden:
				writeError(w, http.StatusForbidden, codeForbidden, err.Error())
			case domain.ErrIdempotencyKeyRequired:
				writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
			case domain.ErrSeatIDsRequired:
				writeError(w, http.StatusBadRequest, codeSeatIDsRequired, err.Error())
			case domain.ErrCurrencyRequired:
				writeError(w, http.StatusBadRequest, codeCurrencyRequired, err.Error())
			case domain.ErrHoldNotFound, domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeHoldNotFound, domain.ErrHoldNotFound.Error())
			case domain.ErrHoldMismatch:
				writeError(w, http.StatusForbidden, codeHoldMismatch, err.Error())
			case domain.ErrHoldNotActive:
				writeError(w, http.StatusConflict, codeHoldNotActive, err.Error())
			case domain.ErrSeatSetMismatch:
				writeError(w, http.StatusConflict, codeSeatSetMismatch, err.Error())
			case domain.ErrSeatsNotHeld, domain.ErrSoldTransitionRace:
				writeError(w, http.StatusConflict, codeSeatsNotHeld, err.Error())
			case domain.ErrIdempotencyReused:
				writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
			case domain.ErrIdempotencyInFlight:
				writeError(w, http.StatusConflict, codeIdempotencyInFlight, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(res.Order)
	}
}

// HandleOrderByID returns an HTTP handler for GET /orders/{id} and
// PATCH /orders/{id}/state.
func HandleOrderByID(svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, stateSuffix, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		switch {
		case r.Method == http.MethodGet && !stateSuffix:
			order, err := svc.GetOrder(r.Context(), principal, id)
			if err != nil {
				writeOrderError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))
		case r.Method == http.MethodPatch && stateSuffix:
			var req updateOrderStateRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			order, err := svc.UpdateOrderState(r.Context(), principal, id, domain.OrderState(strings.ToUpper(req.State)))
			if err != nil {
				writeOrderError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrOrderNotFound, domain.ErrInvalidID:
		writeError(w, http.StatusNotFound, codeOrderNotFound, domain.ErrOrderNotFound.Error())
	case domain.ErrForbidden:
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case domain.ErrInvalidOrderState:
		writeError(w, http.StatusConflict, codeInvalidOrderState, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createOrderRequest struct {
	AttendeeID string   `json:"attendee_id,omitempty"`
	EventID    string   `json:"event_id"`
	SeatIDs    []string `json:"seat_ids"`
	Currency   string   `json:"currency"`
	HoldID     string   `json:"hold_id"`
	Simulate   string   `json:"simulate,omitempty"`
}

type updateOrderStateRequest struct {
	State string `json:"state"`
}

type orderResponse struct {
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

func toOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
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

// parseOrderPath accepts /orders/{id} and /orders/{id}/state.
func parseOrderPath(path string) (id string, stateSuffix, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "orders" && parts[1] != "":
		return parts[1], false, true
	case len(parts) == 3 && parts[0] == "orders" && parts[1] != "" && parts[2] == "state":
		return parts[1], true, true
	default:
		return "", false, false
	}
}
