package http

import (
	"encoding/json"
	"net/http"

	"github.com/eventseat/ticketing/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidStartsAt     = "invalid_starts_at"
	codeEventNameRequired   = "event_name_required"
	codeCurrencyRequired    = "currency_required"
	codeInvalidPrice        = "invalid_price"
	codeSeatIDsRequired     = "seat_ids_required"
	codeSeatAlreadyExists   = "seat_already_exists"
	codeSeatsUnavailable    = "seats_unavailable"
	codeSeatSetMismatch     = "seat_set_mismatch"
	codeSeatsNotHeld        = "seats_not_held"
	codeEventNotFound       = "event_not_found"
	codeHoldNotFound        = "hold_not_found"
	codeHoldNotActive       = "hold_not_active"
	codeHoldMismatch        = "hold_mismatch"
	codeOrderNotFound       = "order_not_found"
	codeInvalidOrderState   = "invalid_order_state"
	codeIdempotencyRequired = "idempotency_key_required"
	codeIdempotencyConflict = "idempotency_conflict"
	codeIdempotencyInFlight = "idempotency_in_flight"
	codePaymentDeclined     = "payment_declined"
	codePaymentTimeout      = "payment_timeout"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

type seatConflictResponse struct {
	Error string                           `json:"error"`
	Code  string                           `json:"code"`
	Seats map[string]domain.SeatDiagnostic `json:"seats"`
}

// writeSeatConflict renders a 409 with per-seat reasons so clients can
// distinguish picking different seats from retrying.
func writeSeatConflict(w http.ResponseWriter, conflict *domain.SeatConflictError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)

	payload, err := json.Marshal(seatConflictResponse{
		Error: conflict.Error(),
		Code:  codeSeatsUnavailable,
		Seats: conflict.Diagnostics,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
