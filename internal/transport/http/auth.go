package http

import (
	"net/http"
	"strings"

	"github.com/eventseat/ticketing/internal/auth"
)

// RequireAuth verifies the bearer token and stores the resulting principal
// in the request context. Handlers behind it can assume principalFrom
// succeeds.
func RequireAuth(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		principal, err := auth.ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// principalFrom fetches the principal placed by RequireAuth and writes the
// 401 itself when a handler is reached without one.
func principalFrom(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}
