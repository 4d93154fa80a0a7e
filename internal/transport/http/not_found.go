package http

import "net/http"

// NotFoundHandler is the mux fallback: unknown paths get the same
// {"error","code"} body the rest of the API speaks.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown route")
	})
}
