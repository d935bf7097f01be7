package httpapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amaydixit11/tabsync/internal/apperr"
)

// enforceJSON rejects a request body whose Content-Type is not
// application/json (ignoring an optional charset parameter) with 415, per
// spec.md §6. GET requests carry no body and are exempt.
func enforceJSON(logger zerolog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next(w, r)
			return
		}

		ct := r.Header.Get("Content-Type")
		mediaType := strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
		if !strings.EqualFold(mediaType, "application/json") {
			apperr.WriteJSON(w, logger, apperr.UnsupportedMediaType())
			return
		}
		next(w, r)
	}
}
