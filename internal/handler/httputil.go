// Package handler provides the stateless REST surface: one-shot compile
// and generate per mode, parse-only, catalog lookup, exports, health.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/datasmith/datasmith/internal/backend"
	"github.com/datasmith/datasmith/internal/schema"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// errorToHTTP maps the error taxonomy onto HTTP responses: validation
// problems are the client's to fix, backend problems are surfaced
// verbatim as gateway errors.
func errorToHTTP(w http.ResponseWriter, err error) {
	var (
		vErr schema.ValidationError
		rErr *backend.RemoteError
		tErr *backend.TransportError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", vErr.Reason)
	case errors.As(err, &rErr):
		writeError(w, http.StatusBadGateway, "REMOTE_ERROR", rErr.Error())
	case errors.As(err, &tErr):
		writeError(w, http.StatusBadGateway, "TRANSPORT_ERROR", tErr.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
