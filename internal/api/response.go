package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/pokelend/internal/lending"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// lendingError maps a lending failure to its status code. Storage causes
// are logged, never sent.
func lendingError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch lending.KindOf(err) {
	case lending.KindValidation:
		status = http.StatusBadRequest
	case lending.KindAuth:
		status = http.StatusUnauthorized
	case lending.KindNotFound:
		status = http.StatusNotFound
	case lending.KindConflict:
		status = http.StatusConflict
	default:
		slog.Error("lending operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	jsonError(w, status, lending.Message(err))
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}
