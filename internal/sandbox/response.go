package sandbox

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// httpError is a handler failure carrying the exact body to send.
type httpError struct {
	status int
	body   map[string]any
}

func (e *httpError) Error() string {
	return http.StatusText(e.status)
}

func fail(status int, key string, message string) *httpError {
	return &httpError{status: status, body: map[string]any{key: message}}
}

// fieldErrors renders {"field": ["message"]} bodies.
func fieldErrors(fields map[string]string) *httpError {
	body := make(map[string]any, len(fields))
	for field, message := range fields {
		body[field] = []string{message}
	}
	return &httpError{status: http.StatusBadRequest, body: body}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, err error) {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		writeJSON(w, httpErr.status, httpErr.body)
		return
	}

	slog.Error("unhandled sandbox error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Unexpected server error"})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst); err != nil {
		return fail(http.StatusBadRequest, "detail", "JSON parse error")
	}
	return nil
}
