package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/notification"
	"snaphomz.org/internal/obs"
	"snaphomz.org/internal/property"
	"snaphomz.org/internal/subscription"
	"snaphomz.org/internal/zipforms"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if id := requestIDFrom(r.Context()); id != "" {
		body["request_id"] = id
	}
	writeJSON(w, code, body)
}

// writeDomainError maps sentinel errors onto the HTTP taxonomy. Unknown
// errors become a generic 500; the detail goes to the log only.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, identity.ErrAlreadyOnboarded),
		errors.Is(err, identity.ErrAlreadyExists),
		errors.Is(err, notification.ErrInvalidRecipient),
		errors.Is(err, property.ErrInvalidInput),
		errors.Is(err, subscription.ErrInvalidInput),
		errors.Is(err, zipforms.ErrBadRequest):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, zipforms.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, notification.ErrNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, subscription.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, zipforms.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		obs.LogEvent(map[string]any{
			"level":      "error",
			"msg":        "request_failed",
			"error":      err.Error(),
			"request_id": requestIDFrom(r.Context()),
			"path":       r.URL.Path,
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// pageParams reads ?page= and ?limit= with sane defaults.
func pageParams(r *http.Request) (int, int) {
	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 10)
	return page, limit
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
