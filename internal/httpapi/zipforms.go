package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"snaphomz.org/internal/zipforms"
)

func (a *API) handleZipAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	if a.zip == nil {
		http.NotFound(w, r)
		return
	}
	var params zipforms.AuthParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	body, err := a.zip.AuthenticateUser(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeRaw(w, body)
}

func (a *API) handleZipTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	if a.zip == nil {
		http.NotFound(w, r)
		return
	}
	contextID := r.Header.Get("X-Auth-ContextId")
	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	body, err := a.zip.CreateTransaction(r.Context(), contextID, payload)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeRaw(w, body)
}

func (a *API) handleZipWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	if a.zip == nil {
		http.NotFound(w, r)
		return
	}
	scope := strings.TrimPrefix(r.URL.Path, "/v1/zipforms/webhooks/")
	if scope == "" || strings.Contains(scope, "/") {
		http.NotFound(w, r)
		return
	}
	var params zipforms.WebhookParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	body, err := a.zip.CreateWebhook(r.Context(), scope, params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeRaw(w, body)
}

// writeRaw relays an upstream JSON body untouched.
func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write(body)
}
