package httpapi

import (
	"net/http"
	"strings"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
)

func (a *API) handlePlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	plans, err := a.subscriptions.Plans(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

type subscribeRequest struct {
	PlanID string `json:"planId"`
}

func (a *API) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	kind := string(identity.KindUser)
	if ac.Principal.Kind == identity.KindAgent {
		kind = string(identity.KindAgent)
	}
	sub, err := a.subscriptions.Subscribe(r.Context(), ac.Principal.ID(), kind, req.PlanID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	principalID, ok := auth.PrincipalIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	sub, err := a.subscriptions.Current(r.Context(), principalID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *API) handleSubscriptionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, "DELETE")
		return
	}
	if err := a.subscriptions.Cancel(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
