package httpapi

import (
	"net/http"
	"strings"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/property"
)

func (a *API) handleProperties(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createProperty(w, r)
	case http.MethodGet:
		a.listPropertiesByAgent(w, r)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

func (a *API) createProperty(w http.ResponseWriter, r *http.Request) {
	var params property.CreateParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	prop, err := a.properties.Create(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, prop)
}

func (a *API) listPropertiesByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		writeError(w, r, http.StatusBadRequest, "agentId query parameter is required")
		return
	}
	page, limit := pageParams(r)
	props, total, err := a.properties.ListByAgent(r.Context(), agentID, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, propertyPage(props, total, page, limit))
}

func (a *API) handlePropertyByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/properties/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	prop, err := a.properties.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

// handleSavedProperties lists the caller's favorites.
func (a *API) handleSavedProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	userID, ok := auth.PrincipalIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	page, limit := pageParams(r)
	props, total, err := a.properties.ListSaved(r.Context(), userID, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, propertyPage(props, total, page, limit))
}

// handleSavedPropertyByID toggles a favorite: PUT saves, DELETE removes.
func (a *API) handleSavedPropertyByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/saved-properties/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	userID, ok := auth.PrincipalIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var err error
	switch r.Method {
	case http.MethodPut:
		err = a.properties.SaveForUser(r.Context(), userID, id)
	case http.MethodDelete:
		err = a.properties.UnsaveForUser(r.Context(), userID, id)
	default:
		methodNotAllowed(w, r, "PUT, DELETE")
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func propertyPage(props []*property.Property, total, page, limit int) map[string]any {
	if props == nil {
		props = []*property.Property{}
	}
	return map[string]any{
		"properties": props,
		"total":      total,
		"page":       page,
		"limit":      limit,
	}
}
