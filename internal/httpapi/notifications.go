package httpapi

import (
	"net/http"
	"strings"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/notification"
)

type createNotificationRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	User     string `json:"user"`
	UserType string `json:"userType"`
	OtherID  string `json:"otherId"`
	Category string `json:"category"`
}

func (req createNotificationRequest) params() notification.CreateParams {
	return notification.CreateParams{
		Title:         req.Title,
		Body:          req.Body,
		Recipient:     req.User,
		RecipientKind: notification.RecipientKind(req.UserType),
		OtherID:       req.OtherID,
		Category:      req.Category,
	}
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createNotification(w, r)
	case http.MethodGet:
		a.listNotifications(w, r)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

func (a *API) createNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	n, err := a.notifications.Create(r.Context(), req.params())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	recipient, ok := auth.PrincipalIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	page, limit := pageParams(r)
	items, total, err := a.notifications.ListByRecipient(r.Context(), recipient, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

// handleNotificationSubroutes covers /v1/notifications/{batch,read-all,tokens}
// and /v1/notifications/{id}/read.
func (a *API) handleNotificationSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	switch rest {
	case "batch":
		a.createNotificationBatch(w, r)
		return
	case "read-all":
		a.markAllNotificationsRead(w, r)
		return
	case "tokens":
		a.registerDeviceToken(w, r)
		return
	}
	if id, ok := strings.CutSuffix(rest, "/read"); ok && !strings.Contains(id, "/") {
		a.markNotificationRead(w, r, id)
		return
	}
	http.NotFound(w, r)
}

func (a *API) createNotificationBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	var reqs []createNotificationRequest
	if err := decodeJSON(r, &reqs); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	params := make([]notification.CreateParams, 0, len(reqs))
	for _, req := range reqs {
		params = append(params, req.params())
	}
	if err := a.notifications.CreateBatch(r.Context(), params); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	n, err := a.notifications.MarkOneRead(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	recipient, ok := auth.PrincipalIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := a.notifications.MarkAllRead(r.Context(), recipient); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerTokenRequest struct {
	Token   string `json:"token"`
	AgentID string `json:"agentId"`
}

// registerDeviceToken binds a push player token to the caller, or to an
// agent when agentId is supplied.
func (a *API) registerDeviceToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	var req registerTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var (
		dt  *notification.DeviceToken
		err error
	)
	if req.AgentID != "" {
		dt, err = a.notifications.RegisterAgentToken(r.Context(), req.Token, req.AgentID)
	} else {
		ac, ok := auth.FromContext(r.Context())
		if !ok || ac.Principal.Kind != identity.KindUser {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		dt, err = a.notifications.RegisterUserToken(r.Context(), req.Token, ac.Principal.ID())
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}
