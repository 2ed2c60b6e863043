package httpapi

import (
	"net/http"
	"strings"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
)

func (a *API) handleAgentSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/agents/")
	if id, ok := strings.CutSuffix(rest, "/onboard"); ok && !strings.Contains(id, "/") {
		a.onboardAgent(w, r, id)
		return
	}
	http.NotFound(w, r)
}

type onboardAgentRequest struct {
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Password      string `json:"password"`
	Mobile        string `json:"mobile"`
	LicenceNumber string `json:"licenceNumber"`
	Region        string `json:"region"`
	Avatar        string `json:"avatar"`
}

type agentResponse struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Firstname           string `json:"firstname"`
	Lastname            string `json:"lastname"`
	Fullname            string `json:"fullname"`
	LicenceNumber       string `json:"licenceNumber"`
	Region              string `json:"region,omitempty"`
	Mobile              string `json:"mobile,omitempty"`
	Avatar              string `json:"avatar,omitempty"`
	EmailVerified       bool   `json:"emailVerified"`
	CompletedOnboarding bool   `json:"completedOnboarding"`
}

func toAgentResponse(a *identity.Agent) agentResponse {
	return agentResponse{
		ID:                  a.ID,
		Email:               a.Email,
		Firstname:           a.Firstname,
		Lastname:            a.Lastname,
		Fullname:            a.Fullname,
		LicenceNumber:       a.LicenceNumber,
		Region:              a.Region,
		Mobile:              a.Mobile,
		Avatar:              a.Avatar,
		EmailVerified:       a.EmailVerified,
		CompletedOnboarding: a.CompletedOnboarding,
	}
}

func (a *API) onboardAgent(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	var req onboardAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.identity.OnboardAgent(r.Context(), id, identity.OnboardAgentParams{
		Firstname:     req.Firstname,
		Lastname:      req.Lastname,
		Password:      req.Password,
		Mobile:        req.Mobile,
		LicenceNumber: req.LicenceNumber,
		Region:        req.Region,
		Avatar:        req.Avatar,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent": toAgentResponse(res.Agent),
		"token": res.Token,
	})
}

func (a *API) handleAgentSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	page, limit := pageParams(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	agents, total, err := a.identity.SearchAgents(r.Context(), query, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentPage(agents, total, page, limit))
}

func (a *API) handleAgentsConnected(w http.ResponseWriter, r *http.Request) {
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
	agents, total, err := a.identity.AgentsConnectedToUser(r.Context(), userID, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentPage(agents, total, page, limit))
}

func agentPage(agents []*identity.Agent, total, page, limit int) map[string]any {
	out := make([]agentResponse, 0, len(agents))
	for _, ag := range agents {
		out = append(out, toAgentResponse(ag))
	}
	return map[string]any{
		"agents": out,
		"total":  total,
		"page":   page,
		"limit":  limit,
	}
}
