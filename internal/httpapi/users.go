package httpapi

import (
	"net/http"
	"strings"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
)

func (a *API) handleUserSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if rest == "documents" {
		a.saveUserDocuments(w, r)
		return
	}
	if id, ok := strings.CutSuffix(rest, "/onboard"); ok && !strings.Contains(id, "/") {
		a.onboardUser(w, r, id)
		return
	}
	http.NotFound(w, r)
}

type onboardUserRequest struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Password    string `json:"password"`
	Mobile      string `json:"mobile"`
	AccountType string `json:"accountType"`
}

type userResponse struct {
	ID                  string                       `json:"id"`
	Email               string                       `json:"email"`
	Firstname           string                       `json:"firstname"`
	Lastname            string                       `json:"lastname"`
	Fullname            string                       `json:"fullname"`
	AccountType         string                       `json:"accountType"`
	Mobile              string                       `json:"mobile,omitempty"`
	CompletedOnboarding bool                         `json:"completedOnboarding"`
	PropertyPreference  *identity.PropertyPreference `json:"propertyPreference,omitempty"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Firstname:           u.Firstname,
		Lastname:            u.Lastname,
		Fullname:            u.Fullname,
		AccountType:         string(u.AccountType),
		Mobile:              u.Mobile,
		CompletedOnboarding: u.CompletedOnboarding,
		PropertyPreference:  u.PropertyPreference,
	}
}

func (a *API) onboardUser(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	var req onboardUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.identity.OnboardUser(r.Context(), id, identity.OnboardUserParams{
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Password:    req.Password,
		Mobile:      req.Mobile,
		AccountType: identity.AccountType(req.AccountType),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  toUserResponse(res.User),
		"token": res.Token,
	})
}

type documentRequest struct {
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
}

func (a *API) saveUserDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	ac, ok := auth.FromContext(r.Context())
	if !ok || ac.Principal.User == nil {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var reqs []documentRequest
	if err := decodeJSON(r, &reqs); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	docs := make([]identity.UserDocument, 0, len(reqs))
	for _, d := range reqs {
		docs = append(docs, identity.UserDocument{
			Name:      d.Name,
			Thumbnail: d.Thumbnail,
			URL:       d.URL,
		})
	}
	saved, err := a.identity.SaveUserDocuments(r.Context(), ac.Principal.User, docs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"documents": saved})
}

func (a *API) savePropertyPreference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST, PUT")
		return
	}
	ac, ok := auth.FromContext(r.Context())
	if !ok || ac.Principal.User == nil {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var pref identity.PropertyPreference
	if err := decodeJSON(r, &pref); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.identity.SavePropertyPreference(r.Context(), ac.Principal.User, pref)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
