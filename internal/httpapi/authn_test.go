package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/ids"
)

type memUserStore struct {
	users map[string]*identity.User
}

func (m *memUserStore) Create(_ context.Context, u *identity.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUserStore) Find(_ context.Context, id string) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (m *memUserStore) Update(_ context.Context, u *identity.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return identity.ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserStore) SaveDocuments(context.Context, []identity.UserDocument) error { return nil }

func (m *memUserStore) Documents(context.Context, string) ([]identity.UserDocument, error) {
	return nil, nil
}

type memAgentStore struct {
	agents map[string]*identity.Agent
}

func (m *memAgentStore) Create(_ context.Context, a *identity.Agent) error {
	m.agents[a.ID] = a
	return nil
}

func (m *memAgentStore) Find(_ context.Context, id string) (*identity.Agent, error) {
	a, ok := m.agents[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return a, nil
}

func (m *memAgentStore) FindByEmail(context.Context, string) (*identity.Agent, error) {
	return nil, identity.ErrNotFound
}

func (m *memAgentStore) Update(_ context.Context, a *identity.Agent) error {
	m.agents[a.ID] = a
	return nil
}

func (m *memAgentStore) Search(context.Context, string, int, int) ([]*identity.Agent, int, error) {
	return nil, 0, nil
}

func (m *memAgentStore) ConnectedToUser(context.Context, string, int, int) ([]*identity.Agent, int, error) {
	return nil, 0, nil
}

func (m *memAgentStore) Connect(context.Context, string, string) error { return nil }

func newGateFixture(t *testing.T) (*API, *identity.User, string) {
	t.Helper()
	users := &memUserStore{users: map[string]*identity.User{}}
	agents := &memAgentStore{agents: map[string]*identity.Agent{}}
	codec := auth.NewCodec("gate-test-secret")

	user := &identity.User{
		ID:          ids.New(),
		Email:       "buyer@example.com",
		Fullname:    "Test Buyer",
		AccountType: identity.AccountTypeBuyer,
	}
	users.users[user.ID] = user

	token, err := codec.UserToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	api := New(Services{
		Codec:    codec,
		Resolver: auth.NewResolver(users, agents),
	}, ReadyProbe{}, Config{Version: "test"})
	return api, user, token
}

func gateProbe(api *API) (http.Handler, *auth.AuthContext) {
	captured := &auth.AuthContext{}
	return api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac, ok := auth.FromContext(r.Context()); ok {
			*captured = ac
		}
		w.WriteHeader(http.StatusOK)
	})), captured
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestGateMissingHeader(t *testing.T) {
	api, _, _ := newGateFixture(t)
	handler, _ := gateProbe(api)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := errorMessage(t, rr); got != "Please provide bearer token in authorization header." {
		t.Fatalf("message = %q", got)
	}
}

func TestGateMalformedHeader(t *testing.T) {
	api, _, token := newGateFixture(t)
	handler, _ := gateProbe(api)

	for _, header := range []string{"Basic " + token, "Bearer", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("header %q: status = %d, want 400", header, rr.Code)
		}
		if got := errorMessage(t, rr); got != "Invalid authorization header format." {
			t.Fatalf("header %q: message = %q", header, got)
		}
	}
}

func TestGateInvalidToken(t *testing.T) {
	api, _, _ := newGateFixture(t)
	handler, _ := gateProbe(api)

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := errorMessage(t, rr); got != "Invalid token. Please login again." {
		t.Fatalf("message = %q", got)
	}
}

func TestGateUnknownUser(t *testing.T) {
	api, _, _ := newGateFixture(t)
	handler, _ := gateProbe(api)

	// Valid signature over an id that has no record behind it.
	ghost, err := api.codec.UserToken(&identity.User{
		ID:          ids.New(),
		Email:       "ghost@example.com",
		AccountType: identity.AccountTypeSeller,
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := errorMessage(t, rr); got != "User not found." {
		t.Fatalf("message = %q", got)
	}
}

func TestGateAttachesAuthContext(t *testing.T) {
	api, user, token := newGateFixture(t)
	handler, captured := gateProbe(api)

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if captured.Principal.ID() != user.ID {
		t.Fatalf("principal id = %q, want %q", captured.Principal.ID(), user.ID)
	}
	if captured.Role != identity.AccountTypeBuyer {
		t.Fatalf("role = %q, want buyer", captured.Role)
	}
}

func TestGateSkipsPublicPaths(t *testing.T) {
	api, _, _ := newGateFixture(t)
	handler, _ := gateProbe(api)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info", "/metrics", "/ws/notifications"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("path %s: status = %d, want 200", path, rr.Code)
		}
	}
}
