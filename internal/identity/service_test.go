package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"snaphomz.org/internal/ids"
)

type fakeUserStore struct {
	users map[string]*User
}

func (f *fakeUserStore) Create(_ context.Context, u *User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) Find(_ context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUserStore) Update(_ context.Context, u *User) error {
	if _, ok := f.users[u.ID]; !ok {
		return ErrNotFound
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserStore) SaveDocuments(_ context.Context, docs []UserDocument) error {
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = ids.New()
		}
	}
	return nil
}

func (f *fakeUserStore) Documents(context.Context, string) ([]UserDocument, error) {
	return nil, nil
}

type fakeAgentStore struct {
	agents map[string]*Agent
}

func (f *fakeAgentStore) Create(_ context.Context, a *Agent) error {
	f.agents[a.ID] = a
	return nil
}

func (f *fakeAgentStore) Find(_ context.Context, id string) (*Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAgentStore) FindByEmail(context.Context, string) (*Agent, error) {
	return nil, ErrNotFound
}

func (f *fakeAgentStore) Update(_ context.Context, a *Agent) error {
	if _, ok := f.agents[a.ID]; !ok {
		return ErrNotFound
	}
	clone := *a
	f.agents[a.ID] = &clone
	return nil
}

func (f *fakeAgentStore) Search(context.Context, string, int, int) ([]*Agent, int, error) {
	return nil, 0, nil
}

func (f *fakeAgentStore) ConnectedToUser(context.Context, string, int, int) ([]*Agent, int, error) {
	return nil, 0, nil
}

func (f *fakeAgentStore) Connect(context.Context, string, string) error { return nil }

type recordedNotification struct {
	title, body, recipient, kind string
}

type fakeNotifier struct {
	sent []recordedNotification
}

func (f *fakeNotifier) Dispatch(_ context.Context, title, body, recipientID, recipientKind string) error {
	f.sent = append(f.sent, recordedNotification{title, body, recipientID, recipientKind})
	return nil
}

type fakeTokenIssuer struct{}

func (fakeTokenIssuer) UserToken(u *User) (string, error)   { return "token-for-" + u.ID, nil }
func (fakeTokenIssuer) AgentToken(a *Agent) (string, error) { return "token-for-" + a.ID, nil }

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendWelcome(_ context.Context, to, _ string, _ bool) error {
	f.sent = append(f.sent, to)
	return nil
}

func plainHash(password string) (string, error) { return "hashed:" + password, nil }

type serviceFixture struct {
	svc    *Service
	users  *fakeUserStore
	agents *fakeAgentStore
	notify *fakeNotifier
	mail   *fakeMailer
}

func newServiceFixture() *serviceFixture {
	users := &fakeUserStore{users: map[string]*User{}}
	agents := &fakeAgentStore{agents: map[string]*Agent{}}
	notify := &fakeNotifier{}
	mail := &fakeMailer{}
	svc := NewService(users, agents, fakeTokenIssuer{}, notify, mail, plainHash, nil)
	return &serviceFixture{svc: svc, users: users, agents: agents, notify: notify, mail: mail}
}

func TestOnboardUser(t *testing.T) {
	f := newServiceFixture()
	id := ids.New()
	f.users.users[id] = &User{ID: id, Email: "amy@example.com"}

	res, err := f.svc.OnboardUser(context.Background(), id, OnboardUserParams{
		Firstname:   " Amy ",
		Lastname:    "Pond",
		Password:    "long-enough",
		Mobile:      "+1 (415) 555-0101",
		AccountType: AccountTypeBuyer,
	})
	if err != nil {
		t.Fatalf("OnboardUser: %v", err)
	}
	if res.Token != "token-for-"+id {
		t.Fatalf("token = %q", res.Token)
	}
	if res.User.Fullname != "Amy Pond" {
		t.Fatalf("fullname = %q", res.User.Fullname)
	}
	if res.User.PasswordHash != "hashed:long-enough" {
		t.Fatalf("password hash = %q", res.User.PasswordHash)
	}
	if res.User.Mobile != "+14155550101" {
		t.Fatalf("mobile = %q", res.User.Mobile)
	}
	if !f.users.users[id].CompletedOnboarding {
		t.Fatal("onboarding flag not persisted")
	}

	if len(f.notify.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notify.sent))
	}
	n := f.notify.sent[0]
	if n.title != "New User Onboarded: Welcome" {
		t.Fatalf("title = %q", n.title)
	}
	if !strings.Contains(n.body, "Amy Pond") {
		t.Fatalf("body = %q", n.body)
	}
	if n.recipient != id || n.kind != "user" {
		t.Fatalf("recipient = %q/%q", n.recipient, n.kind)
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0] != "amy@example.com" {
		t.Fatalf("welcome mail = %v", f.mail.sent)
	}
}

func TestOnboardUserValidation(t *testing.T) {
	f := newServiceFixture()
	id := ids.New()
	f.users.users[id] = &User{ID: id, Email: "amy@example.com"}

	cases := []OnboardUserParams{
		{Lastname: "Pond", Password: "long-enough", AccountType: AccountTypeBuyer},
		{Firstname: "Amy", Lastname: "Pond", Password: "short", AccountType: AccountTypeBuyer},
		{Firstname: "Amy", Lastname: "Pond", Password: "long-enough", AccountType: AccountType("ADMIN")},
		{Firstname: "Amy", Lastname: "Pond", Password: "long-enough", AccountType: AccountTypeAgent},
	}
	for _, p := range cases {
		if _, err := f.svc.OnboardUser(context.Background(), id, p); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("params %+v: err = %v, want ErrInvalidInput", p, err)
		}
	}
	if len(f.notify.sent) != 0 {
		t.Fatal("failed onboarding must not notify")
	}
}

func TestOnboardUserUnknownID(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.OnboardUser(context.Background(), ids.New(), OnboardUserParams{
		Firstname: "Amy", Lastname: "Pond", Password: "long-enough", AccountType: AccountTypeBuyer,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOnboardAgent(t *testing.T) {
	f := newServiceFixture()
	id := ids.New()
	f.agents.agents[id] = &Agent{ID: id, Email: "rory@example.com"}

	res, err := f.svc.OnboardAgent(context.Background(), id, OnboardAgentParams{
		Firstname:     "Rory",
		Lastname:      "Williams",
		Password:      "long-enough",
		LicenceNumber: "CA-99",
		Region:        "Bay Area",
	})
	if err != nil {
		t.Fatalf("OnboardAgent: %v", err)
	}
	if res.Agent.LicenceNumber != "CA-99" || !res.Agent.CompletedOnboarding {
		t.Fatalf("agent = %+v", res.Agent)
	}
	if f.notify.sent[0].title != "New Agent Onboarded: Welcome" {
		t.Fatalf("title = %q", f.notify.sent[0].title)
	}
	if f.notify.sent[0].kind != "agent" {
		t.Fatalf("kind = %q", f.notify.sent[0].kind)
	}
}

func TestOnboardAgentTwiceFails(t *testing.T) {
	f := newServiceFixture()
	id := ids.New()
	f.agents.agents[id] = &Agent{ID: id, Email: "rory@example.com"}

	params := OnboardAgentParams{
		Firstname: "Rory", Lastname: "Williams", Password: "long-enough", LicenceNumber: "CA-99",
	}
	if _, err := f.svc.OnboardAgent(context.Background(), id, params); err != nil {
		t.Fatalf("first onboarding: %v", err)
	}
	if _, err := f.svc.OnboardAgent(context.Background(), id, params); !errors.Is(err, ErrAlreadyOnboarded) {
		t.Fatalf("second onboarding err = %v, want ErrAlreadyOnboarded", err)
	}
}

func TestOnboardAgentRequiresLicence(t *testing.T) {
	f := newServiceFixture()
	id := ids.New()
	f.agents.agents[id] = &Agent{ID: id, Email: "rory@example.com"}

	_, err := f.svc.OnboardAgent(context.Background(), id, OnboardAgentParams{
		Firstname: "Rory", Lastname: "Williams", Password: "long-enough", LicenceNumber: "  ",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSaveUserDocuments(t *testing.T) {
	f := newServiceFixture()
	user := &User{ID: ids.New(), Fullname: "Amy Pond"}

	docs, err := f.svc.SaveUserDocuments(context.Background(), user, []UserDocument{
		{Name: "passport.pdf"},
		{Name: "bank-statement.pdf"},
	})
	if err != nil {
		t.Fatalf("SaveUserDocuments: %v", err)
	}
	for _, d := range docs {
		if d.UserID != user.ID {
			t.Fatalf("document not bound to user: %+v", d)
		}
	}
	if len(f.notify.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notify.sent))
	}
	body := f.notify.sent[0].body
	if !strings.Contains(body, "passport.pdf") || !strings.Contains(body, "bank-statement.pdf") {
		t.Fatalf("body = %q", body)
	}

	if _, err := f.svc.SaveUserDocuments(context.Background(), user, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty docs err = %v, want ErrInvalidInput", err)
	}
}

func TestSavePropertyPreference(t *testing.T) {
	f := newServiceFixture()
	id := ids.New()
	f.users.users[id] = &User{ID: id, Fullname: "Amy Pond"}
	user, _ := f.users.Find(context.Background(), id)

	updated, err := f.svc.SavePropertyPreference(context.Background(), user, PropertyPreference{
		PropertyType: "CONDO",
		MinPrice:     250_000,
		MaxPrice:     600_000,
	})
	if err != nil {
		t.Fatalf("SavePropertyPreference: %v", err)
	}
	if updated.PropertyPreference == nil || updated.PropertyPreference.PropertyType != "CONDO" {
		t.Fatalf("preference = %+v", updated.PropertyPreference)
	}
	if got := f.users.users[id].PropertyPreference; got == nil || got.MaxPrice != 600_000 {
		t.Fatalf("preference not persisted: %+v", got)
	}
	if len(f.notify.sent) != 1 || f.notify.sent[0].title != "Property preference saved" {
		t.Fatalf("notifications = %+v", f.notify.sent)
	}
}
