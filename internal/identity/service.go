package identity

import (
	"context"
	"fmt"
	"strings"
)

// TokenIssuer signs identity tokens for onboarded principals.
type TokenIssuer interface {
	UserToken(u *User) (string, error)
	AgentToken(a *Agent) (string, error)
}

// Notifier dispatches an in-app notification; implementations are expected
// to be best-effort beyond persistence.
type Notifier interface {
	Dispatch(ctx context.Context, title, body, recipientID, recipientKind string) error
}

// Mailer sends templated email. Failures are logged by the caller, never fatal.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string, agent bool) error
}

// Hasher hashes a plaintext password.
type Hasher func(password string) (string, error)

// Service orchestrates onboarding and profile operations over the two
// principal stores.
type Service struct {
	users  UserStore
	agents AgentStore
	tokens TokenIssuer
	notify Notifier
	mail   Mailer
	hash   Hasher
	logf   func(format string, args ...any)
}

// NewService wires the identity service. notify, mail, and logf may be nil.
func NewService(users UserStore, agents AgentStore, tokens TokenIssuer, notify Notifier, mail Mailer, hash Hasher, logf func(string, ...any)) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Service{users: users, agents: agents, tokens: tokens, notify: notify, mail: mail, hash: hash, logf: logf}
}

// OnboardUserParams completes a pre-registered user account.
type OnboardUserParams struct {
	Firstname   string
	Lastname    string
	Password    string
	Mobile      string
	AccountType AccountType
}

// OnboardResult bundles the updated principal projection and its token.
type OnboardResult struct {
	User  *User
	Agent *Agent
	Token string
}

// OnboardUser finishes onboarding for an existing user record, issues a
// token, and fires a welcome notification and email.
func (s *Service) OnboardUser(ctx context.Context, userID string, p OnboardUserParams) (OnboardResult, error) {
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return OnboardResult{}, err
	}

	if err := validateNames(p.Firstname, p.Lastname); err != nil {
		return OnboardResult{}, err
	}
	if len(p.Password) < 8 {
		return OnboardResult{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	switch p.AccountType {
	case AccountTypeBuyer, AccountTypeSeller:
	default:
		return OnboardResult{}, fmt.Errorf("%w: invalid account type %q", ErrInvalidInput, p.AccountType)
	}

	hash, err := s.hash(p.Password)
	if err != nil {
		return OnboardResult{}, fmt.Errorf("identity: hash password: %w", err)
	}

	user.Firstname = strings.TrimSpace(p.Firstname)
	user.Lastname = strings.TrimSpace(p.Lastname)
	user.Fullname = user.Firstname + " " + user.Lastname
	user.PasswordHash = hash
	user.AccountType = p.AccountType
	user.Mobile = normalizeMobile(p.Mobile)
	user.CompletedOnboarding = true

	if err := s.users.Update(ctx, user); err != nil {
		return OnboardResult{}, err
	}

	s.welcome(ctx, user.ID, user.Fullname, user.Email, string(KindUser))

	token, err := s.tokens.UserToken(user)
	if err != nil {
		return OnboardResult{}, fmt.Errorf("identity: issue token: %w", err)
	}
	return OnboardResult{User: user, Token: token}, nil
}

// OnboardAgentParams completes a pre-registered agent account.
type OnboardAgentParams struct {
	Firstname     string
	Lastname      string
	Password      string
	Mobile        string
	LicenceNumber string
	Region        string
	Avatar        string
}

// OnboardAgent finishes onboarding for an existing agent record. Onboarding
// an already-onboarded agent fails.
func (s *Service) OnboardAgent(ctx context.Context, agentID string, p OnboardAgentParams) (OnboardResult, error) {
	agent, err := s.agents.Find(ctx, agentID)
	if err != nil {
		return OnboardResult{}, err
	}
	if agent.CompletedOnboarding {
		return OnboardResult{}, ErrAlreadyOnboarded
	}

	if err := validateNames(p.Firstname, p.Lastname); err != nil {
		return OnboardResult{}, err
	}
	if len(p.Password) < 8 {
		return OnboardResult{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if strings.TrimSpace(p.LicenceNumber) == "" {
		return OnboardResult{}, fmt.Errorf("%w: licence number is required", ErrInvalidInput)
	}

	hash, err := s.hash(p.Password)
	if err != nil {
		return OnboardResult{}, fmt.Errorf("identity: hash password: %w", err)
	}

	agent.Firstname = strings.TrimSpace(p.Firstname)
	agent.Lastname = strings.TrimSpace(p.Lastname)
	agent.Fullname = agent.Firstname + " " + agent.Lastname
	agent.PasswordHash = hash
	agent.Mobile = normalizeMobile(p.Mobile)
	agent.LicenceNumber = strings.TrimSpace(p.LicenceNumber)
	agent.Region = strings.TrimSpace(p.Region)
	agent.Avatar = strings.TrimSpace(p.Avatar)
	agent.CompletedOnboarding = true

	if err := s.agents.Update(ctx, agent); err != nil {
		return OnboardResult{}, err
	}

	s.welcome(ctx, agent.ID, agent.Fullname, agent.Email, string(KindAgent))

	token, err := s.tokens.AgentToken(agent)
	if err != nil {
		return OnboardResult{}, fmt.Errorf("identity: issue token: %w", err)
	}
	return OnboardResult{Agent: agent, Token: token}, nil
}

// SaveUserDocuments stores documents for a user and notifies them.
func (s *Service) SaveUserDocuments(ctx context.Context, user *User, docs []UserDocument) ([]UserDocument, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents are required", ErrInvalidInput)
	}
	names := make([]string, 0, len(docs))
	for i := range docs {
		docs[i].UserID = user.ID
		names = append(names, docs[i].Name)
	}
	if err := s.users.SaveDocuments(ctx, docs); err != nil {
		return nil, err
	}
	if s.notify != nil {
		if err := s.notify.Dispatch(ctx, "User Document saved",
			fmt.Sprintf("%s, added new documents %s", user.Fullname, strings.Join(names, ", ")),
			user.ID, string(KindUser)); err != nil {
			s.logf("identity: document notification: %v", err)
		}
	}
	return docs, nil
}

// SavePropertyPreference updates the user's shopping preference and notifies them.
func (s *Service) SavePropertyPreference(ctx context.Context, user *User, pref PropertyPreference) (*User, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	user.PropertyPreference = &pref
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if s.notify != nil {
		if err := s.notify.Dispatch(ctx, "Property preference saved",
			fmt.Sprintf("%s, saved property preference %s", user.Fullname, pref.PropertyType),
			user.ID, string(KindUser)); err != nil {
			s.logf("identity: preference notification: %v", err)
		}
	}
	return user, nil
}

// SearchAgents matches agents by name, licence number, or region.
func (s *Service) SearchAgents(ctx context.Context, query string, page, limit int) ([]*Agent, int, error) {
	return s.agents.Search(ctx, strings.TrimSpace(query), page, limit)
}

// AgentsConnectedToUser lists agents connected to the given user.
func (s *Service) AgentsConnectedToUser(ctx context.Context, userID string, page, limit int) ([]*Agent, int, error) {
	return s.agents.ConnectedToUser(ctx, userID, page, limit)
}

func (s *Service) welcome(ctx context.Context, id, fullname, email, kind string) {
	if s.notify != nil {
		title := "New User Onboarded: Welcome"
		if kind == string(KindAgent) {
			title = "New Agent Onboarded: Welcome"
		}
		body := fmt.Sprintf("Welcome to Snaphomz %s, We will make your real estate dreams come through", fullname)
		if err := s.notify.Dispatch(ctx, title, body, id, kind); err != nil {
			s.logf("identity: welcome notification: %v", err)
		}
	}
	if s.mail != nil {
		if err := s.mail.SendWelcome(ctx, email, fullname, kind == string(KindAgent)); err != nil {
			s.logf("identity: welcome email: %v", err)
		}
	}
}

func validateNames(first, last string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "" {
		return fmt.Errorf("%w: firstname and lastname are required", ErrInvalidInput)
	}
	return nil
}

func normalizeMobile(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' || r == '+' && b.Len() == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
