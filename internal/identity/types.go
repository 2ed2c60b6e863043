package identity

import "time"

// AccountType is the role a user acts under. Agents carry no account type;
// their kind is implied by the record itself.
type AccountType string

const (
	AccountTypeBuyer  AccountType = "BUYER"
	AccountTypeSeller AccountType = "SELLER"
	AccountTypeAgent  AccountType = "AGENT"
)

// Kind discriminates the two principal variants.
type Kind string

const (
	KindUser  Kind = "user"
	KindAgent Kind = "agent"
)

// PropertyPreference captures what a user is shopping for.
type PropertyPreference struct {
	PropertyType string   `json:"property_type"`
	MinPrice     int64    `json:"min_price"`
	MaxPrice     int64    `json:"max_price"`
	Locations    []string `json:"locations,omitempty"`
}

// User is a buyer or seller account.
type User struct {
	ID                  string
	Email               string
	Firstname           string
	Lastname            string
	Fullname            string
	PasswordHash        string
	AccountType         AccountType
	Mobile              string
	CompletedOnboarding bool
	PropertyPreference  *PropertyPreference
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Agent is a licensed real-estate agent account.
type Agent struct {
	ID                  string
	Email               string
	Firstname           string
	Lastname            string
	Fullname            string
	PasswordHash        string
	LicenceNumber       string
	Region              string
	Mobile              string
	Avatar              string
	EmailVerified       bool
	CompletedOnboarding bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserDocument is a file a user attached to their account.
type UserDocument struct {
	ID        string
	UserID    string
	Name      string
	Thumbnail string
	URL       string
	CreatedAt time.Time
}

// Principal is the resolved identity behind a request or connection:
// exactly one of User or Agent is set, tagged by Kind.
type Principal struct {
	Kind  Kind
	User  *User
	Agent *Agent
}

// UserPrincipal wraps a user as a Principal.
func UserPrincipal(u *User) Principal { return Principal{Kind: KindUser, User: u} }

// AgentPrincipal wraps an agent as a Principal.
func AgentPrincipal(a *Agent) Principal { return Principal{Kind: KindAgent, Agent: a} }

// ID returns the identifier of whichever variant is set.
func (p Principal) ID() string {
	switch p.Kind {
	case KindUser:
		if p.User != nil {
			return p.User.ID
		}
	case KindAgent:
		if p.Agent != nil {
			return p.Agent.ID
		}
	}
	return ""
}

// Email returns the email of whichever variant is set.
func (p Principal) Email() string {
	switch p.Kind {
	case KindUser:
		if p.User != nil {
			return p.User.Email
		}
	case KindAgent:
		if p.Agent != nil {
			return p.Agent.Email
		}
	}
	return ""
}

// Fullname returns the display name of whichever variant is set.
func (p Principal) Fullname() string {
	switch p.Kind {
	case KindUser:
		if p.User != nil {
			return p.User.Fullname
		}
	case KindAgent:
		if p.Agent != nil {
			return p.Agent.Fullname
		}
	}
	return ""
}
