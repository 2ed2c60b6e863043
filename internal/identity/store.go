package identity

import "context"

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	SaveDocuments(ctx context.Context, docs []UserDocument) error
	Documents(ctx context.Context, userID string) ([]UserDocument, error)
}

// AgentStore manages agent accounts and their user connections.
type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	Find(ctx context.Context, id string) (*Agent, error)
	FindByEmail(ctx context.Context, email string) (*Agent, error)
	Update(ctx context.Context, a *Agent) error
	// Search matches name, licence number, or region, case-insensitively.
	Search(ctx context.Context, query string, page, limit int) ([]*Agent, int, error)
	// ConnectedToUser lists agents a user has invited or worked with.
	ConnectedToUser(ctx context.Context, userID string, page, limit int) ([]*Agent, int, error)
	Connect(ctx context.Context, agentID, userID string) error
}
