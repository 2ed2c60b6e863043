package property

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("property: not found")
	ErrInvalidInput = errors.New("property: invalid input")
)

// Store persists listings and saved-property links.
type Store interface {
	Insert(ctx context.Context, p *Property) error
	Find(ctx context.Context, id string) (*Property, error)
	ListByAgent(ctx context.Context, agentID string, page, limit int) ([]*Property, int, error)

	// Save and Unsave toggle a user's favorite link; both are idempotent.
	Save(ctx context.Context, userID, propertyID string) error
	Unsave(ctx context.Context, userID, propertyID string) error
	ListSaved(ctx context.Context, userID string, page, limit int) ([]*Property, int, error)
}
