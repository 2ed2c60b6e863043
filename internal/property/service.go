package property

import (
	"context"
	"fmt"
	"strings"

	"snaphomz.org/internal/ids"
)

// Notifier fans a notification out to its channels.
type Notifier interface {
	Dispatch(ctx context.Context, title, body, recipientID, recipientKind string) error
}

// Service owns listing workflows.
type Service struct {
	store  Store
	notify Notifier
	logf   func(format string, args ...any)
}

// NewService wires the property service. notify and logf may be nil.
func NewService(store Store, notify Notifier, logf func(string, ...any)) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Service{store: store, notify: notify, logf: logf}
}

// CreateParams is the input to Create.
type CreateParams struct {
	AgentID      string `json:"agentId"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	PriceCents   int64  `json:"priceCents"`
	Bedrooms     int    `json:"bedrooms"`
	Bathrooms    int    `json:"bathrooms"`
	PropertyType string `json:"propertyType"`
	Description  string `json:"description"`
	Status       Status `json:"status"`
}

func (p CreateParams) validate() error {
	if !ids.Valid(p.AgentID) {
		return fmt.Errorf("%w: invalid agent id", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, p.Status)
	}
	return nil
}

// Create stores a new agent-owned listing and notifies the agent.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Property, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	status := params.Status
	if status == "" {
		status = StatusDraft
	}
	prop := &Property{
		AgentID:      params.AgentID,
		Address:      strings.TrimSpace(params.Address),
		City:         params.City,
		State:        params.State,
		ZipCode:      params.ZipCode,
		PriceCents:   params.PriceCents,
		Bedrooms:     params.Bedrooms,
		Bathrooms:    params.Bathrooms,
		PropertyType: params.PropertyType,
		Description:  params.Description,
		Status:       status,
	}
	if err := s.store.Insert(ctx, prop); err != nil {
		return nil, err
	}
	if s.notify != nil {
		body := fmt.Sprintf("Your listing at %s has been created", prop.Address)
		if err := s.notify.Dispatch(ctx, "New Property Listed", body, prop.AgentID, "agent"); err != nil {
			s.logf("property: listing notification: %v", err)
		}
	}
	return prop, nil
}

// Get returns a single listing.
func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	if !ids.Valid(id) {
		return nil, fmt.Errorf("%w: invalid property id", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// ListByAgent returns the agent's listings, newest first.
func (s *Service) ListByAgent(ctx context.Context, agentID string, page, limit int) ([]*Property, int, error) {
	if !ids.Valid(agentID) {
		return nil, 0, fmt.Errorf("%w: invalid agent id", ErrInvalidInput)
	}
	return s.store.ListByAgent(ctx, agentID, page, limit)
}

// SaveForUser marks a listing as a user favorite. Saving twice is a no-op.
func (s *Service) SaveForUser(ctx context.Context, userID, propertyID string) error {
	if !ids.Valid(userID) || !ids.Valid(propertyID) {
		return fmt.Errorf("%w: invalid id", ErrInvalidInput)
	}
	return s.store.Save(ctx, userID, propertyID)
}

// UnsaveForUser removes a favorite link. Removing a missing link is a no-op.
func (s *Service) UnsaveForUser(ctx context.Context, userID, propertyID string) error {
	if !ids.Valid(userID) || !ids.Valid(propertyID) {
		return fmt.Errorf("%w: invalid id", ErrInvalidInput)
	}
	return s.store.Unsave(ctx, userID, propertyID)
}

// ListSaved returns the user's favorites, most recently saved first.
func (s *Service) ListSaved(ctx context.Context, userID string, page, limit int) ([]*Property, int, error) {
	if !ids.Valid(userID) {
		return nil, 0, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return s.store.ListSaved(ctx, userID, page, limit)
}
