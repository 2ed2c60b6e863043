// Package property manages listings and user-saved favorites.
package property

import "time"

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusActive  Status = "ACTIVE"
	StatusPending Status = "PENDING"
	StatusSold    Status = "SOLD"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPending, StatusSold:
		return true
	}
	return false
}

// Property is an agent-owned listing.
type Property struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agentId"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zipCode"`
	PriceCents   int64     `json:"priceCents"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	PropertyType string    `json:"propertyType"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
