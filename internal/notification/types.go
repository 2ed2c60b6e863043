package notification

import "time"

// RecipientKind tags which principal collection a notification targets.
type RecipientKind string

const (
	RecipientUser  RecipientKind = "user"
	RecipientAgent RecipientKind = "agent"
)

// Valid reports whether k is one of the two known kinds.
func (k RecipientKind) Valid() bool {
	return k == RecipientUser || k == RecipientAgent
}

// Notification is a persisted in-app notification.
type Notification struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Body          string        `json:"body"`
	Recipient     string        `json:"user"`
	RecipientKind RecipientKind `json:"userType"`
	OtherID       string        `json:"other_id,omitempty"`
	Category      string        `json:"category,omitempty"`
	Read          bool          `json:"read"`
	CreatedAt     time.Time     `json:"created_at"`
}

// DeviceToken maps a push-provider device token to exactly one recipient:
// UserID xor AgentID is set, never both.
type DeviceToken struct {
	ID        string
	Token     string
	UserID    string
	AgentID   string
	CreatedAt time.Time
}
