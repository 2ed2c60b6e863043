package notification

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("notification: not found")
	ErrInvalidRecipient = errors.New("notification: invalid recipient id")
)

// Store describes notification persistence.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	// InsertMany performs an unordered bulk insert; items get ids assigned
	// in place.
	InsertMany(ctx context.Context, items []Notification) error
	Find(ctx context.Context, id string) (*Notification, error)
	// MarkRead flips read to true and returns the updated row; missing id
	// is ErrNotFound. Marking an already-read row is a no-op that still
	// returns the row.
	MarkRead(ctx context.Context, id string) (*Notification, error)
	// MarkAllRead flips every unread notification for the recipient; a
	// recipient with nothing unread is a silent no-op.
	MarkAllRead(ctx context.Context, recipientID string) error
	// ListByRecipient returns a newest-first page and the total count.
	ListByRecipient(ctx context.Context, recipientID string, page, limit int) ([]Notification, int, error)

	FindDeviceToken(ctx context.Context, token, recipientID string, kind RecipientKind) (*DeviceToken, error)
	InsertDeviceToken(ctx context.Context, t *DeviceToken) error
}
