package notification

import (
	"context"
	"errors"
	"fmt"

	"snaphomz.org/internal/audit"
	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/ids"
	"snaphomz.org/internal/obs"
	"snaphomz.org/internal/realtime"
)

// Pusher is the outbound push-provider boundary.
type Pusher interface {
	SendToUsers(ctx context.Context, message string, externalUserIDs []string) error
	SetExternalUserID(ctx context.Context, playerID, externalID string) error
}

// Broadcaster is the realtime notification channel.
type Broadcaster interface {
	SendRealTimeNotification(msg realtime.Message)
	BroadcastNotification(recipientIDs []string, msgs []realtime.Message)
}

// Service is the notification dispatcher: persist first, then fan out to the
// push provider and the realtime channel on a best-effort basis.
type Service struct {
	store     Store
	users     identity.UserStore
	agents    identity.AgentStore
	pusher    Pusher
	broadcast Broadcaster
	logf      func(format string, args ...any)
}

// NewService wires the dispatcher. pusher and broadcast may be nil; the
// corresponding fan-out is then skipped.
func NewService(store Store, users identity.UserStore, agents identity.AgentStore, pusher Pusher, broadcast Broadcaster, logf func(string, ...any)) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Service{store: store, users: users, agents: agents, pusher: pusher, broadcast: broadcast, logf: logf}
}

// CreateParams describes a notification intent.
type CreateParams struct {
	Title         string
	Body          string
	Recipient     string
	RecipientKind RecipientKind
	OtherID       string
	Category      string
}

func (p CreateParams) validate() error {
	if p.Title == "" || p.Body == "" {
		return fmt.Errorf("%w: title and body are required", ErrInvalidRecipient)
	}
	if !ids.Valid(p.Recipient) {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, p.Recipient)
	}
	if p.RecipientKind != "" && !p.RecipientKind.Valid() {
		return fmt.Errorf("%w: unknown recipient kind %q", ErrInvalidRecipient, p.RecipientKind)
	}
	return nil
}

// Create validates the intent, persists it, and attempts exactly one push
// dispatch plus one realtime emit. Fan-out failures are logged and counted,
// never returned: the notification is considered created once the insert
// succeeds.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Notification, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	kind := p.RecipientKind
	if kind == "" {
		kind = RecipientUser
	}

	n := &Notification{
		Title:         p.Title,
		Body:          p.Body,
		Recipient:     p.Recipient,
		RecipientKind: kind,
		OtherID:       p.OtherID,
		Category:      p.Category,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	obs.NotificationCreated(string(kind))
	_ = audit.LogEvent(ctx, "notification.create", map[string]any{
		"notification_id": n.ID,
		"recipient":       n.Recipient,
		"recipient_kind":  string(kind),
	})

	if s.pusher != nil {
		if err := s.pusher.SendToUsers(ctx, n.Body, []string{n.Recipient}); err != nil {
			obs.PushDispatchFailed()
			s.logf("notification: push dispatch for %s: %v", n.ID, err)
		}
	}
	if s.broadcast != nil {
		s.broadcast.SendRealTimeNotification(realtime.Message{
			Title:    n.Title,
			Body:     n.Body,
			User:     n.Recipient,
			UserType: string(kind),
		})
	}
	return n, nil
}

// Dispatch adapts Create to the narrow interface collaborating services use.
func (s *Service) Dispatch(ctx context.Context, title, body, recipientID, recipientKind string) error {
	_, err := s.Create(ctx, CreateParams{
		Title:         title,
		Body:          body,
		Recipient:     recipientID,
		RecipientKind: RecipientKind(recipientKind),
	})
	return err
}

// CreateBatch bulk-inserts notification intents without per-item push
// dispatch. It is the deliberately cheaper path and returns no payload.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) error {
	if len(params) == 0 {
		return nil
	}
	items := make([]Notification, 0, len(params))
	for _, p := range params {
		if err := p.validate(); err != nil {
			return err
		}
		kind := p.RecipientKind
		if kind == "" {
			kind = RecipientUser
		}
		items = append(items, Notification{
			Title:         p.Title,
			Body:          p.Body,
			Recipient:     p.Recipient,
			RecipientKind: kind,
			OtherID:       p.OtherID,
			Category:      p.Category,
		})
	}
	if err := s.store.InsertMany(ctx, items); err != nil {
		return err
	}
	for _, n := range items {
		obs.NotificationCreated(string(n.RecipientKind))
	}
	return nil
}

// MarkOneRead flips a notification to read. Idempotent: a second call on the
// same id succeeds and returns read:true again. Missing ids are ErrNotFound.
func (s *Service) MarkOneRead(ctx context.Context, id string) (*Notification, error) {
	return s.store.MarkRead(ctx, id)
}

// MarkAllRead flips every unread notification for the recipient. A recipient
// with nothing unread is a silent no-op.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) error {
	return s.store.MarkAllRead(ctx, recipientID)
}

// ListByRecipient returns a newest-first page plus the total count.
func (s *Service) ListByRecipient(ctx context.Context, recipientID string, page, limit int) ([]Notification, int, error) {
	return s.store.ListByRecipient(ctx, recipientID, page, limit)
}

// RegisterUserToken records a push device token for a user, idempotently:
// an existing (token, user) pair is returned as-is.
func (s *Service) RegisterUserToken(ctx context.Context, token, userID string) (*DeviceToken, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidRecipient)
	}
	if _, err := s.users.Find(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	existing, err := s.store.FindDeviceToken(ctx, token, userID, RecipientUser)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	t := &DeviceToken{Token: token, UserID: userID}
	if err := s.store.InsertDeviceToken(ctx, t); err != nil {
		return nil, err
	}
	s.linkExternalID(ctx, token, userID)
	return t, nil
}

// RegisterAgentToken is RegisterUserToken for agent recipients.
func (s *Service) RegisterAgentToken(ctx context.Context, token, agentID string) (*DeviceToken, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidRecipient)
	}
	if _, err := s.agents.Find(ctx, agentID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	existing, err := s.store.FindDeviceToken(ctx, token, agentID, RecipientAgent)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	t := &DeviceToken{Token: token, AgentID: agentID}
	if err := s.store.InsertDeviceToken(ctx, t); err != nil {
		return nil, err
	}
	s.linkExternalID(ctx, token, agentID)
	return t, nil
}

// Broadcast delivers already-persisted notifications to their rooms.
func (s *Service) Broadcast(recipientIDs []string, items []Notification) {
	if s.broadcast == nil {
		return
	}
	msgs := make([]realtime.Message, 0, len(items))
	for _, n := range items {
		msgs = append(msgs, realtime.Message{
			Title:    n.Title,
			Body:     n.Body,
			User:     n.Recipient,
			UserType: string(n.RecipientKind),
		})
	}
	s.broadcast.BroadcastNotification(recipientIDs, msgs)
}

func (s *Service) linkExternalID(ctx context.Context, playerID, externalID string) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.SetExternalUserID(ctx, playerID, externalID); err != nil {
		obs.PushDispatchFailed()
		s.logf("notification: link external id for %s: %v", externalID, err)
	}
}
