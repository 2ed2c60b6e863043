package subscription

import (
	"context"
	"fmt"
	"time"

	"snaphomz.org/internal/ids"
)

// Notifier fans a notification out to its channels.
type Notifier interface {
	Dispatch(ctx context.Context, title, body, recipientID, recipientKind string) error
}

// Service owns plan lookup and enrollment.
type Service struct {
	store  Store
	notify Notifier
	now    func() time.Time
	logf   func(format string, args ...any)
}

// NewService wires the subscription service. notify and logf may be nil.
func NewService(store Store, notify Notifier, logf func(string, ...any)) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Service{store: store, notify: notify, now: time.Now, logf: logf}
}

// Plans returns the seeded plan catalog.
func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	return s.store.Plans(ctx)
}

// Subscribe enrolls a principal in a plan and notifies them.
func (s *Service) Subscribe(ctx context.Context, principalID, principalKind, planID string) (*Subscription, error) {
	if !ids.Valid(principalID) {
		return nil, fmt.Errorf("%w: invalid principal id", ErrInvalidInput)
	}
	if principalKind != "user" && principalKind != "agent" {
		return nil, fmt.Errorf("%w: unknown principal kind %q", ErrInvalidInput, principalKind)
	}
	plan, err := s.store.FindPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		PrincipalID:   principalID,
		PrincipalKind: principalKind,
		PlanID:        plan.ID,
		Status:        StatusActive,
		PeriodEnd:     s.now().UTC().AddDate(0, 0, plan.IntervalDays),
	}
	if err := s.store.Insert(ctx, sub); err != nil {
		return nil, err
	}
	if s.notify != nil {
		body := fmt.Sprintf("You are now subscribed to the %s plan", plan.Name)
		if err := s.notify.Dispatch(ctx, "Subscription Activated", body, principalID, principalKind); err != nil {
			s.logf("subscription: notification: %v", err)
		}
	}
	return sub, nil
}

// Current returns the principal's active subscription.
func (s *Service) Current(ctx context.Context, principalID string) (*Subscription, error) {
	if !ids.Valid(principalID) {
		return nil, fmt.Errorf("%w: invalid principal id", ErrInvalidInput)
	}
	return s.store.FindByPrincipal(ctx, principalID)
}

// Cancel ends an active subscription.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return fmt.Errorf("%w: invalid subscription id", ErrInvalidInput)
	}
	return s.store.Cancel(ctx, id)
}
