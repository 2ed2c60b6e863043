// Package subscription tracks plan enrollment for users and agents.
package subscription

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("subscription: not found")
	ErrInvalidInput = errors.New("subscription: invalid input")
)

// Plan is a catalog entry. The catalog is seeded by migration.
type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"priceCents"`
	IntervalDays int    `json:"intervalDays"`
}

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusCanceled Status = "CANCELED"
	StatusExpired  Status = "EXPIRED"
)

// Subscription links a principal to a plan.
type Subscription struct {
	ID            string    `json:"id"`
	PrincipalID   string    `json:"principalId"`
	PrincipalKind string    `json:"principalKind"`
	PlanID        string    `json:"planId"`
	Status        Status    `json:"status"`
	PeriodEnd     time.Time `json:"periodEnd"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists plans and subscriptions.
type Store interface {
	Plans(ctx context.Context) ([]Plan, error)
	FindPlan(ctx context.Context, id string) (*Plan, error)
	Insert(ctx context.Context, sub *Subscription) error
	FindByPrincipal(ctx context.Context, principalID string) (*Subscription, error)
	Cancel(ctx context.Context, id string) error
}
