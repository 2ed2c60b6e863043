package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"snaphomz.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Plans(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, price_cents, interval_days from plans order by price_cents`)
	if err != nil {
		return nil, fmt.Errorf("subscription: list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.IntervalDays); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PGStore) FindPlan(ctx context.Context, id string) (*Plan, error) {
	var p Plan
	err := s.db.QueryRowContext(ctx,
		`select id, name, price_cents, interval_days from plans where id=$1`, id).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.IntervalDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: find plan: %w", err)
	}
	return &p, nil
}

func (s *PGStore) Insert(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		sub.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into subscriptions(id, principal_id, principal_kind, plan_id, status, period_end)
		values($1,$2,$3,$4,$5,$6)
		returning created_at`,
		sub.ID, sub.PrincipalID, sub.PrincipalKind, sub.PlanID, string(sub.Status), sub.PeriodEnd,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("subscription: insert: %w", err)
	}
	return nil
}

func (s *PGStore) FindByPrincipal(ctx context.Context, principalID string) (*Subscription, error) {
	var (
		sub    Subscription
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, principal_id, principal_kind, plan_id, status, period_end, created_at
		from subscriptions
		where principal_id=$1 and status=$2
		order by created_at desc limit 1`,
		principalID, string(StatusActive),
	).Scan(&sub.ID, &sub.PrincipalID, &sub.PrincipalKind, &sub.PlanID, &status,
		&sub.PeriodEnd, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: find by principal: %w", err)
	}
	sub.Status = Status(status)
	return &sub, nil
}

func (s *PGStore) Cancel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update subscriptions set status=$2 where id=$1 and status=$3`,
		id, string(StatusCanceled), string(StatusActive))
	if err != nil {
		return fmt.Errorf("subscription: cancel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
