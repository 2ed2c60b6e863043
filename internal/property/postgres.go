package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"snaphomz.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

const propertyColumns = `id, agent_id, address, city, state, zip_code, price_cents,
	bedrooms, bathrooms, property_type, description, status, created_at, updated_at`

func (s *PGStore) Insert(ctx context.Context, p *Property) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into properties(id, agent_id, address, city, state, zip_code, price_cents,
			bedrooms, bathrooms, property_type, description, status)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		returning created_at, updated_at`,
		p.ID, p.AgentID, p.Address, p.City, p.State, p.ZipCode, p.PriceCents,
		p.Bedrooms, p.Bathrooms, p.PropertyType, p.Description, string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("property: insert: %w", err)
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Property, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+propertyColumns+` from properties where id=$1`, id)
	return scanProperty(row)
}

func (s *PGStore) ListByAgent(ctx context.Context, agentID string, page, limit int) ([]*Property, int, error) {
	offset, limit := pageOffset(page, limit)

	var (
		props []*Property
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			select `+propertyColumns+` from properties
			where agent_id=$1
			order by created_at desc
			offset $2 limit $3`, agentID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		props, err = collectProperties(rows)
		return err
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx,
			`select count(*) from properties where agent_id=$1`, agentID).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("property: list by agent: %w", err)
	}
	return props, total, nil
}

func (s *PGStore) Save(ctx context.Context, userID, propertyID string) error {
	res, err := s.db.ExecContext(ctx, `
		insert into saved_properties(user_id, property_id)
		select $1, id from properties where id=$2
		on conflict (user_id, property_id) do nothing`, userID, propertyID)
	if err != nil {
		return fmt.Errorf("property: save: %w", err)
	}
	// Zero rows means either an existing link (fine) or a missing listing.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`select exists(select 1 from properties where id=$1)`, propertyID).Scan(&exists); err != nil {
			return fmt.Errorf("property: save: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *PGStore) Unsave(ctx context.Context, userID, propertyID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from saved_properties where user_id=$1 and property_id=$2`,
		userID, propertyID)
	if err != nil {
		return fmt.Errorf("property: unsave: %w", err)
	}
	return nil
}

func (s *PGStore) ListSaved(ctx context.Context, userID string, page, limit int) ([]*Property, int, error) {
	offset, limit := pageOffset(page, limit)

	var (
		props []*Property
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			select `+prefixedPropertyColumns+` from properties p
			join saved_properties sp on sp.property_id = p.id
			where sp.user_id = $1
			order by sp.created_at desc
			offset $2 limit $3`, userID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		props, err = collectProperties(rows)
		return err
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx,
			`select count(*) from saved_properties where user_id=$1`, userID).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("property: list saved: %w", err)
	}
	return props, total, nil
}

const prefixedPropertyColumns = `p.id, p.agent_id, p.address, p.city, p.state, p.zip_code,
	p.price_cents, p.bedrooms, p.bathrooms, p.property_type, p.description, p.status,
	p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*Property, error) {
	var (
		p      Property
		status string
	)
	err := row.Scan(&p.ID, &p.AgentID, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.PriceCents, &p.Bedrooms, &p.Bathrooms, &p.PropertyType, &p.Description,
		&status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("property: scan: %w", err)
	}
	p.Status = Status(status)
	return &p, nil
}

func collectProperties(rows *sql.Rows) ([]*Property, error) {
	var props []*Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

func pageOffset(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return (page - 1) * limit, limit
}
