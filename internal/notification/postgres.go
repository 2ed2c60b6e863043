package notification

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

const notificationColumns = `id, title, body, recipient_id, recipient_kind, other_id, category, read, created_at`

func (s *PGStore) Insert(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into notifications(id, title, body, recipient_id, recipient_kind, other_id, category)
		values($1,$2,$3,$4,$5,$6,$7)
		returning created_at`,
		n.ID, n.Title, n.Body, n.Recipient, string(n.RecipientKind), n.OtherID, n.Category,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("notification: insert: %w", err)
	}
	return nil
}

func (s *PGStore) InsertMany(ctx context.Context, items []Notification) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into notifications(id, title, body, recipient_id, recipient_kind, other_id, category)
			values($1,$2,$3,$4,$5,$6,$7)`,
			items[i].ID, items[i].Title, items[i].Body, items[i].Recipient,
			string(items[i].RecipientKind), items[i].OtherID, items[i].Category,
		); err != nil {
			return fmt.Errorf("notification: bulk insert: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PGStore) Find(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+notificationColumns+` from notifications where id=$1`, id)
	return scanNotification(row)
}

func (s *PGStore) MarkRead(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		update notifications set read = true where id=$1
		returning `+notificationColumns, id)
	return scanNotification(row)
}

func (s *PGStore) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := s.db.ExecContext(ctx,
		`update notifications set read = true where recipient_id=$1 and read = false`,
		recipientID)
	if err != nil {
		return fmt.Errorf("notification: mark all read: %w", err)
	}
	return nil
}

func (s *PGStore) ListByRecipient(ctx context.Context, recipientID string, page, limit int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	var (
		items []Notification
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			select `+notificationColumns+` from notifications
			where recipient_id=$1
			order by created_at desc
			offset $2 limit $3`, recipientID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			n, err := scanNotification(rows)
			if err != nil {
				return err
			}
			items = append(items, *n)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx,
			`select count(*) from notifications where recipient_id=$1`, recipientID).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("notification: list: %w", err)
	}
	return items, total, nil
}

func (s *PGStore) FindDeviceToken(ctx context.Context, token, recipientID string, kind RecipientKind) (*DeviceToken, error) {
	column := "user_id"
	if kind == RecipientAgent {
		column = "agent_id"
	}
	row := s.db.QueryRowContext(ctx, `
		select id, token, coalesce(user_id,''), coalesce(agent_id,''), created_at
		from notification_tokens
		where token=$1 and `+column+`=$2`, token, recipientID)

	var t DeviceToken
	err := row.Scan(&t.ID, &t.Token, &t.UserID, &t.AgentID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notification: find device token: %w", err)
	}
	return &t, nil
}

func (s *PGStore) InsertDeviceToken(ctx context.Context, t *DeviceToken) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into notification_tokens(id, token, user_id, agent_id)
		values($1,$2,nullif($3,''),nullif($4,''))
		returning created_at`,
		t.ID, t.Token, t.UserID, t.AgentID,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("notification: insert device token: %w", err)
	}
	return nil
}

func scanNotification(row interface{ Scan(...any) error }) (*Notification, error) {
	var (
		n    Notification
		kind string
	)
	err := row.Scan(&n.ID, &n.Title, &n.Body, &n.Recipient, &kind, &n.OtherID,
		&n.Category, &n.Read, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notification: scan: %w", err)
	}
	n.RecipientKind = RecipientKind(kind)
	return &n, nil
}
