package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"snaphomz.org/internal/ids"
)

var (
	_ UserStore  = (*PGUserStore)(nil)
	_ AgentStore = (*PGAgentStore)(nil)
)

const pgUniqueViolation = "23505"

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore { return &PGUserStore{db: db} }

const userColumns = `id, email, firstname, lastname, fullname, password_hash,
	account_type, mobile, completed_onboarding, property_preference, created_at, updated_at`

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	pref, err := marshalPreference(u.PropertyPreference)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into users(id, email, firstname, lastname, fullname, password_hash,
			account_type, mobile, completed_onboarding, property_preference)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Email, u.Firstname, u.Lastname, u.Fullname, u.PasswordHash,
		string(u.AccountType), u.Mobile, u.CompletedOnboarding, pref,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("identity: create user: %w", err)
	}
	return nil
}

func (s *PGUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *PGUserStore) Update(ctx context.Context, u *User) error {
	pref, err := marshalPreference(u.PropertyPreference)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update users set email=$2, firstname=$3, lastname=$4, fullname=$5,
			password_hash=$6, account_type=$7, mobile=$8, completed_onboarding=$9,
			property_preference=$10, updated_at=now()
		where id=$1`,
		u.ID, u.Email, u.Firstname, u.Lastname, u.Fullname, u.PasswordHash,
		string(u.AccountType), u.Mobile, u.CompletedOnboarding, pref,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("identity: update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGUserStore) SaveDocuments(ctx context.Context, docs []UserDocument) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into user_documents(id, user_id, name, thumbnail, url)
			values($1,$2,$3,$4,$5)`,
			docs[i].ID, docs[i].UserID, docs[i].Name, docs[i].Thumbnail, docs[i].URL,
		); err != nil {
			return fmt.Errorf("identity: save document: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PGUserStore) Documents(ctx context.Context, userID string) ([]UserDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, name, thumbnail, url, created_at
		from user_documents where user_id=$1 order by created_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []UserDocument
	for rows.Next() {
		var d UserDocument
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Thumbnail, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// PGAgentStore implements AgentStore using PostgreSQL.
type PGAgentStore struct {
	db *sql.DB
}

func NewPGAgentStore(db *sql.DB) *PGAgentStore { return &PGAgentStore{db: db} }

const agentColumns = `id, email, firstname, lastname, fullname, password_hash,
	licence_number, region, mobile, avatar, email_verified, completed_onboarding,
	created_at, updated_at`

func (s *PGAgentStore) Create(ctx context.Context, a *Agent) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into agents(id, email, firstname, lastname, fullname, password_hash,
			licence_number, region, mobile, avatar, email_verified, completed_onboarding)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.Email, a.Firstname, a.Lastname, a.Fullname, a.PasswordHash,
		a.LicenceNumber, a.Region, a.Mobile, a.Avatar, a.EmailVerified, a.CompletedOnboarding,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("identity: create agent: %w", err)
	}
	return nil
}

func (s *PGAgentStore) Find(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+agentColumns+` from agents where id=$1`, id)
	return scanAgent(row)
}

func (s *PGAgentStore) FindByEmail(ctx context.Context, email string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+agentColumns+` from agents where email=$1`, email)
	return scanAgent(row)
}

func (s *PGAgentStore) Update(ctx context.Context, a *Agent) error {
	res, err := s.db.ExecContext(ctx, `
		update agents set email=$2, firstname=$3, lastname=$4, fullname=$5,
			password_hash=$6, licence_number=$7, region=$8, mobile=$9, avatar=$10,
			email_verified=$11, completed_onboarding=$12, updated_at=now()
		where id=$1`,
		a.ID, a.Email, a.Firstname, a.Lastname, a.Fullname, a.PasswordHash,
		a.LicenceNumber, a.Region, a.Mobile, a.Avatar, a.EmailVerified, a.CompletedOnboarding,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("identity: update agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGAgentStore) Search(ctx context.Context, query string, page, limit int) ([]*Agent, int, error) {
	offset, limit := pageOffset(page, limit)
	pattern := "%" + query + "%"

	var (
		agents []*Agent
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			select `+agentColumns+` from agents
			where fullname ilike $1 or licence_number ilike $1 or region ilike $1
			order by created_at desc
			offset $2 limit $3`, pattern, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		agents, err = collectAgents(rows)
		return err
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, `
			select count(*) from agents
			where fullname ilike $1 or licence_number ilike $1 or region ilike $1`,
			pattern).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("identity: search agents: %w", err)
	}
	return agents, total, nil
}

func (s *PGAgentStore) ConnectedToUser(ctx context.Context, userID string, page, limit int) ([]*Agent, int, error) {
	offset, limit := pageOffset(page, limit)

	var (
		agents []*Agent
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			select `+agentColumns+` from agents a
			join agent_connections c on c.agent_id = a.id
			where c.user_id = $1
			order by c.created_at desc
			offset $2 limit $3`, userID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		agents, err = collectAgents(rows)
		return err
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx,
			`select count(*) from agent_connections where user_id=$1`, userID).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("identity: connected agents: %w", err)
	}
	return agents, total, nil
}

func (s *PGAgentStore) Connect(ctx context.Context, agentID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into agent_connections(agent_id, user_id)
		values($1,$2)
		on conflict (agent_id, user_id) do nothing`, agentID, userID)
	if err != nil {
		return fmt.Errorf("identity: connect agent: %w", err)
	}
	return nil
}

// Helpers ------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u    User
		acct string
		pref []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.Firstname, &u.Lastname, &u.Fullname,
		&u.PasswordHash, &acct, &u.Mobile, &u.CompletedOnboarding, &pref,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: scan user: %w", err)
	}
	u.AccountType = AccountType(acct)
	if len(pref) > 0 {
		var p PropertyPreference
		if err := json.Unmarshal(pref, &p); err != nil {
			return nil, fmt.Errorf("identity: decode preference: %w", err)
		}
		u.PropertyPreference = &p
	}
	return &u, nil
}

func scanAgent(row rowScanner) (*Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Email, &a.Firstname, &a.Lastname, &a.Fullname,
		&a.PasswordHash, &a.LicenceNumber, &a.Region, &a.Mobile, &a.Avatar,
		&a.EmailVerified, &a.CompletedOnboarding, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: scan agent: %w", err)
	}
	return &a, nil
}

func collectAgents(rows *sql.Rows) ([]*Agent, error) {
	var agents []*Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func marshalPreference(p *PropertyPreference) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("identity: encode preference: %w", err)
	}
	return data, nil
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
