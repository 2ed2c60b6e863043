package property

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPGInsertFillsTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`insert into properties`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	store := NewPGStore(db)
	p := &Property{AgentID: "agent-1", Address: "1 Main St", Status: StatusActive}
	if err := store.Insert(context.Background(), p); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if p.ID == "" {
		t.Fatal("Insert did not assign an id")
	}
	if !p.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", p.CreatedAt, now)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select .+ from properties where id=`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPGStore(db)
	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGListByAgent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	// Page and count queries run concurrently.
	mock.MatchExpectationsInOrder(false)

	now := time.Now().UTC()
	cols := []string{"id", "agent_id", "address", "city", "state", "zip_code", "price_cents",
		"bedrooms", "bathrooms", "property_type", "description", "status", "created_at", "updated_at"}
	mock.ExpectQuery(`select id, .+ from properties\s+where agent_id=`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "agent-1", "1 Main St", "Austin", "TX", "78701", int64(45000000),
				3, 2, "HOUSE", "", "ACTIVE", now, now))
	mock.ExpectQuery(`select count\(\*\) from properties where agent_id=`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	store := NewPGStore(db)
	props, total, err := store.ListByAgent(context.Background(), "agent-1", 1, 10)
	if err != nil {
		t.Fatalf("ListByAgent: %v", err)
	}
	if len(props) != 1 || total != 7 {
		t.Fatalf("got %d props, total %d; want 1, 7", len(props), total)
	}
	if props[0].Status != StatusActive {
		t.Fatalf("status = %q", props[0].Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGSaveMissingListing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`insert into saved_properties`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select exists`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	store := NewPGStore(db)
	if err := store.Save(context.Background(), "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
