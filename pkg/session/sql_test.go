package session

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewSQLStore(db, WithSQLDialect(DialectSQLite), WithSQLTableName("sessions_test"))
	t.Cleanup(func() { store.Close() })
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable() error: %v", err)
	}
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "a", []byte("first"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := store.Save(ctx, "a", []byte("second"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save() overwrite error: %v", err)
	}

	got, err := store.Load(ctx, "a")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Load() = %q, want %q", got, "second")
	}

	if got, err := store.Load(ctx, "missing"); err != nil || got != nil {
		t.Errorf("Load(missing) = (%q, %v), want (nil, nil)", got, err)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx, "a"); got != nil {
		t.Errorf("Load() after Delete = %q", got)
	}
}

func TestSQLStoreExpiryAndCleanup(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_ = store.Save(ctx, "live", []byte("x"), base.Add(time.Hour))
	_ = store.Save(ctx, "dead", []byte("y"), base.Add(-time.Second))

	if got, _ := store.Load(ctx, "dead"); got != nil {
		t.Error("expired row should not load")
	}

	if err := store.Touch(ctx, "live", base.Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx, "live"); got != nil {
		t.Error("row touched into the past should not load")
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	var n int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions_test").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after cleanup = %d, want 0", n)
	}
}

func TestSQLStoreSaveAll(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	err := store.SaveAll(ctx, map[string]Data{
		"a": {Data: []byte("1"), ExpiresAt: exp},
		"b": {Data: []byte("2"), ExpiresAt: exp},
	})
	if err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}
	for id, want := range map[string]string{"a": "1", "b": "2"} {
		got, err := store.Load(ctx, id)
		if err != nil || string(got) != want {
			t.Errorf("Load(%s) = (%q, %v), want %q", id, got, err, want)
		}
	}
}

func TestSQLStoreClosed(t *testing.T) {
	store := newSQLiteStore(t)
	store.Close()
	if err := store.Save(context.Background(), "a", nil, time.Now()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save() = %v, want ErrStoreClosed", err)
	}
}

func TestSQLDialectQueries(t *testing.T) {
	tests := []struct {
		dialect SQLDialect
		upsert  string
		load    string
	}{
		{DialectPostgreSQL, "ON CONFLICT (id)", "WHERE id = $1 AND expires_at > $2"},
		{DialectMySQL, "ON DUPLICATE KEY UPDATE", "WHERE id = ? AND expires_at > ?"},
		{DialectSQLite, "INSERT OR REPLACE", "WHERE id = ? AND expires_at > ?"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			s := &SQLStore{tableName: "t", dialect: tt.dialect}
			if q := s.upsertQuery(); !strings.Contains(q, tt.upsert) {
				t.Errorf("upsert = %q, want it to contain %q", q, tt.upsert)
			}
			if q := s.loadQuery(); !strings.Contains(q, tt.load) {
				t.Errorf("load = %q, want it to contain %q", q, tt.load)
			}
		})
	}
}

func TestParseSQLDialect(t *testing.T) {
	for in, want := range map[string]SQLDialect{
		"postgres": DialectPostgreSQL,
		"mysql":    DialectMySQL,
		"sqlite":   DialectSQLite,
		"sqlite3":  DialectSQLite,
	} {
		got, err := ParseSQLDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseSQLDialect(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := ParseSQLDialect("oracle"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}
