package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"migrations/001_create_runs.up.sql":      {Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
	"migrations/001_create_runs.down.sql":    {Data: []byte("DROP TABLE runs;")},
	"migrations/002_add_source.up.sql":       {Data: []byte("ALTER TABLE runs ADD COLUMN source TEXT;")},
	"migrations/002_add_source.down.sql":     {Data: []byte("ALTER TABLE runs DROP COLUMN source;")},
	"migrations/README.md":                   {Data: []byte("not a migration")},
	"migrations/nested/003_indexes.up.sql":   {Data: []byte("CREATE INDEX runs_source ON runs (source);")},
	"migrations/nested/003_indexes.down.sql": {Data: []byte("DROP INDEX runs_source;")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("error opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFSProviderMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations, "migrations", "", "").Migrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.Up == "" || m.Down == "" {
			t.Errorf("migration %d is missing SQL: %+v", m.Version, m)
		}
	}
	if migrations[1].Name != "add source" {
		t.Errorf("name = %q, expected %q", migrations[1].Name, "add source")
	}
}

func TestMigrator(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, "migrations", "", "sqlite"), nil)

	pending, err := m.Pending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("expected 3 pending migrations, got %d", len(pending))
	}

	if err := m.MigrateUp(ctx); err != nil {
		t.Fatalf("MigrateUp() error: %v", err)
	}
	if v, _ := m.CurrentVersion(ctx); v != 3 {
		t.Errorf("version after up = %d, expected 3", v)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO runs (id, source) VALUES ('a', 'test')"); err != nil {
		t.Errorf("schema not applied: %v", err)
	}

	// Running again is a no-op
	if err := m.MigrateUp(ctx); err != nil {
		t.Fatalf("second MigrateUp() error: %v", err)
	}

	if err := m.MigrateTo(ctx, 1); err != nil {
		t.Fatalf("MigrateTo(1) error: %v", err)
	}
	if v, _ := m.CurrentVersion(ctx); v != 1 {
		t.Errorf("version after rollback = %d, expected 1", v)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO runs (id, source) VALUES ('b', 'test')"); err == nil {
		t.Error("source column still present after rollback")
	}

	if err := m.MigrateTo(ctx, 0); err != nil {
		t.Fatalf("MigrateTo(0) error: %v", err)
	}
	if v, _ := m.CurrentVersion(ctx); v != 0 {
		t.Errorf("version after full rollback = %d, expected 0", v)
	}
}
