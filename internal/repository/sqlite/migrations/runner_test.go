package migrations_test

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/msomdec/client-registry/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO clients (id, clave_cliente, nombre, celular, email, character_icon, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		"id-1", "C1", "Ana", "5512345678", "ana@gmail.com", "3",
	)
	if err != nil {
		t.Fatalf("insert into clients: %v", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO clients (id, clave_cliente, nombre, celular, email, character_icon, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		"id-2", "C1", "Ana", "5512345678", "ana@gmail.com", "3",
	)
	if err == nil {
		t.Fatal("expected unique violation on clave_cliente")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 migration records, got %d", count)
	}
}

func TestRunFSRejectsBadSQL(t *testing.T) {
	db := openMemory(t)
	fsys := fstest.MapFS{
		"001_ok.sql":  {Data: []byte("CREATE TABLE a (x INTEGER);")},
		"002_bad.sql": {Data: []byte("CREATE TABLE ;")},
	}

	if err := migrations.RunFS(context.Background(), db, fsys); err == nil {
		t.Fatal("expected error from malformed migration")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the first migration recorded, got %d", count)
	}
}
