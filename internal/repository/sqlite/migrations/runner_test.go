package migrations_test

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/msomdec/profiles-api/internal/repository/sqlite/migrations"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	// Verify the profiles table exists by inserting a row.
	res, err := db.ExecContext(ctx,
		"INSERT INTO user_profiles (email, name, password_hash) VALUES (?, ?, ?)",
		"test@example.com", "Test User", "hash123",
	)
	if err != nil {
		t.Fatalf("insert into user_profiles: %v", err)
	}
	profileID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO auth_tokens (token_key, profile_id) VALUES (?, ?)", "abc", profileID,
	); err != nil {
		t.Fatalf("insert into auth_tokens: %v", err)
	}

	// Tokens go away with their profile.
	if _, err := db.ExecContext(ctx, "DELETE FROM user_profiles WHERE id = ?", profileID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	var tokens int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM auth_tokens").Scan(&tokens); err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if tokens != 0 {
		t.Fatalf("expected token to cascade on delete, %d left", tokens)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}

	applied, err := migrations.Applied(ctx, db)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 migration records, got %d", len(applied))
	}
	for _, name := range []string{"001_create_user_profiles.sql", "002_create_auth_tokens.sql"} {
		if !applied[name] {
			t.Fatalf("expected %s to be recorded", name)
		}
	}
}

func TestRunFS_AppliesInFilenameOrder(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"002_add_row.sql":   {Data: []byte("INSERT INTO things (label) VALUES ('first');")},
		"001_create.sql":    {Data: []byte("CREATE TABLE things (label TEXT NOT NULL);")},
		"README.md":         {Data: []byte("not a migration")},
		"sub/003_other.sql": {Data: []byte("SELECT 1;")},
	}

	if err := migrations.RunFS(ctx, db, fsys); err != nil {
		t.Fatalf("RunFS: %v", err)
	}

	var label string
	if err := db.QueryRowContext(ctx, "SELECT label FROM things").Scan(&label); err != nil {
		t.Fatalf("select: %v", err)
	}
	if label != "first" {
		t.Fatalf("expected label 'first', got %q", label)
	}

	applied, err := migrations.Applied(ctx, db)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", len(applied))
	}
}

func TestRunFS_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE broken (")},
	}

	if err := migrations.RunFS(ctx, db, fsys); err == nil {
		t.Fatal("expected error for invalid SQL")
	}

	applied, err := migrations.Applied(ctx, db)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	if applied["001_broken.sql"] {
		t.Fatal("failed migration must not be recorded")
	}
}
