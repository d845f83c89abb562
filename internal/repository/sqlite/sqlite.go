package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/msomdec/profiles-api/internal/domain"
	"github.com/msomdec/profiles-api/internal/repository/sqlite/migrations"
)

func init() {
	// unicode_lower folds case for every script; the built-in lower() only
	// handles ASCII.
	msqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// DB is a SQLite-backed implementation of domain.Database.
type DB struct {
	SqlDB *sql.DB

	profiles *ProfileRepository
	tokens   *TokenRepository
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps the per-connection pragmas below in effect
	// and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := sqlDB.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{SqlDB: sqlDB}
	db.profiles = NewProfileRepository(db)
	db.tokens = NewTokenRepository(db)
	return db, nil
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, db.SqlDB)
}

// Profiles returns the profile repository.
func (db *DB) Profiles() domain.ProfileRepository {
	return db.profiles
}

// Tokens returns the auth token repository.
func (db *DB) Tokens() domain.TokenRepository {
	return db.tokens
}

func (db *DB) Close() error {
	return db.SqlDB.Close()
}

// isUniqueConstraintError reports whether err is a SQLite UNIQUE or
// PRIMARY KEY constraint violation.
func isUniqueConstraintError(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
