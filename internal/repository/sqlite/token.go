package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/profiles-api/internal/domain"
)

// TokenRepository implements domain.TokenRepository using SQLite.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new SQLite-backed TokenRepository.
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db.SqlDB}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.AuthToken) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token_key, profile_id, created_at) VALUES (?, ?, ?)`,
		t.Key, t.ProfileID, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateToken
		}
		return fmt.Errorf("insert token: %w", err)
	}
	t.CreatedAt = now
	return nil
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*domain.AuthToken, error) {
	return r.getOne(ctx, `SELECT token_key, profile_id, created_at FROM auth_tokens WHERE token_key = ?`, key)
}

func (r *TokenRepository) GetByProfileID(ctx context.Context, profileID int64) (*domain.AuthToken, error) {
	return r.getOne(ctx, `SELECT token_key, profile_id, created_at FROM auth_tokens WHERE profile_id = ?`, profileID)
}

func (r *TokenRepository) getOne(ctx context.Context, query string, arg any) (*domain.AuthToken, error) {
	t := &domain.AuthToken{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.Key, &t.ProfileID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query token: %w", err)
	}
	return t, nil
}
