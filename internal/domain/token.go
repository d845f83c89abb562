package domain

import (
	"context"
	"time"
)

// AuthToken is an opaque credential bound to exactly one profile.
type AuthToken struct {
	Key       string
	ProfileID int64
	CreatedAt time.Time
}

// TokenRepository defines persistence operations for auth tokens. Tokens are
// removed with their profile by the store (ON DELETE CASCADE).
type TokenRepository interface {
	Create(ctx context.Context, token *AuthToken) error
	GetByKey(ctx context.Context, key string) (*AuthToken, error)
	GetByProfileID(ctx context.Context, profileID int64) (*AuthToken, error)
}
