package domain

import "context"

// Database bundles the profile and token stores with their lifecycle.
// Each backend owns its own migration files.
type Database interface {
	Migrate(ctx context.Context) error
	Profiles() ProfileRepository
	Tokens() TokenRepository
	Close() error
}
