package domain

import (
	"context"
	"strings"
	"time"
)

// Profile represents a registered user profile. Email is the login identity
// and is unique across all profiles.
type Profile struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileFilter narrows a profile listing. Every term must match the name or
// the email of a profile, case-insensitively. No terms matches everything.
type ProfileFilter struct {
	Terms []string
}

// Matches reports whether p satisfies the filter.
func (f ProfileFilter) Matches(p *Profile) bool {
	name := strings.ToLower(p.Name)
	email := strings.ToLower(p.Email)
	for _, term := range f.Terms {
		t := strings.ToLower(term)
		if !strings.Contains(name, t) && !strings.Contains(email, t) {
			return false
		}
	}
	return true
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id int64) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	List(ctx context.Context, filter ProfileFilter) ([]Profile, error)
	Update(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, id int64) error
}

// AnonymousID is the caller identity of unauthenticated requests.
const AnonymousID int64 = 0

// CanWrite reports whether the caller may modify the target profile.
// Only the owner of a profile may change or delete it.
func CanWrite(callerID, targetID int64) bool {
	return callerID != AnonymousID && callerID == targetID
}
