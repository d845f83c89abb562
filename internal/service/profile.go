package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/profiles-api/internal/domain"
)

const duplicateEmailMessage = "user profile with this email already exists."

// ProfileInput is the body of a profile create or full update. All fields
// are required.
type ProfileInput struct {
	Email    *string `json:"email" validate:"required,min=1,max=255,email"`
	Name     *string `json:"name" validate:"required,min=1,max=255"`
	Password *string `json:"password" validate:"required,min=1,max=128"`
}

// ProfilePatch is the body of a partial update. Absent fields are left as
// they are.
type ProfilePatch struct {
	Email    *string `json:"email" validate:"omitnil,min=1,max=255,email"`
	Name     *string `json:"name" validate:"omitnil,min=1,max=255"`
	Password *string `json:"password" validate:"omitnil,min=1,max=128"`
}

// ProfileService implements the profile collection: listing, retrieval,
// self-registration and owner-only modification.
type ProfileService struct {
	profiles   domain.ProfileRepository
	bcryptCost int
	events     ProfileEvents
}

// ProfileEvents receives notifications of successful profile writes.
type ProfileEvents interface {
	ProfileWritten(op string)
}

type noopEvents struct{}

func (noopEvents) ProfileWritten(string) {}

// NewProfileService creates a new ProfileService. events may be nil.
func NewProfileService(profiles domain.ProfileRepository, bcryptCost int, events ProfileEvents) *ProfileService {
	if events == nil {
		events = noopEvents{}
	}
	return &ProfileService{profiles: profiles, bcryptCost: bcryptCost, events: events}
}

// List returns all profiles matching the raw search parameter.
func (s *ProfileService) List(ctx context.Context, search string) ([]domain.Profile, error) {
	profiles, err := s.profiles.List(ctx, domain.ProfileFilter{Terms: SearchTerms(search)})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Get returns the profile with the given id.
func (s *ProfileService) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// Create registers a new profile. It is open to anonymous callers.
func (s *ProfileService) Create(ctx context.Context, in ProfileInput) (*domain.Profile, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(*in.Password)
	if err != nil {
		return nil, err
	}

	p := &domain.Profile{
		Email:        *in.Email,
		Name:         *in.Name,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, mapWriteError("create profile", err)
	}

	s.events.ProfileWritten("create")
	return p, nil
}

// Update replaces every writable field of profile id. Only the owner may
// update a profile.
func (s *ProfileService) Update(ctx context.Context, callerID, id int64, in ProfileInput) (*domain.Profile, error) {
	p, err := s.writableTarget(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(*in.Password)
	if err != nil {
		return nil, err
	}
	p.Email = *in.Email
	p.Name = *in.Name
	p.PasswordHash = hash

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, mapWriteError("update profile", err)
	}

	s.events.ProfileWritten("update")
	return p, nil
}

// PartialUpdate changes only the fields present in patch. Only the owner may
// update a profile.
func (s *ProfileService) PartialUpdate(ctx context.Context, callerID, id int64, patch ProfilePatch) (*domain.Profile, error) {
	p, err := s.writableTarget(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	patch.normalize()
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Password != nil {
		hash, err := s.hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		p.PasswordHash = hash
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, mapWriteError("partial update profile", err)
	}

	s.events.ProfileWritten("partial_update")
	return p, nil
}

// Delete removes profile id. Only the owner may delete a profile.
func (s *ProfileService) Delete(ctx context.Context, callerID, id int64) error {
	if _, err := s.writableTarget(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	s.events.ProfileWritten("destroy")
	return nil
}

// Authorize reports whether callerID may modify profile id, returning
// domain.ErrNotFound or domain.ErrForbidden otherwise. Handlers call it before
// reading a request body.
func (s *ProfileService) Authorize(ctx context.Context, callerID, id int64) error {
	_, err := s.writableTarget(ctx, callerID, id)
	return err
}

// writableTarget loads profile id and checks that callerID may modify it.
func (s *ProfileService) writableTarget(ctx context.Context, callerID, id int64) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanWrite(callerID, p.ID) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func (s *ProfileService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func mapWriteError(op string, err error) error {
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return domain.NewValidationError("email", duplicateEmailMessage)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (in *ProfileInput) normalize() {
	trimPtr(in.Email)
	trimPtr(in.Name)
	if in.Email != nil {
		*in.Email = NormalizeEmail(*in.Email)
	}
}

func (p *ProfilePatch) normalize() {
	trimPtr(p.Email)
	trimPtr(p.Name)
	if p.Email != nil {
		*p.Email = NormalizeEmail(*p.Email)
	}
}

// NormalizeEmail lower-cases the domain part of an email address. The local
// part is kept as given.
func NormalizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// SearchTerms splits a search parameter on commas and whitespace.
func SearchTerms(search string) []string {
	search = strings.ReplaceAll(search, "\x00", "")
	search = strings.ReplaceAll(search, ",", " ")
	return strings.Fields(search)
}
