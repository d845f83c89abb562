package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/profiles-api/internal/domain"
	"github.com/msomdec/profiles-api/internal/repository/sqlite"
	"github.com/msomdec/profiles-api/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

// newTestServices returns services sharing one database. bcrypt cost 4 keeps
// tests fast.
func newTestServices(t *testing.T, kind service.TokenKind) (*service.AuthService, *service.ProfileService, *sqlite.DB) {
	t.Helper()
	db := newTestDB(t)
	auth := service.NewAuthService(db.Profiles(), db.Tokens(), service.AuthConfig{
		Kind:       kind,
		JWTSecret:  testJWTSecret,
		JWTTTL:     time.Hour,
		BcryptCost: 4,
	})
	profiles := service.NewProfileService(db.Profiles(), 4, nil)
	return auth, profiles, db
}

func register(t *testing.T, profiles *service.ProfileService, email, name, password string) *domain.Profile {
	t.Helper()
	p, err := profiles.Create(context.Background(), service.ProfileInput{
		Email:    strPtr(email),
		Name:     strPtr(name),
		Password: strPtr(password),
	})
	if err != nil {
		t.Fatalf("Create %s: %v", email, err)
	}
	return p
}

func login(email, password string) service.LoginRequest {
	return service.LoginRequest{Username: strPtr(email), Password: strPtr(password)}
}

func TestAuthService_Login_Success(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenOpaque)
	ctx := context.Background()
	p := register(t, profiles, "login@example.com", "Login User", "password123")

	token, err := auth.Login(ctx, login("login@example.com", "password123"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(token) != 40 {
		t.Fatalf("expected 40-char opaque token, got %q", token)
	}

	resolved, err := auth.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ID != p.ID {
		t.Fatalf("expected profile %d, got %d", p.ID, resolved.ID)
	}
}

func TestAuthService_Login_ReusesToken(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenOpaque)
	ctx := context.Background()
	register(t, profiles, "reuse@example.com", "Reuse", "password123")

	first, err := auth.Login(ctx, login("reuse@example.com", "password123"))
	if err != nil {
		t.Fatalf("first Login: %v", err)
	}
	second, err := auth.Login(ctx, login("reuse@example.com", "password123"))
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same token, got %q and %q", first, second)
	}
}

func TestAuthService_Login_NormalizesEmailDomain(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenOpaque)
	register(t, profiles, "Case@Example.COM", "Case", "password123")

	if _, err := auth.Login(context.Background(), login("Case@example.com", "password123")); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenOpaque)
	register(t, profiles, "wrongpw@example.com", "User", "password123")

	_, err := auth.Login(context.Background(), login("wrongpw@example.com", "wrongpassword"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	auth, _, _ := newTestServices(t, service.TokenOpaque)

	_, err := auth.Login(context.Background(), login("nobody@example.com", "password123"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_Login_InactiveProfile(t *testing.T) {
	auth, profiles, db := newTestServices(t, service.TokenOpaque)
	ctx := context.Background()
	p := register(t, profiles, "inactive@example.com", "Inactive", "password123")

	p.IsActive = false
	if err := db.Profiles().Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := auth.Login(ctx, login("inactive@example.com", "password123"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	auth, _, _ := newTestServices(t, service.TokenOpaque)

	_, err := auth.Login(context.Background(), service.LoginRequest{Password: strPtr("")})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := verr.Fields["username"]; len(got) != 1 || got[0] != "This field is required." {
		t.Fatalf("unexpected username errors: %v", got)
	}
	if got := verr.Fields["password"]; len(got) != 1 || got[0] != "This field may not be blank." {
		t.Fatalf("unexpected password errors: %v", got)
	}
}

func TestAuthService_Resolve_UnknownToken(t *testing.T) {
	auth, _, _ := newTestServices(t, service.TokenOpaque)

	for _, token := range []string{"", "not-a-token"} {
		if _, err := auth.Resolve(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("Resolve(%q): expected ErrUnauthorized, got %v", token, err)
		}
	}
}

func TestAuthService_Resolve_DeletedProfile(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenOpaque)
	ctx := context.Background()
	p := register(t, profiles, "deleted@example.com", "Deleted", "password123")

	token, err := auth.Login(ctx, login("deleted@example.com", "password123"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := profiles.Delete(ctx, p.ID, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := auth.Resolve(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for deleted profile, got %v", err)
	}
}

func TestAuthService_JWT_GenerateAndResolve(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenJWT)
	ctx := context.Background()
	p := register(t, profiles, "jwt@example.com", "JWT User", "password123")

	token, err := auth.Login(ctx, login("jwt@example.com", "password123"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	resolved, err := auth.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ID != p.ID {
		t.Fatalf("expected profile ID %d, got %d", p.ID, resolved.ID)
	}
}

func TestAuthService_JWT_TamperedToken(t *testing.T) {
	auth, profiles, _ := newTestServices(t, service.TokenJWT)
	ctx := context.Background()
	register(t, profiles, "tamper@example.com", "Tamper", "password123")

	token, err := auth.Login(ctx, login("tamper@example.com", "password123"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	tampered := token[:len(token)-5] + "XXXXX"
	if _, err := auth.Resolve(ctx, tampered); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for tampered token, got %v", err)
	}
}

func TestAuthService_JWT_WrongSecret(t *testing.T) {
	auth, profiles, db := newTestServices(t, service.TokenJWT)
	ctx := context.Background()
	register(t, profiles, "secret@example.com", "Secret", "password123")

	token, err := auth.Login(ctx, login("secret@example.com", "password123"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	other := service.NewAuthService(db.Profiles(), db.Tokens(), service.AuthConfig{
		Kind:      service.TokenJWT,
		JWTSecret: "a-completely-different-secret-0123456789",
	})
	if _, err := other.Resolve(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong secret, got %v", err)
	}
}
