package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/profiles-api/internal/domain"
)

// TokenKind selects how AuthService issues and resolves tokens.
type TokenKind string

const (
	// TokenOpaque issues random keys stored in the token repository.
	TokenOpaque TokenKind = "opaque"
	// TokenJWT issues self-contained HS256 JWTs.
	TokenJWT TokenKind = "jwt"
)

// AuthConfig configures AuthService.
type AuthConfig struct {
	Kind      TokenKind
	JWTSecret string
	JWTTTL    time.Duration

	// BcryptCost should match the cost profiles are hashed with.
	BcryptCost int
}

// LoginRequest is the body of a token request. Username is the profile email.
type LoginRequest struct {
	Username *string `json:"username" validate:"required,min=1"`
	Password *string `json:"password" validate:"required,min=1"`
}

// AuthService logs profiles in and resolves presented tokens to profiles.
type AuthService struct {
	profiles  domain.ProfileRepository
	tokens    domain.TokenRepository
	kind      TokenKind
	jwtSecret []byte
	jwtTTL    time.Duration

	bcryptCost int
	dummyOnce  sync.Once
	dummy      []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(profiles domain.ProfileRepository, tokens domain.TokenRepository, cfg AuthConfig) *AuthService {
	kind := cfg.Kind
	if kind == "" {
		kind = TokenOpaque
	}
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		profiles:   profiles,
		tokens:     tokens,
		kind:       kind,
		jwtSecret:  []byte(cfg.JWTSecret),
		jwtTTL:     ttl,
		bcryptCost: cost,
	}
}

// Login verifies credentials and returns a token for the profile. Invalid
// credentials and inactive profiles both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (string, error) {
	trimPtr(req.Username)
	if err := validateStruct(req); err != nil {
		return "", err
	}

	p, err := s.profiles.GetByEmail(ctx, NormalizeEmail(*req.Username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown usernames cost a comparison too.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(*req.Password))
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("get profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(*req.Password)); err != nil {
		return "", domain.ErrUnauthorized
	}
	if !p.IsActive {
		return "", domain.ErrUnauthorized
	}

	if s.kind == TokenJWT {
		token, err := s.generateJWT(p)
		if err != nil {
			return "", fmt.Errorf("generate jwt: %w", err)
		}
		return token, nil
	}
	return s.opaqueToken(ctx, p.ID)
}

// Resolve returns the active profile that owns token. Unknown, malformed or
// expired tokens yield domain.ErrUnauthorized.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Profile, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	var profileID int64
	if s.kind == TokenJWT {
		id, err := s.validateJWT(token)
		if err != nil {
			return nil, err
		}
		profileID = id
	} else {
		t, err := s.tokens.GetByKey(ctx, token)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrUnauthorized
			}
			return nil, fmt.Errorf("get token: %w", err)
		}
		profileID = t.ProfileID
	}

	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if !p.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return p, nil
}

// dummyHash returns a hash of a fixed password at the configured cost.
func (s *AuthService) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
		if err != nil {
			slog.Error("generate dummy hash", "error", err)
			return
		}
		s.dummy = h
	})
	return s.dummy
}

// opaqueToken returns the existing token of profileID or creates one.
func (s *AuthService) opaqueToken(ctx context.Context, profileID int64) (string, error) {
	existing, err := s.tokens.GetByProfileID(ctx, profileID)
	if err == nil {
		return existing.Key, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("get token: %w", err)
	}

	key, err := generateKey()
	if err != nil {
		return "", err
	}
	t := &domain.AuthToken{Key: key, ProfileID: profileID}
	if err := s.tokens.Create(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateToken) {
			// A concurrent login created it first.
			existing, getErr := s.tokens.GetByProfileID(ctx, profileID)
			if getErr == nil {
				return existing.Key, nil
			}
		}
		return "", fmt.Errorf("create token: %w", err)
	}
	return t.Key, nil
}

func generateKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *AuthService) generateJWT(p *domain.Profile) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(p.ID, 10),
		"email": p.Email,
		"name":  p.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(s.jwtTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) validateJWT(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, domain.ErrUnauthorized
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	return id, nil
}
