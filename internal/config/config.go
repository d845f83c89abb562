// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port           string
	DatabasePath   string
	LogLevel       slog.Level
	TokenKind      string // "opaque" or "jwt"
	JWTSecret      string
	JWTTTL         time.Duration
	BcryptCost     int
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads an optional .env file from the working directory and then the
// environment. Every value is validated; the first problem is returned.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "profiles.db"),
		TokenKind:    strings.ToLower(getEnv("AUTH_TOKEN_KIND", "opaque")),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	switch cfg.TokenKind {
	case "opaque":
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET is required when AUTH_TOKEN_KIND=jwt")
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
		}
	default:
		return nil, fmt.Errorf("AUTH_TOKEN_KIND must be opaque or jwt, got %q", cfg.TokenKind)
	}

	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.JWTTTL <= 0 {
		return nil, errors.New("JWT_TTL must be positive")
	}

	if cfg.BcryptCost, err = strconv.Atoi(getEnv("BCRYPT_COST", "12")); err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 14 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cfg.BcryptCost)
	}

	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "1"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, errors.New("RATE_LIMIT_RPS must be positive")
	}

	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "5")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RateLimitBurst < 1 {
		return nil, errors.New("RATE_LIMIT_BURST must be at least 1")
	}

	return cfg, nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
