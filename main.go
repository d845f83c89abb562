package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"

	"github.com/msomdec/profiles-api/internal/config"
	"github.com/msomdec/profiles-api/internal/handler"
	"github.com/msomdec/profiles-api/internal/metrics"
	"github.com/msomdec/profiles-api/internal/repository/sqlite"
	"github.com/msomdec/profiles-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	m := metrics.NewManager(metrics.WithRuntimeCollectors())

	authService := service.NewAuthService(db.Profiles(), db.Tokens(), service.AuthConfig{
		Kind:       service.TokenKind(cfg.TokenKind),
		JWTSecret:  cfg.JWTSecret,
		JWTTTL:     cfg.JWTTTL,
		BcryptCost: cfg.BcryptCost,
	})
	profileService := service.NewProfileService(db.Profiles(), cfg.BcryptCost, m)
	helloService := service.NewHelloService()

	limiter := service.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	go limiter.RunSweeper(time.Minute, stopSweeper)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		Auth:     authService,
		Profiles: profileService,
		Hello:    helloService,
		Metrics:  m,
		Limiter:  limiter,
	})

	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		slog.Error("failed to create compression adapter", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.RequestLogger(handler.SecurityHeaders(compress(handler.OptionalAuth(authService, mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "token_kind", cfg.TokenKind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
