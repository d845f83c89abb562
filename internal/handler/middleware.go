package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/profiles-api/internal/domain"
)

type contextKey string

const (
	profileContextKey   contextKey = "profile"
	requestIDContextKey contextKey = "request_id"
)

// TokenResolver maps a presented token to the profile that owns it.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Profile, error)
}

// ProfileFromContext extracts the authenticated profile from the request
// context. Returns nil for anonymous requests.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(profileContextKey).(*domain.Profile)
	return p
}

// CallerID returns the id of the authenticated profile, or
// domain.AnonymousID.
func CallerID(ctx context.Context) int64 {
	if p := ProfileFromContext(ctx); p != nil {
		return p.ID
	}
	return domain.AnonymousID
}

// RequestIDFromContext returns the id assigned by RequestLogger.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// OptionalAuth resolves the Authorization header to a profile and injects it
// into the request context. Requests without a usable token proceed as
// anonymous.
func OptionalAuth(resolver TokenResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := tokenFromHeader(r.Header.Get("Authorization"))
		if ok {
			p, err := resolver.Resolve(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(context.WithValue(r.Context(), profileContextKey, p))
			case !errors.Is(err, domain.ErrUnauthorized):
				slog.Error("resolve token", "error", err, "request_id", RequestIDFromContext(r.Context()))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// tokenFromHeader accepts "Token <key>" and "Bearer <key>".
func tokenFromHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return parts[1], true
	}
	return "", false
}

// Limiter decides whether a client key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// onThrottle may be nil.
func RateLimit(limiter Limiter, onThrottle func(), next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientIP(r)) {
			if onThrottle != nil {
				onThrottle()
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Request was throttled.")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SecurityHeaders sets conservative response headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// RequestLogger assigns a request id (keeping a valid incoming X-Request-ID)
// and logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", id,
		)
	})
}

// instrument records per-route metrics for h.
func instrument(rec httpRecorder, route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(sr, r)
		rec.RecordHTTPRequest(route, r.Method, strconv.Itoa(sr.status), time.Since(start))
	}
}

type httpRecorder interface {
	RecordHTTPRequest(route, method, code string, d time.Duration)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.status = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wroteHeader = true
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
