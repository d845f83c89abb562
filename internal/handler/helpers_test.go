package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/profiles-api/internal/handler"
	"github.com/msomdec/profiles-api/internal/metrics"
	"github.com/msomdec/profiles-api/internal/repository/sqlite"
	"github.com/msomdec/profiles-api/internal/service"
)

type testApp struct {
	srv      *httptest.Server
	auth     *service.AuthService
	profiles *service.ProfileService
	metrics  *metrics.Manager
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

// newTestApp serves the full route table behind OptionalAuth. A nil limiter
// never throttles.
func newTestApp(t *testing.T, limiter handler.Limiter) *testApp {
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

	if limiter == nil {
		limiter = allowAll{}
	}
	m := metrics.NewManager()
	auth := service.NewAuthService(db.Profiles(), db.Tokens(), service.AuthConfig{Kind: service.TokenOpaque, JWTTTL: time.Hour, BcryptCost: 4})
	profiles := service.NewProfileService(db.Profiles(), 4, m)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		Auth:     auth,
		Profiles: profiles,
		Hello:    service.NewHelloService(),
		Metrics:  m,
		Limiter:  limiter,
	})

	srv := httptest.NewServer(handler.OptionalAuth(auth, mux))
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, auth: auth, profiles: profiles, metrics: m}
}

// do sends body (if non-nil) as JSON and returns the status and raw body.
func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			rdr = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return v
}

// register creates a profile over HTTP and logs it in.
func (a *testApp) register(t *testing.T, email, name, password string) (handler.ProfileDTO, string) {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/profiles/", "", map[string]string{
		"email": email, "name": name, "password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("create %s: expected 201, got %d: %s", email, status, body)
	}
	p := decode[handler.ProfileDTO](t, body)

	status, body = a.do(t, http.MethodPost, "/login/", "", map[string]string{
		"username": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, status, body)
	}
	return p, decode[map[string]string](t, body)["token"]
}
