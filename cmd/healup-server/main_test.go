package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healup/healup/internal/config"
	"github.com/healup/healup/internal/domain/identity"
	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/internal/platform/middleware"
	"github.com/healup/healup/pkg/apperr"
)

func newTestApp() *app {
	cfg := &config.Config{
		Env:         "test",
		CORSOrigins: []string{"http://localhost:5173"},
		BodyLimit:   "1M",
	}
	return &app{
		cfg:         cfg,
		logger:      zerolog.Nop(),
		tokens:      auth.NewTokenManager("test-secret", time.Hour),
		apiLimiter:  middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		authLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		dbHealth: func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		},
	}
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	e := newTestApp().router()

	for _, path := range []string{"/health", "/api/health", "/health/db"} {
		rec := serve(e, http.MethodGet, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
		var body map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["status"] != "ok" {
			t.Errorf("%s: unexpected body %s", path, rec.Body.String())
		}
		if rec.Header().Get(middleware.RequestIDHeader) == "" {
			t.Errorf("%s: expected a request id header", path)
		}
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	e := newTestApp().router()

	tests := []struct {
		method, path string
		code         int
		message      string
	}{
		{http.MethodGet, "/api/appointments/me", http.StatusUnauthorized, "Not authenticated"},
		{http.MethodGet, "/api/appointments", http.StatusUnauthorized, "Not authenticated"},
		{http.MethodPost, "/api/payments/confirm", http.StatusUnauthorized, "Not authenticated"},
		{http.MethodGet, "/api/nowhere", http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(e, tt.method, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var body apperr.Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Message != tt.message {
				t.Errorf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestRouter_InvalidTokenIsAnonymous(t *testing.T) {
	e := newTestApp().router()
	req := httptest.NewRequest(http.MethodGet, "/api/appointments/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// -- directory --

type stubDoctors struct {
	doctors map[string]*identity.DoctorProfile
	err     error
}

func (s *stubDoctors) GetDoctor(_ context.Context, id string) (*identity.DoctorProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if d, ok := s.doctors[id]; ok {
		return d, nil
	}
	return nil, apperr.NotFound("Doctor not found")
}

func (s *stubDoctors) DoctorForUser(_ context.Context, userID string) (*identity.DoctorProfile, error) {
	for _, d := range s.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFound("Doctor profile not found")
}

func (s *stubDoctors) PatientName(_ context.Context, id string) (string, error) {
	if id == "user-a" {
		return "Anita", nil
	}
	return "", nil
}

func TestDirectory(t *testing.T) {
	src := &stubDoctors{doctors: map[string]*identity.DoctorProfile{
		"doc-1": {ID: "doc-1", UserID: "user-1", Name: "Dr. One", Specialty: "ENT", AvailableSlots: []string{"09:00"}},
	}}
	dir := newDirectory(src)
	ctx := context.Background()

	d, err := dir.Doctor(ctx, "doc-1")
	if err != nil || d == nil || d.Name != "Dr. One" || d.UserID != "user-1" || len(d.AvailableSlots) != 1 {
		t.Errorf("unexpected card %+v, %v", d, err)
	}
	if d, err := dir.Doctor(ctx, "missing"); d != nil || err != nil {
		t.Errorf("missing doctor must be nil, nil; got %+v, %v", d, err)
	}
	if d, err := dir.DoctorForUser(ctx, "user-1"); err != nil || d == nil || d.ID != "doc-1" {
		t.Errorf("unexpected card %+v, %v", d, err)
	}
	if name, _ := dir.PatientName(ctx, "user-a"); name != "Anita" {
		t.Errorf("unexpected name %q", name)
	}

	src.err = errors.New("connection reset")
	if _, err := dir.Doctor(ctx, "doc-1"); err == nil {
		t.Error("store errors must propagate")
	}
}

func TestLimiterConfig(t *testing.T) {
	if got := limiterConfig(0, 0); got != middleware.DefaultRateLimitConfig() {
		t.Errorf("expected defaults, got %+v", got)
	}
	if got := limiterConfig(5, 10); got.RequestsPerSecond != 5 || got.BurstSize != 10 {
		t.Errorf("unexpected config %+v", got)
	}
}

func TestMigrateCommands(t *testing.T) {
	cmd := migrateCmd()
	for _, name := range []string{"up", "status"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("expected %q subcommand, got %v", name, err)
			continue
		}
		if sub.Flags().Lookup("dir") == nil {
			t.Errorf("%s: expected --dir flag", name)
		}
	}
}
