package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/attest/pkg/middleware"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestStackOrder(t *testing.T) {
	var order []string
	var mw middleware.Stack

	for _, name := range []string{"first", "second"} {
		mw.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		})
	}

	handler := mw.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("order: got %v, want [first second handler]", order)
	}
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://attest.local"},
		AllowCredentials: true,
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	tests := []struct {
		name        string
		cfg         *middleware.CORSConfig
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantReached bool
	}{
		{"allowed origin", cfg, "POST", "http://attest.local", false, "http://attest.local", http.StatusOK, true},
		{"disallowed origin", cfg, "POST", "http://evil.local", false, "", http.StatusOK, true},
		{"preflight", cfg, "OPTIONS", "http://attest.local", true, "http://attest.local", http.StatusNoContent, false},
		{"plain options", cfg, "OPTIONS", "http://attest.local", false, "http://attest.local", http.StatusOK, true},
		{"disallowed preflight", cfg, "OPTIONS", "http://evil.local", true, "", http.StatusOK, true},
		{"disabled", &middleware.CORSConfig{}, "POST", "http://attest.local", false, "", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := middleware.CORS(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/api/validations", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin: got %q, want %q", got, tt.wantOrigin)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if reached != tt.wantReached {
				t.Errorf("reached handler: got %v, want %v", reached, tt.wantReached)
			}
			if tt.cfg.Enabled && rec.Header().Get("Vary") != "Origin" {
				t.Errorf("vary: got %q, want Origin", rec.Header().Get("Vary"))
			}
			if tt.preflight && tt.wantOrigin != "" && rec.Header().Get("Access-Control-Allow-Methods") == "" {
				t.Error("preflight response missing allowed methods")
			}
		})
	}
}

func TestCORSConfigEnv(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.local, http://b.local ,")

	cfg := &middleware.CORSConfig{}
	err := cfg.Finalize(&middleware.CORSEnv{Enabled: "TEST_CORS_ENABLED", Origins: "TEST_CORS_ORIGINS"})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !cfg.Enabled {
		t.Error("enabled should be set from env")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "http://b.local" {
		t.Errorf("origins: got %v", cfg.Origins)
	}
	if cfg.MaxAge != 3600 {
		t.Errorf("max_age default: got %d, want 3600", cfg.MaxAge)
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://a.local"}, MaxAge: 600}
	base.Merge(&middleware.CORSConfig{AllowedHeaders: []string{"X-Request-ID"}})

	if !base.Enabled {
		t.Error("overlay without enabled should keep cors enabled")
	}
	if base.MaxAge != 600 {
		t.Errorf("max_age: got %d, want 600", base.MaxAge)
	}
	if len(base.AllowedHeaders) != 1 || base.AllowedHeaders[0] != "X-Request-ID" {
		t.Errorf("allowed headers: got %v", base.AllowedHeaders)
	}
}

func TestCORSConfigRejectsWildcardWithCredentials(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"*"}, AllowCredentials: true}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for wildcard origin with credentials")
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/marks", nil))

	out := buf.String()
	if !strings.Contains(out, "status=422") {
		t.Errorf("log missing status: %s", out)
	}
	if !strings.Contains(out, "uri=/api/marks") {
		t.Errorf("log missing uri: %s", out)
	}
}

type fakeVerifier struct {
	token string
}

func (f fakeVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	if raw != f.token {
		return nil, errors.New("signature mismatch")
	}
	return &oidc.IDToken{Subject: "analyst-7"}, nil
}

func TestAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var subject string

	handler := middleware.Auth(fakeVerifier{token: "good"}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = middleware.Subject(r.Context())
		ok(w, r)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"invalid token", "Bearer forged", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/validations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && subject != "analyst-7" {
				t.Errorf("subject: got %q, want analyst-7", subject)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAuthConfigFinalize(t *testing.T) {
	t.Run("disabled needs nothing", func(t *testing.T) {
		cfg := &middleware.AuthConfig{}
		if err := cfg.Finalize(nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("enabled requires issuer and audience", func(t *testing.T) {
		cfg := &middleware.AuthConfig{Enabled: true, Issuer: "https://login.example.com"}
		if err := cfg.Finalize(nil); err == nil || !strings.Contains(err.Error(), "audience") {
			t.Errorf("error = %v, want audience required", err)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_AUTH_ENABLED", "true")
		t.Setenv("TEST_AUTH_ISSUER", "https://login.example.com")
		t.Setenv("TEST_AUTH_AUDIENCE", "attest-api")

		cfg := &middleware.AuthConfig{}
		err := cfg.Finalize(&middleware.AuthEnv{
			Enabled:  "TEST_AUTH_ENABLED",
			Issuer:   "TEST_AUTH_ISSUER",
			Audience: "TEST_AUTH_AUDIENCE",
		})
		if err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if !cfg.Enabled || cfg.Audience != "attest-api" {
			t.Errorf("config: got %+v", cfg)
		}
	})
}
