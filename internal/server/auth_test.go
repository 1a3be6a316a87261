package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subburn/internal/catalog"
	"subburn/internal/config"
	"subburn/internal/dispatcher"
	"subburn/internal/logging"
	"subburn/internal/testsupport"
)

func newAuthFixture(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()

	gotrue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/auth/v1/signup":
			body, _ := io.ReadAll(r.Body)
			fmt.Fprintf(w, `{"echo": %q}`, string(body))
		case "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer token-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"email": "user@example.com"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gotrue.Close)

	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Auth.URL = gotrue.URL
		cfg.Auth.AnonKey = "anon-key"
		stub := filepath.Join(t.TempDir(), "subburn-worker")
		if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write worker stub: %v", err)
		}
		cfg.Paths.WorkerBinary = stub
	})
	store := testsupport.NewStore(t, cfg)
	cat, err := catalog.Open(cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	disp := dispatcher.New(cfg, "", store, cat, logging.NewNop())
	api := New(cfg, store, cat, disp, logging.NewNop())
	ts := httptest.NewServer(api.router())
	t.Cleanup(ts.Close)

	return ts, gotrue
}

func TestAuthSignupForwardsWithAnonKey(t *testing.T) {
	ts, _ := newAuthFixture(t)

	resp, err := http.Post(ts.URL+"/api/auth/signup", "application/json",
		strings.NewReader(`{"email":"a@b.c","password":"secret"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "a@b.c") {
		t.Fatalf("upstream did not receive body: %s", body)
	}
}

func TestAuthUserRelaysBearerToken(t *testing.T) {
	ts, _ := newAuthFixture(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "user@example.com") {
		t.Fatalf("body = %s", body)
	}
}

func TestAuthUserRequiresToken(t *testing.T) {
	ts, _ := newAuthFixture(t)

	resp, err := http.Get(ts.URL + "/api/auth/user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthRoutesAbsentWhenDisabled(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.server.URL+"/api/auth/signup", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when auth disabled", resp.StatusCode)
	}
}
