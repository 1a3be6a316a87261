package server

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// handleAuthProxy forwards credential requests to the configured GoTrue
// instance, attaching the anon key. The daemon never stores credentials or
// sessions itself; it only relays them so browser clients avoid CORS and
// key-distribution problems.
func (s *Server) handleAuthProxy(upstreamPath string) http.HandlerFunc {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(w http.ResponseWriter, r *http.Request) {
		target := strings.TrimRight(s.cfg.Auth.URL, "/") + upstreamPath

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "unreadable request body")
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, strings.NewReader(string(body)))
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "auth proxy failure")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", s.cfg.Auth.AnonKey)

		resp, err := client.Do(req)
		if err != nil {
			s.respondError(w, http.StatusBadGateway, "auth service unreachable")
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}

// handleAuthUser relays a bearer token to GoTrue's user endpoint.
func (s *Server) handleAuthUser() http.HandlerFunc {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		target := strings.TrimRight(s.cfg.Auth.URL, "/") + "/auth/v1/user"
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "auth proxy failure")
			return
		}
		req.Header.Set("Authorization", token)
		req.Header.Set("apikey", s.cfg.Auth.AnonKey)

		resp, err := client.Do(req)
		if err != nil {
			s.respondError(w, http.StatusBadGateway, "auth service unreachable")
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}
