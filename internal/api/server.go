// Package api exposes the daemon's HTTP surface: switch state, rule and
// profile management, ad-hoc rule testing, and evaluation control.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/krzko/proxy-switcheroo/internal/engine"
	"github.com/krzko/proxy-switcheroo/internal/store"
	"github.com/krzko/proxy-switcheroo/internal/switcher"
	"github.com/krzko/proxy-switcheroo/internal/telemetry"
)

// Server handles the HTTP API. Reads are public; writes require the admin
// bearer token.
type Server struct {
	store       store.Store
	orch        *switcher.Orchestrator
	evaluator   *engine.Evaluator
	adminAPIKey string
}

// NewServer wires the API against its collaborators.
func NewServer(st store.Store, orch *switcher.Orchestrator, ev *engine.Evaluator, adminKey string) *Server {
	return &Server{store: st, orch: orch, evaluator: ev, adminAPIKey: adminKey}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	// Evaluation passes run network probes; give them room beyond the
	// longest single probe timeout.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/v1/state", s.handleGetState)
	r.Post("/v1/auto", s.authAdmin(s.handleSetAuto))
	r.Post("/v1/evaluate", s.authAdmin(s.handleEvaluate))

	r.Get("/v1/rules", s.handleListRules)
	r.Get("/v1/rules/{id}", s.handleGetRule)
	r.Post("/v1/rules", s.authAdmin(s.handleUpsertRule))
	r.Put("/v1/rules/{id}", s.authAdmin(s.handleUpsertRule))
	r.Delete("/v1/rules/{id}", s.authAdmin(s.handleDeleteRule))
	r.Post("/v1/rules/test", s.authAdmin(s.handleTestRule))

	r.Get("/v1/profiles", s.handleListProfiles)
	r.Get("/v1/profiles/{id}", s.handleGetProfile)
	r.Post("/v1/profiles", s.authAdmin(s.handleUpsertProfile))
	r.Put("/v1/profiles/{id}", s.authAdmin(s.handleUpsertProfile))
	r.Delete("/v1/profiles/{id}", s.authAdmin(s.handleDeleteProfile))

	return r
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.GetState(r.Context())
	if err != nil {
		InternalError(w, r, "failed to load state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type setAutoRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetAuto flips autoMode. Disabling aborts in-flight probes so no
// stale pass can still switch profiles.
func (s *Server) handleSetAuto(w http.ResponseWriter, r *http.Request) {
	var req setAutoRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	state, err := s.orch.SetAutoMode(r.Context(), req.Enabled)
	if err != nil {
		InternalError(w, r, "failed to update autoMode")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
