package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/store"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.GetRules(r.Context())
	if err != nil {
		InternalError(w, r, "failed to load rules")
		return
	}
	if all == nil {
		all = []rules.Rule{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, err := s.store.GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError(w, r, "rule not found: "+id)
			return
		}
		InternalError(w, r, "failed to load rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleUpsertRule serves both POST /v1/rules (create, id generated when
// absent) and PUT /v1/rules/{id} (the path id wins over the body id).
func (s *Server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := decodeJSON(r, &rule); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		rule.ID = id
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := rules.ValidateRule(rule); err != nil {
		BadRequestError(w, r, ErrCodeValidation, err.Error())
		return
	}
	if err := s.store.UpsertRule(r.Context(), rule); err != nil {
		InternalError(w, r, "failed to store rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		InternalError(w, r, "failed to delete rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTestRule evaluates an ad-hoc rule with caching disabled. The rule is
// never persisted and the probe cache is never touched.
func (s *Server) handleTestRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := decodeJSON(r, &rule); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if rule.ID == "" {
		rule.ID = "test"
	}
	if err := rules.ValidateRule(rule); err != nil {
		BadRequestError(w, r, ErrCodeValidation, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.evaluator.TestRule(r.Context(), rule))
}
