package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/store"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.GetProfiles(r.Context())
	if err != nil {
		InternalError(w, r, "failed to load profiles")
		return
	}
	if all == nil {
		all = []proxy.Profile{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError(w, r, "profile not found: "+id)
			return
		}
		InternalError(w, r, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var p proxy.Profile
	if err := decodeJSON(r, &p); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		p.ID = id
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		BadRequestError(w, r, ErrCodeValidation, err.Error())
		return
	}
	if err := s.store.UpsertProfile(r.Context(), p); err != nil {
		InternalError(w, r, "failed to store profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		InternalError(w, r, "failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
