package main

import (
	"net/http"

	"github.com/safar/reseller-store/internal/auth"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/pricing"
	"github.com/safar/reseller-store/internal/store"
)

// resellerFromPath reads {id} and checks the caller may manage it.
func (s *server) resellerFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, false
	}
	if !auth.CanManageReseller(auth.FromContext(r.Context()), id) {
		respondError(w, http.StatusForbidden, "forbidden")
		return 0, false
	}
	return id, true
}

func (s *server) handleCreateReseller(w http.ResponseWriter, r *http.Request) {
	var req models.CreateResellerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	reseller, err := store.CreateReseller(r.Context(), s.db, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, reseller)
}

func (s *server) handleGetReseller(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resellerFromPath(w, r)
	if !ok {
		return
	}

	reseller, err := store.GetReseller(r.Context(), s.db, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, reseller)
}

func (s *server) handleSetMarkup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resellerFromPath(w, r)
	if !ok {
		return
	}

	var req models.SetMarkupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reseller, err := pricing.SetResellerMarkup(r.Context(), s.db, id, req.Markup)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.catalog.Invalidate(r.Context(), reseller.Slug)
	respondJSON(w, http.StatusOK, reseller)
}

func (s *server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resellerFromPath(w, r)
	if !ok {
		return
	}

	if _, err := store.GetReseller(r.Context(), s.db, id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	overrides, err := store.ListOverrides(r.Context(), s.db, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"items": overrides})
}

func (s *server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resellerFromPath(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	var req models.SetOverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	override, err := pricing.SetProductOverride(r.Context(), s.db, id, productID, req.Price)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateReseller(r, id)
	respondJSON(w, http.StatusOK, override)
}

func (s *server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := s.resellerFromPath(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	if err := pricing.ClearProductOverride(r.Context(), s.db, id, productID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateReseller(r, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) invalidateReseller(r *http.Request, id int64) {
	reseller, err := store.GetReseller(r.Context(), s.db, id)
	if err != nil {
		s.catalog.InvalidateAll(r.Context())
		return
	}
	s.catalog.Invalidate(r.Context(), reseller.Slug)
}
