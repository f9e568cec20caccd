package main

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
)

func (s *server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	result, err := store.ListCoupons(r.Context(), s.db, page, pageSize)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleGetCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := store.GetCoupon(r.Context(), s.db, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// decodeCoupon reads a coupon body. Creates get the start time and active
// defaults; updates leave omitted ones to the stored row.
func (s *server) decodeCoupon(w http.ResponseWriter, r *http.Request, create bool) (models.CouponRequest, bool) {
	var req models.CouponRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if create {
		req.Normalize(s.now())
	} else {
		req.NormalizeUpdate()
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return req, false
	}
	return req, true
}

func (s *server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCoupon(w, r, true)
	if !ok {
		return
	}

	c, err := store.CreateCoupon(r.Context(), s.db, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Str("code", c.Code).Int64("coupon_id", c.ID).Msg("coupon created")
	respondJSON(w, http.StatusCreated, c)
}

func (s *server) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := s.decodeCoupon(w, r, false)
	if !ok {
		return
	}

	c, err := store.UpdateCoupon(r.Context(), s.db, id, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (s *server) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := store.DeleteCoupon(r.Context(), s.db, id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
