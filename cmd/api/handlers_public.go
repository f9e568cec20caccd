package main

import (
	"net/http"

	"github.com/safar/reseller-store/internal/checkout"
	"github.com/safar/reseller-store/internal/coupon"
	"github.com/safar/reseller-store/internal/metrics"
	"github.com/safar/reseller-store/internal/models"
	"github.com/shopspring/decimal"
)

func (s *server) handleStorefront(w http.ResponseWriter, r *http.Request) {
	sf, err := s.catalog.Storefront(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sf)
}

type validateCouponResponse struct {
	Accepted bool             `json:"accepted"`
	Reason   coupon.Reason    `json:"reason,omitempty"`
	Message  string           `json:"message,omitempty"`
	Code     string           `json:"code,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
}

func (s *server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateCouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := coupon.Validate(r.Context(), s.db, req.Code, req.Subtotal, req.Email, s.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if !res.Accepted {
		metrics.ObserveCouponValidation(string(res.Rejection.Reason))
		respondJSON(w, http.StatusOK, validateCouponResponse{
			Reason:  res.Rejection.Reason,
			Message: res.Rejection.Message,
		})
		return
	}

	metrics.ObserveCouponValidation("accepted")
	discount := coupon.Discount(res.Coupon, req.Subtotal)
	total := decimal.Max(decimal.Zero, req.Subtotal.Sub(discount))
	respondJSON(w, http.StatusOK, validateCouponResponse{
		Accepted: true,
		Code:     res.Coupon.Code,
		Discount: &discount,
		Total:    &total,
	})
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := checkout.PlaceOrder(r.Context(), s.db, req, s.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.catalog.OrderPlaced(r.Context(), order)

	respondJSON(w, http.StatusCreated, order)
}
