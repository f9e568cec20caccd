package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/checkout"
	"github.com/safar/reseller-store/internal/coupon"
	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/pricing"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

var (
	notFoundErrors = []error{
		database.ErrProductNotFound,
		database.ErrResellerNotFound,
		database.ErrOverrideNotFound,
		database.ErrCouponNotFound,
		database.ErrOrderNotFound,
	}
	conflictErrors = []error{
		database.ErrInsufficientStock,
		database.ErrDuplicateCode,
		database.ErrDuplicateSlug,
		database.ErrDuplicateSKU,
		database.ErrResellerExists,
		database.ErrCouponInUse,
		database.ErrUsageLimitBelowUsed,
		database.ErrOptimisticLockFailed,
	}
	unprocessableErrors = []error{
		database.ErrProductInactive,
		database.ErrUnknownSize,
	}
	badRequestErrors = []error{
		database.ErrInvalidCouponWindow,
	}
)

func matchAny(err error, targets []error) error {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// respondServiceError maps domain and storage errors to HTTP responses.
// Anything unrecognized is logged and reported as a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErrs     validation.Errors
		cartErr       *checkout.ValidationError
		priceErr      *pricing.ValidationError
		rejection     *coupon.Rejection
		internalValid validation.InternalError
	)

	switch {
	case errors.As(err, &internalValid):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("validation internal error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	case errors.As(err, &rejection):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  rejection.Message,
			"reason": string(rejection.Reason),
		})
	case errors.As(err, &priceErr):
		body := map[string]interface{}{"error": priceErr.Message, "field": priceErr.Field}
		if priceErr.Minimum != nil {
			body["minimum"] = priceErr.Minimum
		}
		respondJSON(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &cartErr):
		body := map[string]interface{}{"error": cartErr.Message}
		if errors.As(cartErr.Details, &fieldErrs) {
			body["details"] = fieldErrs
		}
		respondJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &fieldErrs):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": fieldErrs,
		})
	case matchAny(err, notFoundErrors) != nil:
		respondError(w, http.StatusNotFound, matchAny(err, notFoundErrors).Error())
	case matchAny(err, conflictErrors) != nil:
		respondError(w, http.StatusConflict, matchAny(err, conflictErrors).Error())
	case matchAny(err, unprocessableErrors) != nil:
		respondError(w, http.StatusUnprocessableEntity, matchAny(err, unprocessableErrors).Error())
	case matchAny(err, badRequestErrors) != nil:
		respondError(w, http.StatusBadRequest, matchAny(err, badRequestErrors).Error())
	case database.InvalidValue(err):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("database refused a value")
		respondError(w, http.StatusBadRequest, "value out of range")
	case database.IsRetryable(err):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("request gave up on contended rows")
		respondError(w, http.StatusConflict, "resource is busy, please retry")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
