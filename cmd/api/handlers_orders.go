package main

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/safar/reseller-store/internal/auth"
	"github.com/safar/reseller-store/internal/database"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
)

// Resellers only ever see their own orders. With a cursor parameter the
// listing is keyset-paged; otherwise it uses numbered pages.
func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.OrderFilter{Status: query.Get("status")}
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	if caller := auth.FromContext(r.Context()); caller.Role == auth.RoleReseller {
		filter.ResellerID = caller.ResellerID
	}

	if cursor, ok := query["cursor"]; ok {
		if _, err := store.DecodeCursor(cursor[0]); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		limit, _ := strconv.Atoi(query.Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		result, err := store.ListOrdersCursor(r.Context(), s.db, filter, cursor[0], limit)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	page, pageSize := pageParams(r)
	result, err := store.ListOrdersOffset(r.Context(), s.db, filter, page, pageSize)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	caller := auth.FromContext(r.Context())
	if caller.Role != auth.RoleStaff &&
		(order.ResellerID == nil || !auth.CanManageReseller(caller, *order.ResellerID)) {
		respondError(w, http.StatusNotFound, database.ErrOrderNotFound.Error())
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	order, err := store.UpdateOrderStatus(r.Context(), s.db, id, req.Status)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Str("order_number", order.OrderNumber).Str("status", order.Status).Msg("order status changed")
	respondJSON(w, http.StatusOK, order)
}

// handleClaimOrder hands the oldest pending order to a fulfilment worker.
func (s *server) handleClaimOrder(w http.ResponseWriter, r *http.Request) {
	var order *models.Order

	err := database.WithTransaction(r.Context(), s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		order, err = store.ClaimNextPendingOrder(r.Context(), tx)
		return err
	})
	if errors.Is(err, database.ErrOrderNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
