package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/safar/reseller-store/internal/auth"
	"github.com/safar/reseller-store/internal/catalog"
	"github.com/safar/reseller-store/internal/logger"
	"github.com/safar/reseller-store/internal/metrics"
)

type server struct {
	db      *sql.DB
	catalog *catalog.Service
	auth    *auth.Manager
	now     func() time.Time
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	staff := func(h http.HandlerFunc) http.HandlerFunc { return auth.RequireRole(h, auth.RoleStaff) }
	member := func(h http.HandlerFunc) http.HandlerFunc {
		return auth.RequireRole(h, auth.RoleStaff, auth.RoleReseller)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /storefront/{slug}", s.handleStorefront)
	mux.HandleFunc("POST /coupons/validate", s.handleValidateCoupon)
	mux.HandleFunc("POST /checkout", s.handleCheckout)

	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("POST /products", staff(s.handleCreateProduct))
	mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	mux.HandleFunc("PATCH /products/{id}", staff(s.handleUpdateProduct))

	mux.HandleFunc("POST /resellers", staff(s.handleCreateReseller))
	mux.HandleFunc("GET /resellers/{id}", member(s.handleGetReseller))
	mux.HandleFunc("PUT /resellers/{id}/markup", member(s.handleSetMarkup))
	mux.HandleFunc("GET /resellers/{id}/overrides", member(s.handleListOverrides))
	mux.HandleFunc("PUT /resellers/{id}/overrides/{productID}", member(s.handleSetOverride))
	mux.HandleFunc("DELETE /resellers/{id}/overrides/{productID}", member(s.handleClearOverride))

	mux.HandleFunc("GET /coupons", staff(s.handleListCoupons))
	mux.HandleFunc("POST /coupons", staff(s.handleCreateCoupon))
	mux.HandleFunc("GET /coupons/{id}", staff(s.handleGetCoupon))
	mux.HandleFunc("PUT /coupons/{id}", staff(s.handleUpdateCoupon))
	mux.HandleFunc("DELETE /coupons/{id}", staff(s.handleDeleteCoupon))

	mux.HandleFunc("GET /orders", member(s.handleListOrders))
	mux.HandleFunc("POST /orders/claim", staff(s.handleClaimOrder))
	mux.HandleFunc("GET /orders/{id}", member(s.handleGetOrder))
	mux.HandleFunc("PATCH /orders/{id}/status", staff(s.handleUpdateOrderStatus))

	return mux
}

func (s *server) handler() http.Handler {
	mux := s.routes()
	return logger.Recovery(logger.Middleware(mux, s.auth.Authenticate(mux)))
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
