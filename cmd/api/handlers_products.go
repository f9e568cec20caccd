package main

import (
	"net/http"

	"github.com/safar/reseller-store/internal/auth"
	"github.com/safar/reseller-store/internal/models"
	"github.com/safar/reseller-store/internal/store"
)

// Non-staff callers only see active products.
func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	activeOnly := true
	if id := auth.FromContext(r.Context()); id != nil && id.Role == auth.RoleStaff {
		activeOnly = r.URL.Query().Get("active") == "true"
	}

	result, err := store.ListProducts(r.Context(), s.db, activeOnly, page, pageSize)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	caller := auth.FromContext(r.Context())
	if !product.Active && (caller == nil || caller.Role != auth.RoleStaff) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	product, err := store.CreateProduct(r.Context(), s.db, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.catalog.InvalidateAll(r.Context())
	respondJSON(w, http.StatusCreated, product)
}

func (s *server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	product, err := store.UpdateProduct(r.Context(), s.db, id, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.catalog.InvalidateAll(r.Context())
	respondJSON(w, http.StatusOK, product)
}
