package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"norko-pos-edge/internal/store"
	"norko-pos-edge/pkg/apierror"
	"norko-pos-edge/pkg/response"
)

// Products handles GET /api/local/products
// Query params: search, category_id, low_stock
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ProductFilter{
		Search:   q.Get("search"),
		LowStock: q.Get("low_stock") == "true" || q.Get("low_stock") == "1",
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(w, apierror.BadRequest("category_id must be an integer"))
			return
		}
		filter.CategoryID = id
	}

	products, err := h.store.Products(r.Context(), filter)
	if err != nil {
		h.storeError(w, "Products", err)
		return
	}
	response.OK(w, products)
}

// Categories handles GET /api/local/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		h.storeError(w, "Categories", err)
		return
	}
	response.OK(w, categories)
}

// Customers handles GET /api/local/customers
// Query params: search (matches name or phone)
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	filter := store.CustomerFilter{Search: r.URL.Query().Get("search")}

	customers, err := h.store.Customers(r.Context(), filter)
	if err != nil {
		h.storeError(w, "Customers", err)
		return
	}
	response.OK(w, customers)
}

// storeError maps store failures onto API errors.
func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	log.Printf("[Handler] %s: %v", op, err)
	if errors.Is(err, store.ErrNotInitialized) || errors.Is(err, store.ErrStorageUnavailable) {
		response.Error(w, apierror.ServiceUnavailable("local storage unavailable"))
		return
	}
	response.Error(w, apierror.InternalError(""))
}
