package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"norko-pos-edge/internal/model"
	"norko-pos-edge/internal/store"
	"norko-pos-edge/pkg/apierror"
	"norko-pos-edge/pkg/response"
	"norko-pos-edge/pkg/uid"
)

// CreateSaleRequest is the payload for recording a sale locally.
type CreateSaleRequest struct {
	Items []SaleItemRequest `json:"items"`

	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`

	CustomerID    int64  `json:"customer_id"`
	PaymentStatus string `json:"payment_status"`
	PaymentType   string `json:"payment_type"`
	Notes         string `json:"notes"`
	SaleDate      string `json:"sale_date"`
}

// SaleItemRequest is one line of a sale.
type SaleItemRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// validate returns field errors for an unusable sale.
func (req *CreateSaleRequest) validate() []apierror.FieldError {
	var details []apierror.FieldError
	if len(req.Items) == 0 {
		details = append(details, apierror.FieldError{Field: "items", Message: "at least one item is required"})
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			details = append(details, apierror.FieldError{Field: "items[" + strconv.Itoa(i) + "].product_id", Message: "must be a positive id"})
		}
		if item.Quantity <= 0 {
			details = append(details, apierror.FieldError{Field: "items[" + strconv.Itoa(i) + "].quantity", Message: "must be greater than zero"})
		}
		if item.UnitPrice < 0 {
			details = append(details, apierror.FieldError{Field: "items[" + strconv.Itoa(i) + "].unit_price", Message: "must not be negative"})
		}
	}
	switch req.DiscountType {
	case "", "percentage", "fixed":
	default:
		details = append(details, apierror.FieldError{Field: "discount_type", Message: "must be percentage or fixed"})
	}
	if req.DiscountValue < 0 {
		details = append(details, apierror.FieldError{Field: "discount_value", Message: "must not be negative"})
	}
	return details
}

// toSale builds the sale record, computing line totals and discount.
func (req *CreateSaleRequest) toSale() *model.Sale {
	now := time.Now().UTC()
	sale := &model.Sale{
		ClientRef:      uid.New(),
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		CustomerID:     req.CustomerID,
		PaymentStatus:  req.PaymentStatus,
		PaymentType:    req.PaymentType,
		Notes:          req.Notes,
		SyncStatus:     model.SyncStatusPending,
		CreatedOffline: true,
		SaleDate:       now,
		CreatedAt:      now,
	}
	if sale.PaymentStatus == "" {
		sale.PaymentStatus = "paid"
	}
	if t, err := parseDate(req.SaleDate); err == nil && !t.IsZero() {
		sale.SaleDate = t
	}

	for _, item := range req.Items {
		lineTotal := item.Quantity * item.UnitPrice
		sale.Subtotal += lineTotal
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: lineTotal,
		})
	}

	switch req.DiscountType {
	case "percentage":
		sale.DiscountAmount = sale.Subtotal * req.DiscountValue / 100
	case "fixed":
		sale.DiscountAmount = req.DiscountValue
	}
	if sale.DiscountAmount > sale.Subtotal {
		sale.DiscountAmount = sale.Subtotal
	}
	sale.TotalAmount = sale.Subtotal - sale.DiscountAmount

	return sale
}

// CreateSale handles POST /api/local/sales. The sale and its queue
// entry are written in one transaction; a sync kick follows when the
// upstream is reachable.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}

	if details := req.validate(); len(details) > 0 {
		response.Error(w, apierror.ValidationError("invalid sale", details...))
		return
	}

	sale := req.toSale()
	if err := h.engine.SaveSaleLocal(r.Context(), sale); err != nil {
		if errors.Is(err, store.ErrWriteFailed) {
			response.Error(w, apierror.ServiceUnavailable("sale could not be recorded"))
			return
		}
		h.storeError(w, "CreateSale", err)
		return
	}

	response.Created(w, sale)
}

// Sales handles GET /api/local/sales
// Query params: date_from, date_to (YYYY-MM-DD), customer_id
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter store.SaleFilter
	if raw := q.Get("date_from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			response.Error(w, apierror.BadRequest("date_from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			response.Error(w, apierror.BadRequest("date_to must be YYYY-MM-DD"))
			return
		}
		// Inclusive through end of day
		filter.DateTo = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(w, apierror.BadRequest("customer_id must be an integer"))
			return
		}
		filter.CustomerID = id
	}

	sales, err := h.store.Sales(r.Context(), filter)
	if err != nil {
		h.storeError(w, "Sales", err)
		return
	}
	response.OK(w, sales)
}

// parseDate accepts a bare date or a full RFC3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Sale handles GET /api/local/sales/{id}
func (h *Handler) Sale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("id must be an integer"))
		return
	}

	sale, err := h.store.Sale(r.Context(), id)
	if err != nil {
		h.storeError(w, "Sale", err)
		return
	}
	if sale == nil {
		response.Error(w, apierror.NotFound("sale not found"))
		return
	}
	response.OK(w, sale)
}
