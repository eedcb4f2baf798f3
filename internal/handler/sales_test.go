package handler

import (
	"math"
	"testing"
)

func TestCreateSaleRequestValidate(t *testing.T) {
	valid := CreateSaleRequest{
		Items: []SaleItemRequest{{ProductID: 1, Quantity: 2, UnitPrice: 10}},
	}

	tests := []struct {
		name    string
		mutate  func(*CreateSaleRequest)
		wantErr bool
	}{
		{"valid", func(r *CreateSaleRequest) {}, false},
		{"no items", func(r *CreateSaleRequest) { r.Items = nil }, true},
		{"zero quantity", func(r *CreateSaleRequest) { r.Items[0].Quantity = 0 }, true},
		{"negative price", func(r *CreateSaleRequest) { r.Items[0].UnitPrice = -1 }, true},
		{"bad product id", func(r *CreateSaleRequest) { r.Items[0].ProductID = 0 }, true},
		{"bad discount type", func(r *CreateSaleRequest) { r.DiscountType = "coupon" }, true},
		{"negative discount", func(r *CreateSaleRequest) { r.DiscountValue = -5 }, true},
		{"percentage discount", func(r *CreateSaleRequest) { r.DiscountType = "percentage"; r.DiscountValue = 10 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Items = append([]SaleItemRequest(nil), valid.Items...)
			tt.mutate(&req)

			details := req.validate()
			if tt.wantErr && len(details) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantErr && len(details) > 0 {
				t.Errorf("unexpected validation errors: %+v", details)
			}
		})
	}
}

func TestToSaleTotals(t *testing.T) {
	tests := []struct {
		name         string
		req          CreateSaleRequest
		wantSubtotal float64
		wantDiscount float64
		wantTotal    float64
	}{
		{
			"no discount",
			CreateSaleRequest{Items: []SaleItemRequest{
				{ProductID: 1, Quantity: 2, UnitPrice: 10},
				{ProductID: 2, Quantity: 1, UnitPrice: 5},
			}},
			25, 0, 25,
		},
		{
			"percentage discount",
			CreateSaleRequest{
				Items:         []SaleItemRequest{{ProductID: 1, Quantity: 4, UnitPrice: 25}},
				DiscountType:  "percentage",
				DiscountValue: 10,
			},
			100, 10, 90,
		},
		{
			"fixed discount",
			CreateSaleRequest{
				Items:         []SaleItemRequest{{ProductID: 1, Quantity: 1, UnitPrice: 50}},
				DiscountType:  "fixed",
				DiscountValue: 20,
			},
			50, 20, 30,
		},
		{
			"discount capped at subtotal",
			CreateSaleRequest{
				Items:         []SaleItemRequest{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
				DiscountType:  "fixed",
				DiscountValue: 999,
			},
			10, 10, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale := tt.req.toSale()
			if !almostEqual(sale.Subtotal, tt.wantSubtotal) {
				t.Errorf("subtotal = %v, want %v", sale.Subtotal, tt.wantSubtotal)
			}
			if !almostEqual(sale.DiscountAmount, tt.wantDiscount) {
				t.Errorf("discount = %v, want %v", sale.DiscountAmount, tt.wantDiscount)
			}
			if !almostEqual(sale.TotalAmount, tt.wantTotal) {
				t.Errorf("total = %v, want %v", sale.TotalAmount, tt.wantTotal)
			}
			if sale.ClientRef == "" {
				t.Error("client_ref not assigned")
			}
			if len(sale.Items) != len(tt.req.Items) {
				t.Errorf("got %d items, want %d", len(sale.Items), len(tt.req.Items))
			}
		})
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
