package store

import (
	"testing"
	"time"

	"norko-pos-edge/internal/model"
)

func TestCustomerFilterMatch(t *testing.T) {
	customers := []model.Customer{
		{ID: 1, Name: "أحمد علي", Phone: "0791234567"},
		{ID: 2, Name: "محمد خالد", Phone: "0787654321"},
	}

	tests := []struct {
		name    string
		search  string
		wantIDs []int64
	}{
		{"empty matches all", "", []int64{1, 2}},
		{"by name", "أحمد", []int64{1}},
		{"by phone fragment", "0787", []int64{2}},
		{"no match", "سارة", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCustomers(customers, CustomerFilter{Search: tt.search})
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d customers, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("customer[%d].ID = %d, want %d", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestSaleFilterAndOrder(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC) }
	sales := []model.Sale{
		{ID: 1, CustomerID: 7, SaleDate: day(10)},
		{ID: 2, CustomerID: 8, SaleDate: day(20)},
		{ID: 3, CustomerID: 7, SaleDate: day(15)},
	}

	tests := []struct {
		name    string
		filter  SaleFilter
		wantIDs []int64 // newest first
	}{
		{"all newest first", SaleFilter{}, []int64{2, 3, 1}},
		{"from", SaleFilter{DateFrom: day(12)}, []int64{2, 3}},
		{"to", SaleFilter{DateTo: day(12)}, []int64{1}},
		{"range", SaleFilter{DateFrom: day(12), DateTo: day(18)}, []int64{3}},
		{"by customer", SaleFilter{CustomerID: 7}, []int64{3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSales(sales, tt.filter)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d sales, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("sale[%d].ID = %d, want %d", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestProductFilterLowStock(t *testing.T) {
	products := []model.Product{
		{ID: 1, StockQuantity: 10, MinStockThreshold: 5},
		{ID: 2, StockQuantity: 5, MinStockThreshold: 5}, // boundary counts as low
		{ID: 3, StockQuantity: 0, MinStockThreshold: 5},
	}
	got := FilterProducts(products, ProductFilter{LowStock: true})
	if len(got) != 2 {
		t.Fatalf("got %d low-stock products, want 2", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 3 {
		t.Errorf("unexpected low-stock set: %+v", got)
	}
}
