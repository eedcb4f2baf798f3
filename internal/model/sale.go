package model

import "time"

// Sale sync states.
const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
)

// Sale is a locally created sale. The local id is assigned by the store
// and remains the primary key even after the server acknowledges the sale;
// the server-assigned id is kept in ServerID once the push succeeds.
type Sale struct {
	ID             int64      `json:"id"`
	ServerID       int64      `json:"server_id,omitempty"`
	ClientRef      string     `json:"client_ref"`
	Subtotal       float64    `json:"subtotal"`
	DiscountType   string     `json:"discount_type"`
	DiscountValue  float64    `json:"discount_value"`
	DiscountAmount float64    `json:"discount_amount"`
	TotalAmount    float64    `json:"total_amount"`
	CustomerID     int64      `json:"customer_id,omitempty"`
	PaymentStatus  string     `json:"payment_status"`
	PaymentType    string     `json:"payment_type"`
	Notes          string     `json:"notes,omitempty"`
	SyncStatus     string     `json:"sync_status"`
	CreatedOffline bool       `json:"created_offline"`
	SaleDate       time.Time  `json:"sale_date"`
	CreatedAt      time.Time  `json:"created_at"`
	Items          []SaleItem `json:"items"`
}

// SaleItem is a line item created atomically with its parent sale.
type SaleItem struct {
	ID         int64   `json:"id"`
	SaleID     int64   `json:"sale_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}
